package topology

import (
	"errors"
	"maps"
	"slices"

	apperrors "github.com/busway/busway/internal/errors"
)

// ValidateDocument type-checks every destination block in the document
// against its declared variant. All entries are checked before reporting
// so one run surfaces the complete defect list, joined into a single
// error. Trigger entries are checked even when standard triggers are
// disabled; the toggle filters expansion, it does not excuse bad input.
func ValidateDocument(doc *Document) error {
	var errs []error

	for _, key := range slices.Sorted(maps.Keys(doc.AdvancedPipelines)) {
		errs = append(errs, validatePipelineDestination(key, doc.AdvancedPipelines[key].Destination)...)
	}
	for _, key := range slices.Sorted(maps.Keys(doc.StandardTriggers)) {
		errs = append(errs, validateTriggerDestination(key, doc.StandardTriggers[key].Destination)...)
	}

	return errors.Join(errs...)
}

func fieldError(entry string, variant, field, reason string) *apperrors.ValidationError {
	return &apperrors.ValidationError{Entry: entry, Variant: variant, Field: field, Reason: reason}
}

// validatePipelineDestination verifies that exactly the fields legal for
// the destination variant are present and all others are absent.
func validatePipelineDestination(entry string, dst PipelineDestination) []error {
	variant := string(dst.Type)
	var errs []error

	switch dst.Type {
	case DestinationHTTPEndpoint:
		if dst.URI == "" {
			errs = append(errs, fieldError(entry, variant, "uri", "is required for http_endpoint destinations"))
		}
		if dst.MessageBusID != "" {
			errs = append(errs, fieldError(entry, variant, "message_bus_id", "is not allowed for http_endpoint destinations"))
		}
		if dst.OIDCAudience != "" && dst.OIDCServiceAccount == "" {
			errs = append(errs, fieldError(entry, variant, "oidc_audience", "requires oidc_service_account to be set"))
		}
	case DestinationMessageBus:
		if dst.MessageBusID == "" {
			errs = append(errs, fieldError(entry, variant, "message_bus_id", "is required for message_bus destinations"))
		}
		if dst.URI != "" {
			errs = append(errs, fieldError(entry, variant, "uri", "is not allowed for message_bus destinations"))
		}
		if dst.OIDCServiceAccount != "" {
			errs = append(errs, fieldError(entry, variant, "oidc_service_account", "is not allowed for message_bus destinations"))
		}
		if dst.OIDCAudience != "" {
			errs = append(errs, fieldError(entry, variant, "oidc_audience", "is not allowed for message_bus destinations"))
		}
	case "":
		errs = append(errs, fieldError(entry, variant, "type", "is required"))
	default:
		errs = append(errs, fieldError(entry, variant, "type", "is not a known pipeline destination type"))
	}

	return errs
}

// validateTriggerDestination verifies that exactly one trigger destination
// variant is populated and its required fields are present.
func validateTriggerDestination(entry string, dst TriggerDestination) []error {
	variant := string(dst.Type)
	var errs []error

	switch dst.Type {
	case TriggerDestinationCloudRun:
		if dst.CloudRunService == "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_service", "is required for cloud_run destinations"))
		}
		if dst.CloudRunRegion == "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_region", "is required for cloud_run destinations"))
		}
		if dst.WorkflowID != "" {
			errs = append(errs, fieldError(entry, variant, "workflow_id", "is not allowed for cloud_run destinations"))
		}
		if dst.URI != "" {
			errs = append(errs, fieldError(entry, variant, "uri", "is not allowed for cloud_run destinations"))
		}
	case TriggerDestinationWorkflows:
		if dst.WorkflowID == "" {
			errs = append(errs, fieldError(entry, variant, "workflow_id", "is required for workflows destinations"))
		}
		if dst.CloudRunService != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_service", "is not allowed for workflows destinations"))
		}
		if dst.CloudRunRegion != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_region", "is not allowed for workflows destinations"))
		}
		if dst.CloudRunPath != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_path", "is not allowed for workflows destinations"))
		}
		if dst.URI != "" {
			errs = append(errs, fieldError(entry, variant, "uri", "is not allowed for workflows destinations"))
		}
	case TriggerDestinationHTTP:
		if dst.URI == "" {
			errs = append(errs, fieldError(entry, variant, "uri", "is required for http destinations"))
		}
		if dst.CloudRunService != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_service", "is not allowed for http destinations"))
		}
		if dst.CloudRunRegion != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_region", "is not allowed for http destinations"))
		}
		if dst.CloudRunPath != "" {
			errs = append(errs, fieldError(entry, variant, "cloud_run_path", "is not allowed for http destinations"))
		}
		if dst.WorkflowID != "" {
			errs = append(errs, fieldError(entry, variant, "workflow_id", "is not allowed for http destinations"))
		}
	case "":
		errs = append(errs, fieldError(entry, variant, "type", "is required"))
	default:
		errs = append(errs, fieldError(entry, variant, "type", "is not a known trigger destination type"))
	}

	return errs
}
