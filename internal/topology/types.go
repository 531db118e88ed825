// Package topology defines the declarative event-routing topology model:
// the document schema, destination variant validation, and expansion into
// the flat resource specifications the reconciler converges.
package topology

const (
	// DefaultGoogleAPISourceID is the resource ID used for the google-api
	// source when the document does not override it.
	DefaultGoogleAPISourceID = "google-api-source"
)

// Document is the declarative topology input. One document describes one
// reconciliation scope: a single message bus plus the sources, pipelines,
// enrollments and standard triggers wired around it.
type Document struct {
	ProjectID string `yaml:"project_id" validate:"required"`
	Region    string `yaml:"region" validate:"required"`

	// ExtraAPIs are enabled in addition to the base service set. Order is
	// preserved; duplicates against the base set are dropped.
	ExtraAPIs []string `yaml:"extra_apis"`

	BusID     string `yaml:"bus_id" validate:"required"`
	BusKMSKey string `yaml:"bus_kms_key"`

	// EnableGoogleSources controls the optional google-api source binding
	// built-in provider events into the bus. Defaults to true.
	EnableGoogleSources *bool  `yaml:"enable_google_sources"`
	GoogleAPISourceID   string `yaml:"google_api_source_id"`

	// EnableStandardTriggers gates the standard_triggers map. When false,
	// declared triggers are filtered out of the expansion entirely.
	EnableStandardTriggers bool `yaml:"enable_standard_triggers"`

	// Labels are applied to every resource the reconciler creates.
	Labels map[string]string `yaml:"labels"`

	// LogSeverity sets the platform logging level on the bus and all
	// pipelines. Empty leaves the server default in place.
	LogSeverity string `yaml:"log_severity" validate:"omitempty,oneof=NONE DEBUG INFO NOTICE WARNING ERROR CRITICAL ALERT EMERGENCY"`

	AdvancedPipelines map[string]PipelineEntry `yaml:"advanced_pipelines" validate:"dive"`
	StandardTriggers  map[string]TriggerEntry  `yaml:"standard_triggers" validate:"dive"`
}

// ApplyDefaults fills in the documented default values for fields the
// document leaves unset.
func (d *Document) ApplyDefaults() {
	if d.EnableGoogleSources == nil {
		enabled := true
		d.EnableGoogleSources = &enabled
	}
	if d.GoogleAPISourceID == "" {
		d.GoogleAPISourceID = DefaultGoogleAPISourceID
	}
}

// GoogleSourcesEnabled reports whether the google-api source binding is
// active, applying the default when the field is unset.
func (d *Document) GoogleSourcesEnabled() bool {
	if d.EnableGoogleSources == nil {
		return true
	}
	return *d.EnableGoogleSources
}

// PipelineEntry declares one pipeline and its paired enrollment. Every
// entry produces exactly one of each; an entry cannot declare a pipeline
// without its enrollment.
type PipelineEntry struct {
	PipelineID   string `yaml:"pipeline_id" validate:"required"`
	EnrollmentID string `yaml:"enrollment_id" validate:"required"`

	// CELMatch is the enrollment's match expression. It is passed through
	// to the API verbatim, never parsed here.
	CELMatch string `yaml:"cel_match" validate:"required"`

	Destination PipelineDestination `yaml:"destination"`
}

// DestinationType discriminates pipeline destination variants.
type DestinationType string

const (
	// DestinationHTTPEndpoint delivers events to an HTTP URI, optionally
	// authenticated with an OIDC token.
	DestinationHTTPEndpoint DestinationType = "http_endpoint"
	// DestinationMessageBus fans events out into another message bus.
	DestinationMessageBus DestinationType = "message_bus"
)

// PipelineDestination is the declarative destination block of a pipeline
// entry. The type field selects which of the remaining fields are legal;
// ValidateDocument enforces the combinations before expansion.
type PipelineDestination struct {
	Type DestinationType `yaml:"type"`

	// URI is the HTTP endpoint. Legal only for http_endpoint.
	URI string `yaml:"uri,omitempty" validate:"omitempty,url"`

	// MessageBusID is the fan-out target bus. Legal only for message_bus.
	MessageBusID string `yaml:"message_bus_id,omitempty"`

	// OIDCServiceAccount authenticates HTTP deliveries. Legal only for
	// http_endpoint.
	OIDCServiceAccount string `yaml:"oidc_service_account,omitempty"`

	// OIDCAudience overrides the token audience. Requires
	// OIDCServiceAccount.
	OIDCAudience string `yaml:"oidc_audience,omitempty"`
}

// TriggerEntry declares one standard trigger: a direct source-to-destination
// binding outside the bus/pipeline subgraph.
type TriggerEntry struct {
	Name string `yaml:"name" validate:"required"`

	// Location defaults to the document region when empty.
	Location string `yaml:"location"`

	// MatchingCriteria order is preserved verbatim; the underlying
	// routing semantics may be order-sensitive.
	MatchingCriteria []MatchingCriterion `yaml:"matching_criteria" validate:"min=1,dive"`

	Destination          TriggerDestination `yaml:"destination"`
	TransportPubSubTopic string             `yaml:"transport_pubsub_topic"`
	ServiceAccount       string             `yaml:"service_account" validate:"required"`
}

// MatchingCriterion is one attribute/value pair of a trigger's event filter.
type MatchingCriterion struct {
	Attribute string `yaml:"attribute" validate:"required"`
	Value     string `yaml:"value" validate:"required"`
}

// TriggerDestinationType discriminates standard trigger destination variants.
type TriggerDestinationType string

const (
	// TriggerDestinationCloudRun delivers to a Cloud Run service.
	TriggerDestinationCloudRun TriggerDestinationType = "cloud_run"
	// TriggerDestinationWorkflows executes a workflow.
	TriggerDestinationWorkflows TriggerDestinationType = "workflows"
	// TriggerDestinationHTTP delivers to a raw HTTP endpoint.
	TriggerDestinationHTTP TriggerDestinationType = "http"
)

// TriggerDestination is the declarative destination block of a trigger
// entry. Exactly one variant's fields may be populated.
type TriggerDestination struct {
	Type TriggerDestinationType `yaml:"type"`

	// Cloud Run variant. Service and region required, path optional.
	CloudRunService string `yaml:"cloud_run_service,omitempty"`
	CloudRunRegion  string `yaml:"cloud_run_region,omitempty"`
	CloudRunPath    string `yaml:"cloud_run_path,omitempty"`

	// Workflows variant.
	WorkflowID string `yaml:"workflow_id,omitempty"`

	// HTTP variant.
	URI string `yaml:"uri,omitempty" validate:"omitempty,url"`
}
