package topology

import (
	"maps"
	"slices"

	"github.com/busway/busway/internal/constants"
	gcpconstants "github.com/busway/busway/internal/gcp/constants"
)

// Expand flattens the document into the ordered resource specifications
// the graph builder and reconciler operate on: one service enablement
// spec, one bus, zero or one google-api source, one pipeline plus one
// enrollment per advanced_pipelines entry, and one trigger per
// standard_triggers entry when standard triggers are enabled.
//
// Inputs are assumed validated; Expand never filters or rejects
// destination kinds. Map entries are visited in lexical key order so the
// output is reproducible.
func Expand(doc *Document) []*ResourceSpec {
	labels := resourceLabels(doc)
	specs := make([]*ResourceSpec, 0, 3+2*len(doc.AdvancedPipelines)+len(doc.StandardTriggers))

	specs = append(specs, &ResourceSpec{
		Kind:    KindAPIs,
		Project: doc.ProjectID,
		APIs:    requiredAPIs(doc.ExtraAPIs),
	})

	specs = append(specs, &ResourceSpec{
		Kind:     KindMessageBus,
		ID:       doc.BusID,
		Project:  doc.ProjectID,
		Location: doc.Region,
		Labels:   labels,
		Bus: &BusSpec{
			CryptoKeyName: doc.BusKMSKey,
			LogSeverity:   doc.LogSeverity,
		},
	})

	if doc.GoogleSourcesEnabled() {
		sourceID := doc.GoogleAPISourceID
		if sourceID == "" {
			sourceID = DefaultGoogleAPISourceID
		}
		specs = append(specs, &ResourceSpec{
			Kind:     KindGoogleAPISource,
			ID:       sourceID,
			Project:  doc.ProjectID,
			Location: doc.Region,
			Labels:   labels,
			Source:   &SourceSpec{BusID: doc.BusID},
		})
	}

	// Every pipeline entry produces the pipeline and its paired
	// enrollment. The pairing is unconditional.
	for _, key := range slices.Sorted(maps.Keys(doc.AdvancedPipelines)) {
		entry := doc.AdvancedPipelines[key]
		specs = append(specs, &ResourceSpec{
			Kind:     KindPipeline,
			ID:       entry.PipelineID,
			EntryKey: key,
			Project:  doc.ProjectID,
			Location: doc.Region,
			Labels:   labels,
			Pipeline: &PipelineSpec{
				Destination: entry.Destination,
				LogSeverity: doc.LogSeverity,
			},
		})
		specs = append(specs, &ResourceSpec{
			Kind:     KindEnrollment,
			ID:       entry.EnrollmentID,
			EntryKey: key,
			Project:  doc.ProjectID,
			Location: doc.Region,
			Labels:   labels,
			Enrollment: &EnrollmentSpec{
				BusID:      doc.BusID,
				PipelineID: entry.PipelineID,
				CELMatch:   entry.CELMatch,
			},
		})
	}

	if doc.EnableStandardTriggers {
		for _, key := range slices.Sorted(maps.Keys(doc.StandardTriggers)) {
			entry := doc.StandardTriggers[key]
			location := entry.Location
			if location == "" {
				location = doc.Region
			}
			specs = append(specs, &ResourceSpec{
				Kind:     KindTrigger,
				ID:       entry.Name,
				EntryKey: key,
				Project:  doc.ProjectID,
				Location: location,
				Labels:   labels,
				Trigger: &TriggerSpec{
					MatchingCriteria:     entry.MatchingCriteria,
					Destination:          entry.Destination,
					TransportPubSubTopic: entry.TransportPubSubTopic,
					ServiceAccount:       entry.ServiceAccount,
				},
			})
		}
	}

	return specs
}

// requiredAPIs merges the base service set with the document's extras,
// preserving order and dropping duplicates.
func requiredAPIs(extras []string) []string {
	services := make([]string, 0, len(gcpconstants.RequiredServices)+len(extras))
	seen := make(map[string]struct{}, len(gcpconstants.RequiredServices)+len(extras))

	for _, svc := range gcpconstants.RequiredServices {
		seen[svc] = struct{}{}
		services = append(services, svc)
	}
	for _, svc := range extras {
		if _, ok := seen[svc]; ok {
			continue
		}
		seen[svc] = struct{}{}
		services = append(services, svc)
	}

	return services
}

// resourceLabels builds the label set stamped on every created resource.
// Document labels are merged first; the managed-by and application keys
// always win.
func resourceLabels(doc *Document) map[string]string {
	labels := make(map[string]string, len(doc.Labels)+2)
	maps.Copy(labels, doc.Labels)
	labels[constants.ResourceManagedByLabelKey] = constants.ProjectName
	labels[constants.ResourceApplicationLabelKey] = doc.BusID
	return labels
}
