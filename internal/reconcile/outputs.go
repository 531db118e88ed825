package reconcile

import (
	"github.com/busway/busway/internal/gcp"
	"github.com/busway/busway/internal/topology"
)

// Outputs are the resource identifiers collaborators consume after an
// apply. Only converged nodes contribute; after a partial failure the
// maps hold what actually exists.
type Outputs struct {
	ProjectNumber   string
	BusName         string
	PipelineNames   map[string]string
	EnrollmentNames map[string]string
	TriggerNames    map[string]string

	// GoogleAPISourceName is nil when google sources are disabled or the
	// source did not converge.
	GoogleAPISourceName *string
}

func collectOutputs(project *gcp.Project, report *Report) *Outputs {
	outputs := &Outputs{
		ProjectNumber:   project.Number,
		PipelineNames:   make(map[string]string),
		EnrollmentNames: make(map[string]string),
		TriggerNames:    make(map[string]string),
	}

	for _, result := range report.Results {
		if result.State != StateConverged {
			continue
		}
		switch result.Kind {
		case topology.KindMessageBus:
			outputs.BusName = result.Name
		case topology.KindGoogleAPISource:
			name := result.Name
			outputs.GoogleAPISourceName = &name
		case topology.KindPipeline:
			outputs.PipelineNames[result.EntryKey] = result.Name
		case topology.KindEnrollment:
			outputs.EnrollmentNames[result.EntryKey] = result.Name
		case topology.KindTrigger:
			outputs.TriggerNames[result.EntryKey] = result.Name
		}
	}
	return outputs
}
