package gcp

import "fmt"

// LocationParent returns the parent path for location-scoped resources.
func LocationParent(projectID, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", projectID, location)
}

// BusName returns the full resource name of a message bus.
func BusName(projectID, location, busID string) string {
	return fmt.Sprintf("%s/messageBuses/%s", LocationParent(projectID, location), busID)
}

// PipelineName returns the full resource name of a pipeline.
func PipelineName(projectID, location, pipelineID string) string {
	return fmt.Sprintf("%s/pipelines/%s", LocationParent(projectID, location), pipelineID)
}

// EnrollmentName returns the full resource name of an enrollment.
func EnrollmentName(projectID, location, enrollmentID string) string {
	return fmt.Sprintf("%s/enrollments/%s", LocationParent(projectID, location), enrollmentID)
}

// SourceName returns the full resource name of a google-api source.
func SourceName(projectID, location, sourceID string) string {
	return fmt.Sprintf("%s/googleApiSources/%s", LocationParent(projectID, location), sourceID)
}

// TriggerName returns the full resource name of a trigger.
func TriggerName(projectID, location, triggerID string) string {
	return fmt.Sprintf("%s/triggers/%s", LocationParent(projectID, location), triggerID)
}

// WorkflowName returns the full resource name of a workflow destination.
func WorkflowName(projectID, location, workflowID string) string {
	return fmt.Sprintf("%s/workflows/%s", LocationParent(projectID, location), workflowID)
}
