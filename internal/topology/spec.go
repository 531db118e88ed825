package topology

// Kind identifies the resource kinds busway reconciles.
type Kind string

const (
	// KindAPIs is the service enablement node every topology starts with.
	KindAPIs Kind = "apis"
	// KindMessageBus is the central routing bus.
	KindMessageBus Kind = "bus"
	// KindGoogleAPISource binds built-in provider events into the bus.
	KindGoogleAPISource Kind = "source"
	// KindPipeline is a processing and delivery unit.
	KindPipeline Kind = "pipeline"
	// KindEnrollment binds the bus to one pipeline under a match expression.
	KindEnrollment Kind = "enrollment"
	// KindTrigger is a standard trigger outside the bus subgraph.
	KindTrigger Kind = "trigger"
)

// ResourceSpec is one node of the expanded topology: a desired resource
// tagged by kind, correlated back to the declarative entry that produced
// it. Exactly one payload field matching Kind is populated.
type ResourceSpec struct {
	Kind Kind

	// ID is the caller-supplied resource identifier within its kind.
	// Empty for the service enablement node, which has no identity of
	// its own.
	ID string

	// EntryKey is the advanced_pipelines or standard_triggers map key
	// the spec was expanded from. Empty for scope-level resources.
	EntryKey string

	Project  string
	Location string
	Labels   map[string]string

	APIs       []string
	Bus        *BusSpec
	Source     *SourceSpec
	Pipeline   *PipelineSpec
	Enrollment *EnrollmentSpec
	Trigger    *TriggerSpec
}

// NodeID returns the graph vertex identifier for the spec. The service
// enablement node is a singleton and is identified by its kind alone.
func (s *ResourceSpec) NodeID() string {
	if s.Kind == KindAPIs {
		return string(KindAPIs)
	}
	return string(s.Kind) + "/" + s.ID
}

// BusSpec carries the message bus attributes busway manages.
type BusSpec struct {
	CryptoKeyName string
	LogSeverity   string
}

// SourceSpec carries the google-api source attributes.
type SourceSpec struct {
	// BusID is the bus the source publishes into.
	BusID string
}

// PipelineSpec carries the pipeline attributes.
type PipelineSpec struct {
	Destination PipelineDestination
	LogSeverity string
}

// EnrollmentSpec carries the enrollment attributes.
type EnrollmentSpec struct {
	BusID      string
	PipelineID string
	CELMatch   string
}

// TriggerSpec carries the standard trigger attributes.
type TriggerSpec struct {
	MatchingCriteria     []MatchingCriterion
	Destination          TriggerDestination
	TransportPubSubTopic string
	ServiceAccount       string
}
