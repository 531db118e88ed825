package constants

import "time"

const (
	// DefaultRegion is the default GCP region used when no location is specified.
	DefaultRegion = "us-central1"

	// OperationPollInterval is the interval at which to poll Eventarc
	// long-running operations for completion.
	OperationPollInterval = 2 * time.Second

	// OperationTimeout is the maximum time to wait for an Eventarc
	// long-running operation to complete.
	OperationTimeout = 5 * time.Minute

	// ServicePollInterval is the interval at which to poll service
	// enablement operations.
	ServicePollInterval = 2 * time.Second

	// ServiceEnableTimeout is the maximum time to wait for API enablement
	// to complete across all requested services.
	ServiceEnableTimeout = 4 * time.Minute
)

// EventarcService is the service identifier of the Eventarc API.
const EventarcService = "eventarc.googleapis.com"

// EventarcPublishingService is the service identifier of the Eventarc
// publishing API. Message buses reject events until it is enabled.
const EventarcPublishingService = "eventarcpublishing.googleapis.com"

// PubSubService is the service identifier of the Pub/Sub API. Standard
// triggers transport events over Pub/Sub topics.
const PubSubService = "pubsub.googleapis.com"

// RequiredServices are the APIs every topology needs enabled before
// reconciliation can touch Eventarc resources.
var RequiredServices = []string{
	EventarcService,
	EventarcPublishingService,
	PubSubService,
}
