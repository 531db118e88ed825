// Package gcp implements the cloud resource clients the reconciler
// drives: one client per Eventarc resource kind, plus service enablement
// and a project preflight. Default implementations wrap the Eventarc v1
// REST surface, Service Usage v1, and the Resource Manager v3 client;
// every failure is classified for the retry policy before it is returned.
package gcp

import (
	"context"
	"fmt"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"google.golang.org/api/eventarc/v1"
	"google.golang.org/api/serviceusage/v1"

	"github.com/busway/busway/internal/topology"
)

// State is the live or desired digest of one resource: its full name
// plus the managed fields flattened to comparable form. Two states with
// equal Fields need no update.
type State struct {
	// Name is the full resource name.
	Name string
	// Fields holds the managed field values, keyed by stable paths.
	// Only fields the spec manages appear; server-set fields do not.
	Fields map[string]string
}

// ResourceClient converges one resource kind against the live API.
type ResourceClient interface {
	// Desired returns the digest the spec asks for.
	Desired(spec *topology.ResourceSpec) *State

	// Get fetches the live digest restricted to the spec's managed
	// fields. found is false when the resource does not exist.
	Get(ctx context.Context, spec *topology.ResourceSpec) (live *State, found bool, err error)

	// Create creates the resource and waits for the operation. Returns
	// the full resource name.
	Create(ctx context.Context, spec *topology.ResourceSpec) (string, error)

	// Update patches the managed fields and waits for the operation.
	// Returns the full resource name.
	Update(ctx context.Context, spec *topology.ResourceSpec) (string, error)

	// Delete removes the resource by full name and waits for the
	// operation. Deleting an absent resource is an error classified
	// not-found.
	Delete(ctx context.Context, name string) error

	// List returns the full names of resources of this kind in the
	// scope that carry the managed-by label.
	List(ctx context.Context, projectID, location string) ([]string, error)
}

// ServiceUsageClient ensures the required APIs are active.
type ServiceUsageClient interface {
	// EnabledServices returns the service IDs currently enabled on the
	// project.
	EnabledServices(ctx context.Context, projectID string) (map[string]bool, error)

	// EnableServices enables the given service IDs and waits for the
	// batch operation to complete.
	EnableServices(ctx context.Context, projectID string, services []string) error
}

// Project describes the reconciliation scope's project.
type Project struct {
	ID     string
	Name   string
	Number string
}

// ProjectClient resolves the target project before reconciliation.
type ProjectClient interface {
	// GetProject returns the project, failing with a not-found class
	// when it does not exist or is invisible to the caller.
	GetProject(ctx context.Context, projectID string) (*Project, error)
}

// Clients bundles every client surface the reconciler needs. Fields are
// interfaces so tests can substitute mocks per kind.
type Clients struct {
	Bus          ResourceClient
	Pipeline     ResourceClient
	Enrollment   ResourceClient
	Source       ResourceClient
	Trigger      ResourceClient
	ServiceUsage ServiceUsageClient
	Projects     ProjectClient

	projectsConn *resourcemanager.ProjectsClient
}

// ForKind returns the resource client handling the given topology kind,
// or nil for the service enablement kind, which has no resource client.
func (c *Clients) ForKind(kind topology.Kind) ResourceClient {
	switch kind {
	case topology.KindMessageBus:
		return c.Bus
	case topology.KindPipeline:
		return c.Pipeline
	case topology.KindEnrollment:
		return c.Enrollment
	case topology.KindGoogleAPISource:
		return c.Source
	case topology.KindTrigger:
		return c.Trigger
	default:
		return nil
	}
}

// NewClients builds the default GCP-backed client set using application
// default credentials.
func NewClients(ctx context.Context) (*Clients, error) {
	eventarcSvc, err := eventarc.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create eventarc service: %w", err)
	}

	serviceUsageSvc, err := serviceusage.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create service usage service: %w", err)
	}

	projectsClient, err := resourcemanager.NewProjectsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create resource manager client: %w", err)
	}

	return &Clients{
		Bus:          &defaultBusClient{service: eventarcSvc},
		Pipeline:     &defaultPipelineClient{service: eventarcSvc},
		Enrollment:   &defaultEnrollmentClient{service: eventarcSvc},
		Source:       &defaultSourceClient{service: eventarcSvc},
		Trigger:      &defaultTriggerClient{service: eventarcSvc},
		ServiceUsage: &defaultServiceUsageClient{service: serviceUsageSvc},
		Projects:     &defaultProjectClient{client: projectsClient},
		projectsConn: projectsClient,
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *Clients) Close() error {
	if c.projectsConn != nil {
		return c.projectsConn.Close()
	}
	return nil
}
