package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/eventarc/v1"
	"google.golang.org/grpc/codes"

	appconstants "github.com/busway/busway/internal/constants"
	apperrors "github.com/busway/busway/internal/errors"
	"github.com/busway/busway/internal/gcp/constants"
	"github.com/busway/busway/internal/topology"
)

// labelFields copies the managed label keys into a digest. Labels on the
// live resource outside the managed set are ignored.
func labelFields(fields map[string]string, managed, actual map[string]string) {
	for key := range managed {
		fields["labels."+key] = actual[key]
	}
}

// managedResource reports whether the labels mark a resource as created
// by this tool.
func managedResource(labels map[string]string) bool {
	return labels[appconstants.ResourceManagedByLabelKey] == appconstants.ProjectName
}

// waitForOperation polls a long-running operation until it completes,
// the poll window closes, or the context is done.
func waitForOperation(
	ctx context.Context,
	service *eventarc.Service,
	op *eventarc.GoogleLongrunningOperation,
	action string,
) error {
	if op.Done {
		return operationResult(op, action)
	}

	ticker := time.NewTicker(constants.OperationPollInterval)
	defer ticker.Stop()

	timeout := time.After(constants.OperationTimeout)

	for {
		select {
		case <-ctx.Done():
			return classify(action, ctx.Err())
		case <-timeout:
			return apperrors.NewTransient(action, fmt.Errorf("timed out waiting for operation %s", op.Name))
		case <-ticker.C:
			current, err := service.Projects.Locations.Operations.Get(op.Name).Context(ctx).Do()
			if err != nil {
				return classify(action, err)
			}
			if current.Done {
				return operationResult(current, action)
			}
		}
	}
}

// operationResult maps a completed operation onto the error classes.
func operationResult(op *eventarc.GoogleLongrunningOperation, action string) error {
	if op.Error == nil {
		return nil
	}
	err := fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message)
	return classifyCode(action, codes.Code(op.Error.Code), err)
}

// defaultBusClient converges message buses.
type defaultBusClient struct {
	service *eventarc.Service
}

func (c *defaultBusClient) Desired(spec *topology.ResourceSpec) *State {
	return &State{
		Name:   BusName(spec.Project, spec.Location, spec.ID),
		Fields: busFields(spec, busFromSpec(spec)),
	}
}

func (c *defaultBusClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*State, bool, error) {
	name := BusName(spec.Project, spec.Location, spec.ID)
	bus, err := c.service.Projects.Locations.MessageBuses.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get message bus", err)
	}
	return &State{Name: bus.Name, Fields: busFields(spec, bus)}, true, nil
}

func (c *defaultBusClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	parent := LocationParent(spec.Project, spec.Location)
	op, err := c.service.Projects.Locations.MessageBuses.
		Create(parent, busFromSpec(spec)).
		MessageBusId(spec.ID).
		Context(ctx).Do()
	if err != nil {
		return "", classify("create message bus", err)
	}
	if err := waitForOperation(ctx, c.service, op, "create message bus"); err != nil {
		return "", err
	}
	return BusName(spec.Project, spec.Location, spec.ID), nil
}

func (c *defaultBusClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	name := BusName(spec.Project, spec.Location, spec.ID)
	op, err := c.service.Projects.Locations.MessageBuses.
		Patch(name, busFromSpec(spec)).
		UpdateMask(busUpdateMask(spec)).
		Context(ctx).Do()
	if err != nil {
		return "", classify("update message bus", err)
	}
	if err := waitForOperation(ctx, c.service, op, "update message bus"); err != nil {
		return "", err
	}
	return name, nil
}

func (c *defaultBusClient) Delete(ctx context.Context, name string) error {
	op, err := c.service.Projects.Locations.MessageBuses.Delete(name).Context(ctx).Do()
	if err != nil {
		return classify("delete message bus", err)
	}
	return waitForOperation(ctx, c.service, op, "delete message bus")
}

func (c *defaultBusClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	parent := LocationParent(projectID, location)
	var names []string
	err := c.service.Projects.Locations.MessageBuses.List(parent).
		Pages(ctx, func(resp *eventarc.ListMessageBusesResponse) error {
			for _, bus := range resp.MessageBuses {
				if managedResource(bus.Labels) {
					names = append(names, bus.Name)
				}
			}
			return nil
		})
	if err != nil {
		return nil, classify("list message buses", err)
	}
	return names, nil
}

// busFields digests the managed fields of a message bus. Desired and
// live states go through the same digest so a comparison covers exactly
// the managed set and nothing the server fills in on its own.
func busFields(spec *topology.ResourceSpec, bus *eventarc.MessageBus) map[string]string {
	fields := map[string]string{
		"crypto_key_name": bus.CryptoKeyName,
	}
	if spec.Bus.LogSeverity != "" {
		fields["log_severity"] = ""
		if bus.LoggingConfig != nil {
			fields["log_severity"] = bus.LoggingConfig.LogSeverity
		}
	}
	labelFields(fields, spec.Labels, bus.Labels)
	return fields
}

func busFromSpec(spec *topology.ResourceSpec) *eventarc.MessageBus {
	bus := &eventarc.MessageBus{
		CryptoKeyName: spec.Bus.CryptoKeyName,
		Labels:        spec.Labels,
	}
	if spec.Bus.LogSeverity != "" {
		bus.LoggingConfig = &eventarc.LoggingConfig{LogSeverity: spec.Bus.LogSeverity}
	}
	return bus
}

func busUpdateMask(spec *topology.ResourceSpec) string {
	mask := "labels,cryptoKeyName"
	if spec.Bus.LogSeverity != "" {
		mask += ",loggingConfig"
	}
	return mask
}

// defaultPipelineClient converges pipelines.
type defaultPipelineClient struct {
	service *eventarc.Service
}

func (c *defaultPipelineClient) Desired(spec *topology.ResourceSpec) *State {
	return &State{
		Name:   PipelineName(spec.Project, spec.Location, spec.ID),
		Fields: pipelineFields(spec, pipelineFromSpec(spec)),
	}
}

func (c *defaultPipelineClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*State, bool, error) {
	name := PipelineName(spec.Project, spec.Location, spec.ID)
	pipeline, err := c.service.Projects.Locations.Pipelines.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get pipeline", err)
	}
	return &State{Name: pipeline.Name, Fields: pipelineFields(spec, pipeline)}, true, nil
}

func (c *defaultPipelineClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	parent := LocationParent(spec.Project, spec.Location)
	op, err := c.service.Projects.Locations.Pipelines.
		Create(parent, pipelineFromSpec(spec)).
		PipelineId(spec.ID).
		Context(ctx).Do()
	if err != nil {
		return "", classify("create pipeline", err)
	}
	if err := waitForOperation(ctx, c.service, op, "create pipeline"); err != nil {
		return "", err
	}
	return PipelineName(spec.Project, spec.Location, spec.ID), nil
}

func (c *defaultPipelineClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	name := PipelineName(spec.Project, spec.Location, spec.ID)
	op, err := c.service.Projects.Locations.Pipelines.
		Patch(name, pipelineFromSpec(spec)).
		UpdateMask(pipelineUpdateMask(spec)).
		Context(ctx).Do()
	if err != nil {
		return "", classify("update pipeline", err)
	}
	if err := waitForOperation(ctx, c.service, op, "update pipeline"); err != nil {
		return "", err
	}
	return name, nil
}

func (c *defaultPipelineClient) Delete(ctx context.Context, name string) error {
	op, err := c.service.Projects.Locations.Pipelines.Delete(name).Context(ctx).Do()
	if err != nil {
		return classify("delete pipeline", err)
	}
	return waitForOperation(ctx, c.service, op, "delete pipeline")
}

func (c *defaultPipelineClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	parent := LocationParent(projectID, location)
	var names []string
	err := c.service.Projects.Locations.Pipelines.List(parent).
		Pages(ctx, func(resp *eventarc.ListPipelinesResponse) error {
			for _, pipeline := range resp.Pipelines {
				if managedResource(pipeline.Labels) {
					names = append(names, pipeline.Name)
				}
			}
			return nil
		})
	if err != nil {
		return nil, classify("list pipelines", err)
	}
	return names, nil
}

// pipelineFields digests the managed fields of a pipeline. Only the
// first destination is managed; the declared destination variant decides
// which keys take part in the comparison.
func pipelineFields(spec *topology.ResourceSpec, pipeline *eventarc.Pipeline) map[string]string {
	var live *eventarc.GoogleCloudEventarcV1PipelineDestination
	if len(pipeline.Destinations) > 0 {
		live = pipeline.Destinations[0]
	}

	fields := make(map[string]string)
	switch spec.Pipeline.Destination.Type {
	case topology.DestinationHTTPEndpoint:
		var uri, serviceAccount, audience string
		if live != nil {
			if live.HttpEndpoint != nil {
				uri = live.HttpEndpoint.Uri
			}
			if live.AuthenticationConfig != nil && live.AuthenticationConfig.GoogleOidc != nil {
				serviceAccount = live.AuthenticationConfig.GoogleOidc.ServiceAccount
				audience = live.AuthenticationConfig.GoogleOidc.Audience
			}
		}
		fields["destination.uri"] = uri
		fields["destination.oidc_service_account"] = serviceAccount
		fields["destination.oidc_audience"] = audience
	case topology.DestinationMessageBus:
		var messageBus string
		if live != nil {
			messageBus = live.MessageBus
		}
		fields["destination.message_bus"] = messageBus
	}
	if spec.Pipeline.LogSeverity != "" {
		fields["log_severity"] = ""
		if pipeline.LoggingConfig != nil {
			fields["log_severity"] = pipeline.LoggingConfig.LogSeverity
		}
	}
	labelFields(fields, spec.Labels, pipeline.Labels)
	return fields
}

func pipelineFromSpec(spec *topology.ResourceSpec) *eventarc.Pipeline {
	pipeline := &eventarc.Pipeline{
		Destinations: []*eventarc.GoogleCloudEventarcV1PipelineDestination{
			pipelineDestinationFromSpec(spec),
		},
		Labels: spec.Labels,
	}
	if spec.Pipeline.LogSeverity != "" {
		pipeline.LoggingConfig = &eventarc.LoggingConfig{LogSeverity: spec.Pipeline.LogSeverity}
	}
	return pipeline
}

func pipelineDestinationFromSpec(spec *topology.ResourceSpec) *eventarc.GoogleCloudEventarcV1PipelineDestination {
	dst := spec.Pipeline.Destination
	switch dst.Type {
	case topology.DestinationHTTPEndpoint:
		out := &eventarc.GoogleCloudEventarcV1PipelineDestination{
			HttpEndpoint: &eventarc.GoogleCloudEventarcV1PipelineDestinationHttpEndpoint{
				Uri: dst.URI,
			},
		}
		if dst.OIDCServiceAccount != "" {
			out.AuthenticationConfig = &eventarc.GoogleCloudEventarcV1PipelineDestinationAuthenticationConfig{
				GoogleOidc: &eventarc.GoogleCloudEventarcV1PipelineDestinationAuthenticationConfigOidcToken{
					ServiceAccount: dst.OIDCServiceAccount,
					Audience:       dst.OIDCAudience,
				},
			}
		}
		return out
	case topology.DestinationMessageBus:
		return &eventarc.GoogleCloudEventarcV1PipelineDestination{
			MessageBus: BusName(spec.Project, spec.Location, dst.MessageBusID),
		}
	default:
		return &eventarc.GoogleCloudEventarcV1PipelineDestination{}
	}
}

func pipelineUpdateMask(spec *topology.ResourceSpec) string {
	mask := "labels,destinations"
	if spec.Pipeline.LogSeverity != "" {
		mask += ",loggingConfig"
	}
	return mask
}

// defaultEnrollmentClient converges enrollments.
type defaultEnrollmentClient struct {
	service *eventarc.Service
}

func (c *defaultEnrollmentClient) Desired(spec *topology.ResourceSpec) *State {
	return &State{
		Name:   EnrollmentName(spec.Project, spec.Location, spec.ID),
		Fields: enrollmentFields(spec, enrollmentFromSpec(spec)),
	}
}

func (c *defaultEnrollmentClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*State, bool, error) {
	name := EnrollmentName(spec.Project, spec.Location, spec.ID)
	enrollment, err := c.service.Projects.Locations.Enrollments.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get enrollment", err)
	}
	return &State{Name: enrollment.Name, Fields: enrollmentFields(spec, enrollment)}, true, nil
}

func (c *defaultEnrollmentClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	parent := LocationParent(spec.Project, spec.Location)
	op, err := c.service.Projects.Locations.Enrollments.
		Create(parent, enrollmentFromSpec(spec)).
		EnrollmentId(spec.ID).
		Context(ctx).Do()
	if err != nil {
		return "", classify("create enrollment", err)
	}
	if err := waitForOperation(ctx, c.service, op, "create enrollment"); err != nil {
		return "", err
	}
	return EnrollmentName(spec.Project, spec.Location, spec.ID), nil
}

func (c *defaultEnrollmentClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	name := EnrollmentName(spec.Project, spec.Location, spec.ID)
	op, err := c.service.Projects.Locations.Enrollments.
		Patch(name, enrollmentFromSpec(spec)).
		UpdateMask("labels,celMatch,destination").
		Context(ctx).Do()
	if err != nil {
		return "", classify("update enrollment", err)
	}
	if err := waitForOperation(ctx, c.service, op, "update enrollment"); err != nil {
		return "", err
	}
	return name, nil
}

func (c *defaultEnrollmentClient) Delete(ctx context.Context, name string) error {
	op, err := c.service.Projects.Locations.Enrollments.Delete(name).Context(ctx).Do()
	if err != nil {
		return classify("delete enrollment", err)
	}
	return waitForOperation(ctx, c.service, op, "delete enrollment")
}

func (c *defaultEnrollmentClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	parent := LocationParent(projectID, location)
	var names []string
	err := c.service.Projects.Locations.Enrollments.List(parent).
		Pages(ctx, func(resp *eventarc.ListEnrollmentsResponse) error {
			for _, enrollment := range resp.Enrollments {
				if managedResource(enrollment.Labels) {
					names = append(names, enrollment.Name)
				}
			}
			return nil
		})
	if err != nil {
		return nil, classify("list enrollments", err)
	}
	return names, nil
}

func enrollmentFields(spec *topology.ResourceSpec, enrollment *eventarc.Enrollment) map[string]string {
	fields := map[string]string{
		"cel_match":   enrollment.CelMatch,
		"message_bus": enrollment.MessageBus,
		"destination": enrollment.Destination,
	}
	labelFields(fields, spec.Labels, enrollment.Labels)
	return fields
}

func enrollmentFromSpec(spec *topology.ResourceSpec) *eventarc.Enrollment {
	return &eventarc.Enrollment{
		CelMatch:    spec.Enrollment.CELMatch,
		MessageBus:  BusName(spec.Project, spec.Location, spec.Enrollment.BusID),
		Destination: PipelineName(spec.Project, spec.Location, spec.Enrollment.PipelineID),
		Labels:      spec.Labels,
	}
}

// defaultSourceClient converges google-api sources.
type defaultSourceClient struct {
	service *eventarc.Service
}

func (c *defaultSourceClient) Desired(spec *topology.ResourceSpec) *State {
	return &State{
		Name:   SourceName(spec.Project, spec.Location, spec.ID),
		Fields: sourceFields(spec, sourceFromSpec(spec)),
	}
}

func (c *defaultSourceClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*State, bool, error) {
	name := SourceName(spec.Project, spec.Location, spec.ID)
	source, err := c.service.Projects.Locations.GoogleApiSources.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get google-api source", err)
	}
	return &State{Name: source.Name, Fields: sourceFields(spec, source)}, true, nil
}

func (c *defaultSourceClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	parent := LocationParent(spec.Project, spec.Location)
	op, err := c.service.Projects.Locations.GoogleApiSources.
		Create(parent, sourceFromSpec(spec)).
		GoogleApiSourceId(spec.ID).
		Context(ctx).Do()
	if err != nil {
		return "", classify("create google-api source", err)
	}
	if err := waitForOperation(ctx, c.service, op, "create google-api source"); err != nil {
		return "", err
	}
	return SourceName(spec.Project, spec.Location, spec.ID), nil
}

func (c *defaultSourceClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	name := SourceName(spec.Project, spec.Location, spec.ID)
	op, err := c.service.Projects.Locations.GoogleApiSources.
		Patch(name, sourceFromSpec(spec)).
		UpdateMask("labels,destination").
		Context(ctx).Do()
	if err != nil {
		return "", classify("update google-api source", err)
	}
	if err := waitForOperation(ctx, c.service, op, "update google-api source"); err != nil {
		return "", err
	}
	return name, nil
}

func (c *defaultSourceClient) Delete(ctx context.Context, name string) error {
	op, err := c.service.Projects.Locations.GoogleApiSources.Delete(name).Context(ctx).Do()
	if err != nil {
		return classify("delete google-api source", err)
	}
	return waitForOperation(ctx, c.service, op, "delete google-api source")
}

func (c *defaultSourceClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	parent := LocationParent(projectID, location)
	var names []string
	err := c.service.Projects.Locations.GoogleApiSources.List(parent).
		Pages(ctx, func(resp *eventarc.ListGoogleApiSourcesResponse) error {
			for _, source := range resp.GoogleApiSources {
				if managedResource(source.Labels) {
					names = append(names, source.Name)
				}
			}
			return nil
		})
	if err != nil {
		return nil, classify("list google-api sources", err)
	}
	return names, nil
}

func sourceFields(spec *topology.ResourceSpec, source *eventarc.GoogleApiSource) map[string]string {
	fields := map[string]string{
		"destination": source.Destination,
	}
	labelFields(fields, spec.Labels, source.Labels)
	return fields
}

func sourceFromSpec(spec *topology.ResourceSpec) *eventarc.GoogleApiSource {
	return &eventarc.GoogleApiSource{
		Destination: BusName(spec.Project, spec.Location, spec.Source.BusID),
		Labels:      spec.Labels,
	}
}

// defaultTriggerClient converges standard triggers.
type defaultTriggerClient struct {
	service *eventarc.Service
}

func (c *defaultTriggerClient) Desired(spec *topology.ResourceSpec) *State {
	return &State{
		Name:   TriggerName(spec.Project, spec.Location, spec.ID),
		Fields: triggerFields(spec, triggerFromSpec(spec)),
	}
}

func (c *defaultTriggerClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*State, bool, error) {
	name := TriggerName(spec.Project, spec.Location, spec.ID)
	trigger, err := c.service.Projects.Locations.Triggers.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get trigger", err)
	}
	return &State{Name: trigger.Name, Fields: triggerFields(spec, trigger)}, true, nil
}

func (c *defaultTriggerClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	parent := LocationParent(spec.Project, spec.Location)
	op, err := c.service.Projects.Locations.Triggers.
		Create(parent, triggerFromSpec(spec)).
		TriggerId(spec.ID).
		Context(ctx).Do()
	if err != nil {
		return "", classify("create trigger", err)
	}
	if err := waitForOperation(ctx, c.service, op, "create trigger"); err != nil {
		return "", err
	}
	return TriggerName(spec.Project, spec.Location, spec.ID), nil
}

func (c *defaultTriggerClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	name := TriggerName(spec.Project, spec.Location, spec.ID)
	op, err := c.service.Projects.Locations.Triggers.
		Patch(name, triggerFromSpec(spec)).
		UpdateMask("labels,eventFilters,destination,serviceAccount").
		Context(ctx).Do()
	if err != nil {
		return "", classify("update trigger", err)
	}
	if err := waitForOperation(ctx, c.service, op, "update trigger"); err != nil {
		return "", err
	}
	return name, nil
}

func (c *defaultTriggerClient) Delete(ctx context.Context, name string) error {
	op, err := c.service.Projects.Locations.Triggers.Delete(name).Context(ctx).Do()
	if err != nil {
		return classify("delete trigger", err)
	}
	return waitForOperation(ctx, c.service, op, "delete trigger")
}

func (c *defaultTriggerClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	parent := LocationParent(projectID, location)
	var names []string
	err := c.service.Projects.Locations.Triggers.List(parent).
		Pages(ctx, func(resp *eventarc.ListTriggersResponse) error {
			for _, trigger := range resp.Triggers {
				if managedResource(trigger.Labels) {
					names = append(names, trigger.Name)
				}
			}
			return nil
		})
	if err != nil {
		return nil, classify("list triggers", err)
	}
	return names, nil
}

// triggerFields digests the managed fields of a trigger. The transport
// topic only takes part when the entry pins one, so a broker topic the
// service provisioned on its own never reads as drift.
func triggerFields(spec *topology.ResourceSpec, trigger *eventarc.Trigger) map[string]string {
	fields := map[string]string{
		"event_filters":   filtersDigest(trigger.EventFilters),
		"service_account": trigger.ServiceAccount,
	}

	switch spec.Trigger.Destination.Type {
	case topology.TriggerDestinationCloudRun:
		var service, region, path string
		if trigger.Destination != nil && trigger.Destination.CloudRun != nil {
			service = trigger.Destination.CloudRun.Service
			region = trigger.Destination.CloudRun.Region
			path = trigger.Destination.CloudRun.Path
		}
		fields["destination.cloud_run_service"] = service
		fields["destination.cloud_run_region"] = region
		fields["destination.cloud_run_path"] = path
	case topology.TriggerDestinationWorkflows:
		var workflow string
		if trigger.Destination != nil {
			workflow = trigger.Destination.Workflow
		}
		fields["destination.workflow"] = workflow
	case topology.TriggerDestinationHTTP:
		var uri string
		if trigger.Destination != nil && trigger.Destination.HttpEndpoint != nil {
			uri = trigger.Destination.HttpEndpoint.Uri
		}
		fields["destination.uri"] = uri
	}
	if spec.Trigger.TransportPubSubTopic != "" {
		var topic string
		if trigger.Transport != nil && trigger.Transport.Pubsub != nil {
			topic = trigger.Transport.Pubsub.Topic
		}
		fields["transport.pubsub_topic"] = topic
	}
	labelFields(fields, spec.Labels, trigger.Labels)
	return fields
}

func triggerFromSpec(spec *topology.ResourceSpec) *eventarc.Trigger {
	entry := spec.Trigger
	trigger := &eventarc.Trigger{
		EventFilters:   make([]*eventarc.EventFilter, 0, len(entry.MatchingCriteria)),
		ServiceAccount: entry.ServiceAccount,
		Destination:    &eventarc.Destination{},
		Labels:         spec.Labels,
	}

	// Criteria order is preserved verbatim. Routing treats the filter
	// list as ordered.
	for _, criterion := range entry.MatchingCriteria {
		trigger.EventFilters = append(trigger.EventFilters, &eventarc.EventFilter{
			Attribute: criterion.Attribute,
			Value:     criterion.Value,
		})
	}

	switch entry.Destination.Type {
	case topology.TriggerDestinationCloudRun:
		trigger.Destination.CloudRun = &eventarc.CloudRun{
			Service: entry.Destination.CloudRunService,
			Region:  entry.Destination.CloudRunRegion,
			Path:    entry.Destination.CloudRunPath,
		}
	case topology.TriggerDestinationWorkflows:
		trigger.Destination.Workflow = WorkflowName(spec.Project, spec.Location, entry.Destination.WorkflowID)
	case topology.TriggerDestinationHTTP:
		trigger.Destination.HttpEndpoint = &eventarc.HttpEndpoint{
			Uri: entry.Destination.URI,
		}
	}

	if entry.TransportPubSubTopic != "" {
		trigger.Transport = &eventarc.Transport{
			Pubsub: &eventarc.Pubsub{Topic: entry.TransportPubSubTopic},
		}
	}

	return trigger
}

// filtersDigest flattens an ordered filter list for comparison. Order is
// part of the digest.
func filtersDigest(filters []*eventarc.EventFilter) string {
	parts := make([]string, 0, len(filters))
	for _, filter := range filters {
		parts = append(parts, filter.Attribute+"="+filter.Value)
	}
	return strings.Join(parts, ";")
}
