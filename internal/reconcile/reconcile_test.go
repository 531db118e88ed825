package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/busway/busway/internal/errors"
	"github.com/busway/busway/internal/gcp"
	gcpconstants "github.com/busway/busway/internal/gcp/constants"
	"github.com/busway/busway/internal/topology"
)

// fakeCloud is the shared backing store for the per-kind fake clients.
// It records every call and serves scripted failures per operation key
// ("create pipeline/p-audit", "get bus/central-bus", ...).
type fakeCloud struct {
	mu       sync.Mutex
	live     map[string]*gcp.State
	calls    []string
	failures map[string][]error
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		live:     make(map[string]*gcp.State),
		failures: make(map[string][]error),
	}
}

// failWith queues errors for an operation key, consumed one per call.
func (f *fakeCloud) failWith(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

func (f *fakeCloud) takeFailureLocked(op string) error {
	queue := f.failures[op]
	if len(queue) == 0 {
		return nil
	}
	f.failures[op] = queue[1:]
	return queue[0]
}

func (f *fakeCloud) recordLocked(call string) {
	f.calls = append(f.calls, call)
}

// seed marks a spec's resource as already existing in its desired form.
func (f *fakeCloud) seed(specs ...*topology.ResourceSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, spec := range specs {
		state := desiredState(spec)
		f.live[state.Name] = state
	}
}

func (f *fakeCloud) callsMatching(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []string
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			matched = append(matched, call)
		}
	}
	return matched
}

// writes returns the mutating calls in order.
func (f *fakeCloud) writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var writes []string
	for _, call := range f.calls {
		if strings.HasPrefix(call, "create ") ||
			strings.HasPrefix(call, "update ") ||
			strings.HasPrefix(call, "delete ") ||
			strings.HasPrefix(call, "enable ") {
			writes = append(writes, call)
		}
	}
	return writes
}

func desiredState(spec *topology.ResourceSpec) *gcp.State {
	return &gcp.State{
		Name:   resourceName(spec),
		Fields: map[string]string{"rev": "v1"},
	}
}

func resourceName(spec *topology.ResourceSpec) string {
	switch spec.Kind {
	case topology.KindMessageBus:
		return gcp.BusName(spec.Project, spec.Location, spec.ID)
	case topology.KindPipeline:
		return gcp.PipelineName(spec.Project, spec.Location, spec.ID)
	case topology.KindEnrollment:
		return gcp.EnrollmentName(spec.Project, spec.Location, spec.ID)
	case topology.KindGoogleAPISource:
		return gcp.SourceName(spec.Project, spec.Location, spec.ID)
	case topology.KindTrigger:
		return gcp.TriggerName(spec.Project, spec.Location, spec.ID)
	}
	return ""
}

var kindSegments = map[topology.Kind]string{
	topology.KindMessageBus:      "messageBuses",
	topology.KindPipeline:        "pipelines",
	topology.KindEnrollment:      "enrollments",
	topology.KindGoogleAPISource: "googleApiSources",
	topology.KindTrigger:         "triggers",
}

// fakeKindClient adapts the shared store to one resource kind.
type fakeKindClient struct {
	cloud *fakeCloud
	kind  topology.Kind
}

func (c *fakeKindClient) Desired(spec *topology.ResourceSpec) *gcp.State {
	return desiredState(spec)
}

func (c *fakeKindClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*gcp.State, bool, error) {
	c.cloud.mu.Lock()
	defer c.cloud.mu.Unlock()
	c.cloud.recordLocked("get " + spec.NodeID())
	if err := c.cloud.takeFailureLocked("get " + spec.NodeID()); err != nil {
		return nil, false, err
	}
	state, ok := c.cloud.live[resourceName(spec)]
	if !ok {
		return nil, false, nil
	}
	return &gcp.State{Name: state.Name, Fields: maps.Clone(state.Fields)}, true, nil
}

func (c *fakeKindClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	c.cloud.mu.Lock()
	defer c.cloud.mu.Unlock()
	c.cloud.recordLocked("create " + spec.NodeID())
	if err := c.cloud.takeFailureLocked("create " + spec.NodeID()); err != nil {
		return "", err
	}
	state := desiredState(spec)
	c.cloud.live[state.Name] = state
	return state.Name, nil
}

func (c *fakeKindClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	c.cloud.mu.Lock()
	defer c.cloud.mu.Unlock()
	c.cloud.recordLocked("update " + spec.NodeID())
	if err := c.cloud.takeFailureLocked("update " + spec.NodeID()); err != nil {
		return "", err
	}
	state := desiredState(spec)
	c.cloud.live[state.Name] = state
	return state.Name, nil
}

func (c *fakeKindClient) Delete(ctx context.Context, name string) error {
	c.cloud.mu.Lock()
	defer c.cloud.mu.Unlock()
	c.cloud.recordLocked("delete " + name)
	if err := c.cloud.takeFailureLocked("delete " + name); err != nil {
		return err
	}
	delete(c.cloud.live, name)
	return nil
}

func (c *fakeKindClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	c.cloud.mu.Lock()
	defer c.cloud.mu.Unlock()
	c.cloud.recordLocked("list " + string(c.kind))
	if err := c.cloud.takeFailureLocked("list " + string(c.kind)); err != nil {
		return nil, err
	}
	var names []string
	for name := range c.cloud.live {
		if strings.Contains(name, "/"+kindSegments[c.kind]+"/") {
			names = append(names, name)
		}
	}
	return names, nil
}

type fakeServiceUsage struct {
	cloud   *fakeCloud
	enabled map[string]bool
}

func (s *fakeServiceUsage) EnabledServices(ctx context.Context, projectID string) (map[string]bool, error) {
	s.cloud.mu.Lock()
	defer s.cloud.mu.Unlock()
	s.cloud.recordLocked("list-services " + projectID)
	if err := s.cloud.takeFailureLocked("list-services " + projectID); err != nil {
		return nil, err
	}
	return maps.Clone(s.enabled), nil
}

func (s *fakeServiceUsage) EnableServices(ctx context.Context, projectID string, services []string) error {
	s.cloud.mu.Lock()
	defer s.cloud.mu.Unlock()
	s.cloud.recordLocked("enable " + strings.Join(services, ","))
	if err := s.cloud.takeFailureLocked("enable"); err != nil {
		return err
	}
	for _, service := range services {
		s.enabled[service] = true
	}
	return nil
}

type fakeProjects struct {
	err error
}

func (p *fakeProjects) GetProject(ctx context.Context, projectID string) (*gcp.Project, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &gcp.Project{ID: projectID, Name: projectID, Number: "123456789012"}, nil
}

// testFixture bundles the engine with its fakes. The sleep hook records
// backoff delays instead of waiting them out.
type testFixture struct {
	cloud    *fakeCloud
	services *fakeServiceUsage
	projects *fakeProjects
	engine   *Engine

	delayMu sync.Mutex
	delays  []time.Duration
}

func newTestFixture() *testFixture {
	cloud := newFakeCloud()
	enabled := make(map[string]bool)
	for _, service := range gcpconstants.RequiredServices {
		enabled[service] = true
	}
	fixture := &testFixture{
		cloud:    cloud,
		services: &fakeServiceUsage{cloud: cloud, enabled: enabled},
		projects: &fakeProjects{},
	}

	clients := &gcp.Clients{
		Bus:          &fakeKindClient{cloud: cloud, kind: topology.KindMessageBus},
		Pipeline:     &fakeKindClient{cloud: cloud, kind: topology.KindPipeline},
		Enrollment:   &fakeKindClient{cloud: cloud, kind: topology.KindEnrollment},
		Source:       &fakeKindClient{cloud: cloud, kind: topology.KindGoogleAPISource},
		Trigger:      &fakeKindClient{cloud: cloud, kind: topology.KindTrigger},
		ServiceUsage: fixture.services,
		Projects:     fixture.projects,
	}

	fixture.engine = New(clients, slog.New(slog.NewTextHandler(io.Discard, nil)))
	fixture.engine.sleep = func(ctx context.Context, delay time.Duration) error {
		fixture.delayMu.Lock()
		defer fixture.delayMu.Unlock()
		fixture.delays = append(fixture.delays, delay)
		return nil
	}
	return fixture
}

func (f *testFixture) recordedDelays() []time.Duration {
	f.delayMu.Lock()
	defer f.delayMu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

func testDoc() *topology.Document {
	doc := &topology.Document{
		ProjectID:              "acme-prod",
		Region:                 "us-central1",
		BusID:                  "central-bus",
		EnableStandardTriggers: true,
		AdvancedPipelines: map[string]topology.PipelineEntry{
			"audit": {
				PipelineID:   "p-audit",
				EnrollmentID: "e-audit",
				CELMatch:     `message.type == "audit"`,
				Destination: topology.PipelineDestination{
					Type: topology.DestinationHTTPEndpoint,
					URI:  "https://audit.example.com/events",
				},
			},
			"orders": {
				PipelineID:   "p-orders",
				EnrollmentID: "e-orders",
				CELMatch:     `message.type == "orders"`,
				Destination: topology.PipelineDestination{
					Type: topology.DestinationHTTPEndpoint,
					URI:  "https://orders.example.com/events",
				},
			},
		},
		StandardTriggers: map[string]topology.TriggerEntry{
			"legacy": {
				Name: "legacy-trigger",
				MatchingCriteria: []topology.MatchingCriterion{
					{Attribute: "type", Value: "google.cloud.audit.log.v1.written"},
				},
				Destination: topology.TriggerDestination{
					Type:            topology.TriggerDestinationCloudRun,
					CloudRunService: "audit-sink",
					CloudRunRegion:  "us-central1",
				},
				ServiceAccount: "trigger-sa@acme-prod.iam.gserviceaccount.com",
			},
		},
	}
	doc.ApplyDefaults()
	return doc
}

func resultByNode(t *testing.T, report *Report, node string) NodeResult {
	t.Helper()
	for _, result := range report.Results {
		if result.Node == node {
			return result
		}
	}
	t.Fatalf("node %s not in report", node)
	return NodeResult{}
}

func TestApply_CreatesMissingTopology(t *testing.T) {
	fixture := newTestFixture()

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	require.Len(t, result.Report.Results, 8)
	for _, node := range result.Report.Results {
		assert.Equal(t, StateConverged, node.State, "node %s", node.Node)
		if node.Kind == topology.KindAPIs {
			assert.Equal(t, ActionNone, node.Action)
			continue
		}
		assert.Equal(t, ActionCreate, node.Action, "node %s", node.Node)
		assert.Equal(t, 1, node.Attempts, "node %s", node.Node)
	}

	// Creates respect dependency order.
	writes := fixture.cloud.writes()
	index := func(call string) int {
		for i, write := range writes {
			if write == call {
				return i
			}
		}
		t.Fatalf("write %q not recorded in %v", call, writes)
		return -1
	}
	assert.Less(t, index("create bus/central-bus"), index("create pipeline/p-audit"))
	assert.Less(t, index("create bus/central-bus"), index("create source/google-api-source"))
	assert.Less(t, index("create pipeline/p-audit"), index("create enrollment/e-audit"))
	assert.Less(t, index("create pipeline/p-orders"), index("create enrollment/e-orders"))

	outputs := result.Outputs
	assert.Equal(t, "123456789012", outputs.ProjectNumber)
	assert.Equal(t, "projects/acme-prod/locations/us-central1/messageBuses/central-bus", outputs.BusName)
	assert.Equal(t, "projects/acme-prod/locations/us-central1/pipelines/p-audit", outputs.PipelineNames["audit"])
	assert.Equal(t, "projects/acme-prod/locations/us-central1/enrollments/e-orders", outputs.EnrollmentNames["orders"])
	assert.Equal(t, "projects/acme-prod/locations/us-central1/triggers/legacy-trigger", outputs.TriggerNames["legacy"])
	require.NotNil(t, outputs.GoogleAPISourceName)
	assert.Equal(t, "projects/acme-prod/locations/us-central1/googleApiSources/google-api-source", *outputs.GoogleAPISourceName)
}

func TestApply_IdempotentWhenConverged(t *testing.T) {
	fixture := newTestFixture()
	doc := testDoc()
	fixture.cloud.seed(topology.Expand(doc)[1:]...)

	result, err := fixture.engine.Apply(context.Background(), doc, Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	assert.Empty(t, fixture.cloud.writes())
	assert.False(t, result.Report.Changed())
	for _, node := range result.Report.Results {
		assert.Equal(t, StateConverged, node.State)
		assert.Equal(t, ActionNone, node.Action)
	}
}

func TestApply_UpdatesDriftedResource(t *testing.T) {
	fixture := newTestFixture()
	doc := testDoc()
	specs := topology.Expand(doc)
	fixture.cloud.seed(specs[1:]...)

	// Drift one pipeline out from under the document.
	fixture.cloud.mu.Lock()
	fixture.cloud.live["projects/acme-prod/locations/us-central1/pipelines/p-audit"].Fields["rev"] = "v0"
	fixture.cloud.mu.Unlock()

	result, err := fixture.engine.Apply(context.Background(), doc, Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	assert.Equal(t, []string{"update pipeline/p-audit"}, fixture.cloud.writes())
	assert.Equal(t, ActionUpdate, resultByNode(t, result.Report, "pipeline/p-audit").Action)
	assert.Equal(t, ActionNone, resultByNode(t, result.Report, "pipeline/p-orders").Action)
}

func TestApply_FailureBlocksOnlyDependents(t *testing.T) {
	fixture := newTestFixture()
	boom := apperrors.NewPermanent("create pipeline", errors.New("quota exceeded"))
	fixture.cloud.failWith("create pipeline/p-audit", boom)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)

	failed := resultByNode(t, result.Report, "pipeline/p-audit")
	assert.Equal(t, StateFailed, failed.State)
	assert.Equal(t, 1, failed.Attempts)
	assert.ErrorIs(t, failed.Err, boom)

	blocked := resultByNode(t, result.Report, "enrollment/e-audit")
	assert.Equal(t, StateBlocked, blocked.State)
	var blockedErr *apperrors.BlockedError
	require.ErrorAs(t, blocked.Err, &blockedErr)
	assert.Equal(t, "pipeline/p-audit", blockedErr.Dependency)

	// The sibling pair and the rest of the graph still converge.
	assert.Equal(t, StateConverged, resultByNode(t, result.Report, "pipeline/p-orders").State)
	assert.Equal(t, StateConverged, resultByNode(t, result.Report, "enrollment/e-orders").State)
	assert.Equal(t, StateConverged, resultByNode(t, result.Report, "bus/central-bus").State)
	assert.Equal(t, StateConverged, resultByNode(t, result.Report, "trigger/legacy-trigger").State)

	// Blocked nodes never reach the client.
	assert.Empty(t, fixture.cloud.callsMatching("get enrollment/e-audit"))
	assert.Empty(t, fixture.cloud.callsMatching("create enrollment/e-audit"))

	require.Error(t, result.Report.Err())
	assert.Contains(t, result.Report.Err().Error(), "pipeline/p-audit")
	assert.NotContains(t, result.Report.Err().Error(), "enrollment/e-audit")
}

func TestApply_RetriesTransientUntilSuccess(t *testing.T) {
	fixture := newTestFixture()
	transient := apperrors.NewTransient("create message bus", errors.New("unavailable"))
	fixture.cloud.failWith("create bus/central-bus", transient, transient)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	bus := resultByNode(t, result.Report, "bus/central-bus")
	assert.Equal(t, StateConverged, bus.State)
	assert.Equal(t, 3, bus.Attempts)

	delays := fixture.recordedDelays()
	require.Len(t, delays, 2)
	assert.GreaterOrEqual(t, delays[0], 250*time.Millisecond)
	assert.Less(t, delays[0], 500*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 500*time.Millisecond)
	assert.Less(t, delays[1], 1000*time.Millisecond)
}

func TestApply_PermanentErrorNotRetried(t *testing.T) {
	fixture := newTestFixture()
	boom := apperrors.NewPermanent("create message bus", errors.New("invalid argument"))
	fixture.cloud.failWith("create bus/central-bus", boom)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)

	bus := resultByNode(t, result.Report, "bus/central-bus")
	assert.Equal(t, StateFailed, bus.State)
	assert.Equal(t, 1, bus.Attempts)
	assert.Empty(t, fixture.recordedDelays())
}

func TestApply_TransientFailureStopsAtAttemptCap(t *testing.T) {
	fixture := newTestFixture()
	transient := apperrors.NewTransient("create message bus", errors.New("unavailable"))
	fixture.cloud.failWith("create bus/central-bus", transient, transient, transient, transient)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{MaxAttempts: 3})
	require.NoError(t, err)

	bus := resultByNode(t, result.Report, "bus/central-bus")
	assert.Equal(t, StateFailed, bus.State)
	assert.Equal(t, 3, bus.Attempts)
	assert.Len(t, fixture.recordedDelays(), 2)
}

func TestApply_ConflictIsRetryable(t *testing.T) {
	fixture := newTestFixture()
	conflict := apperrors.NewConflict("create message bus", errors.New("operation in progress"))
	fixture.cloud.failWith("create bus/central-bus", conflict)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())
	assert.Equal(t, 2, resultByNode(t, result.Report, "bus/central-bus").Attempts)
}

func TestApply_CancellationMarksUnstartedCancelled(t *testing.T) {
	fixture := newTestFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run while the bus create is in flight. Everything
	// downstream must end Cancelled, not Blocked.
	busCreateStarted := make(chan struct{})
	fixture.engine.clients.Bus = &gateClient{
		inner:   fixture.engine.clients.Bus,
		started: busCreateStarted,
	}
	go func() {
		<-busCreateStarted
		cancel()
	}()

	result, err := fixture.engine.Apply(ctx, testDoc(), Options{Parallelism: 1})
	require.NoError(t, err)

	assert.Equal(t, StateConverged, resultByNode(t, result.Report, "apis").State)
	for _, node := range []string{
		"bus/central-bus", "trigger/legacy-trigger",
		"source/google-api-source",
		"pipeline/p-audit", "enrollment/e-audit",
		"pipeline/p-orders", "enrollment/e-orders",
	} {
		nodeResult := resultByNode(t, result.Report, node)
		assert.Equal(t, StateCancelled, nodeResult.State, "node %s", node)
		assert.ErrorIs(t, nodeResult.Err, context.Canceled, "node %s", node)
	}

	// Nothing failed, so the report carries no process error.
	require.NoError(t, result.Report.Err())
}

// gateClient wraps a resource client and signals when Create is entered,
// then waits for the context to settle before delegating.
type gateClient struct {
	inner   gcp.ResourceClient
	started chan struct{}
	once    sync.Once
}

func (g *gateClient) Desired(spec *topology.ResourceSpec) *gcp.State {
	return g.inner.Desired(spec)
}

func (g *gateClient) Get(ctx context.Context, spec *topology.ResourceSpec) (*gcp.State, bool, error) {
	return g.inner.Get(ctx, spec)
}

func (g *gateClient) Create(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	g.once.Do(func() { close(g.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

func (g *gateClient) Update(ctx context.Context, spec *topology.ResourceSpec) (string, error) {
	return g.inner.Update(ctx, spec)
}

func (g *gateClient) Delete(ctx context.Context, name string) error {
	return g.inner.Delete(ctx, name)
}

func (g *gateClient) List(ctx context.Context, projectID, location string) ([]string, error) {
	return g.inner.List(ctx, projectID, location)
}

func TestApply_EnablesOnlyMissingServices(t *testing.T) {
	fixture := newTestFixture()
	delete(fixture.services.enabled, gcpconstants.PubSubService)

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	assert.Equal(t, ActionCreate, resultByNode(t, result.Report, "apis").Action)
	assert.Equal(t, []string{"enable " + gcpconstants.PubSubService}, fixture.cloud.callsMatching("enable "))
}

func TestApply_ProjectPreflightFailureAbortsRun(t *testing.T) {
	fixture := newTestFixture()
	fixture.projects.err = apperrors.NewNotFound("get project", errors.New("project acme-prod not found"))

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, fixture.cloud.calls)
}

func TestApply_SequentialOrderIsReproducible(t *testing.T) {
	fixture := newTestFixture()

	result, err := fixture.engine.Apply(context.Background(), testDoc(), Options{Parallelism: 1})
	require.NoError(t, err)
	require.NoError(t, result.Report.Err())

	// One worker drains the ready queue in enqueue order: each settled
	// node releases its dependents in insertion order, so runs repeat
	// the same dependency-safe sequence every time.
	assert.Equal(t, []string{
		"create bus/central-bus",
		"create trigger/legacy-trigger",
		"create source/google-api-source",
		"create pipeline/p-audit",
		"create pipeline/p-orders",
		"create enrollment/e-audit",
		"create enrollment/e-orders",
	}, fixture.cloud.writes())
}

func TestPlan_ComputesActionsWithoutWrites(t *testing.T) {
	fixture := newTestFixture()
	doc := testDoc()
	specs := topology.Expand(doc)

	// Bus exists in desired form, one pipeline drifted, the rest absent.
	fixture.cloud.seed(specs[1], specs[3])
	fixture.cloud.mu.Lock()
	fixture.cloud.live["projects/acme-prod/locations/us-central1/pipelines/p-audit"].Fields["rev"] = "v0"
	fixture.cloud.mu.Unlock()

	report, err := fixture.engine.Plan(context.Background(), doc, Options{})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Empty(t, fixture.cloud.writes())
	assert.True(t, report.Changed())
	assert.Equal(t, ActionNone, resultByNode(t, report, "bus/central-bus").Action)
	assert.Equal(t, ActionUpdate, resultByNode(t, report, "pipeline/p-audit").Action)
	assert.Equal(t, ActionCreate, resultByNode(t, report, "pipeline/p-orders").Action)
	assert.Equal(t, ActionCreate, resultByNode(t, report, "enrollment/e-audit").Action)
}
