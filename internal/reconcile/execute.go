package reconcile

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/busway/busway/internal/errors"
	"github.com/busway/busway/internal/graph"
	"github.com/busway/busway/internal/topology"
)

// execution is the mutable run state of one node. remaining is the
// unresolved predecessor count; the other fields are written by the
// owning worker or under the scheduler mutex.
type execution struct {
	spec      *topology.ResourceSpec
	node      string
	remaining atomic.Int64
	blockedBy string

	state    NodeState
	action   Action
	name     string
	attempts int
	err      error
}

// execute walks the graph with a bounded worker pool. A node is handed
// to a worker exactly when its last predecessor converges; predecessors
// that end any other way settle the node without client contact.
func (e *Engine) execute(
	ctx context.Context,
	dag *graph.DirectedAcyclicGraph[string],
	specs []*topology.ResourceSpec,
	opts Options,
	log *slog.Logger,
) *Report {
	// The builder only produces acyclic graphs.
	order, _ := dag.TopologicalSort()

	executions := make(map[string]*execution, len(specs))
	for _, spec := range specs {
		id := spec.NodeID()
		exec := &execution{spec: spec, node: id, state: StatePending, action: ActionNone}
		exec.remaining.Store(int64(len(dag.Vertices[id].DependsOn)))
		executions[id] = exec
	}

	var (
		mu        sync.Mutex
		unsettled = len(executions)
		done      = make(chan struct{})
		runnable  = make(chan *execution, len(executions))
	)

	// settleLocked records a terminal state and releases dependents. A
	// dependent whose last predecessor just settled either becomes
	// runnable, goes down with the run's cancellation, or inherits a
	// blocked state, cascading. Caller holds mu.
	var settleLocked func(exec *execution, state NodeState)
	settleLocked = func(exec *execution, state NodeState) {
		exec.state = state
		unsettled--
		if unsettled == 0 {
			close(done)
		}
		for _, id := range dag.Dependents(exec.node) {
			dependent := executions[id]
			if state != StateConverged && dependent.blockedBy == "" {
				dependent.blockedBy = exec.node
			}
			if dependent.remaining.Add(-1) > 0 {
				continue
			}
			switch {
			case ctx.Err() != nil:
				dependent.err = ctx.Err()
				settleLocked(dependent, StateCancelled)
			case dependent.blockedBy != "":
				dependent.err = &apperrors.BlockedError{Dependency: dependent.blockedBy}
				settleLocked(dependent, StateBlocked)
			default:
				runnable <- dependent
			}
		}
	}

	settle := func(exec *execution, state NodeState) {
		mu.Lock()
		defer mu.Unlock()
		settleLocked(exec, state)
	}

	for _, id := range order {
		if executions[id].remaining.Load() == 0 {
			runnable <- executions[id]
		}
	}

	var group errgroup.Group
	for i := 0; i < opts.Parallelism; i++ {
		group.Go(func() error {
			for {
				select {
				case <-done:
					return nil
				case exec := <-runnable:
					e.runNode(ctx, exec, opts, log, settle)
				}
			}
		})
	}
	// Workers never return errors; node failures land in the report.
	_ = group.Wait()

	results := make([]NodeResult, 0, len(order))
	for _, id := range order {
		exec := executions[id]
		results = append(results, NodeResult{
			Node:     id,
			Kind:     exec.spec.Kind,
			EntryKey: exec.spec.EntryKey,
			Name:     exec.name,
			State:    exec.state,
			Action:   exec.action,
			Attempts: exec.attempts,
			Err:      exec.err,
		})
	}
	return &Report{Results: results}
}

// runNode drives one node through the retry policy and settles it.
func (e *Engine) runNode(
	ctx context.Context,
	exec *execution,
	opts Options,
	log *slog.Logger,
	settle func(*execution, NodeState),
) {
	if ctx.Err() != nil {
		exec.err = ctx.Err()
		settle(exec, StateCancelled)
		return
	}

	exec.state = StateRunning
	nodeLog := log.With("node", exec.node)
	nodeLog.Debug("reconciling")

	attempts, err := e.retry(ctx, opts, nodeLog, func(attemptCtx context.Context) error {
		action, name, convErr := e.convergeOnce(attemptCtx, exec.spec, opts, nodeLog)
		exec.action = action
		exec.name = name
		return convErr
	})
	exec.attempts = attempts

	switch {
	case err == nil:
		settle(exec, StateConverged)
	case ctx.Err() != nil:
		exec.err = ctx.Err()
		settle(exec, StateCancelled)
	default:
		exec.err = err
		nodeLog.Error("node failed", "attempts", attempts, "error", err)
		settle(exec, StateFailed)
	}
}

// convergeOnce diffs one node against live state and issues at most one
// write. The returned action reflects what was decided even when the
// write fails.
func (e *Engine) convergeOnce(
	ctx context.Context,
	spec *topology.ResourceSpec,
	opts Options,
	log *slog.Logger,
) (Action, string, error) {
	if spec.Kind == topology.KindAPIs {
		return e.convergeServices(ctx, spec, opts, log)
	}

	client := e.clients.ForKind(spec.Kind)
	desired := client.Desired(spec)

	live, found, err := client.Get(ctx, spec)
	if err != nil {
		return ActionNone, "", err
	}

	if !found {
		if opts.DryRun {
			return ActionCreate, desired.Name, nil
		}
		name, err := client.Create(ctx, spec)
		if err != nil {
			return ActionCreate, desired.Name, err
		}
		log.Info("created", "name", name)
		return ActionCreate, name, nil
	}

	if maps.Equal(desired.Fields, live.Fields) {
		log.Debug("in sync", "name", live.Name)
		return ActionNone, live.Name, nil
	}

	if opts.DryRun {
		return ActionUpdate, live.Name, nil
	}
	name, err := client.Update(ctx, spec)
	if err != nil {
		return ActionUpdate, live.Name, err
	}
	log.Info("updated", "name", name)
	return ActionUpdate, name, nil
}

// convergeServices reconciles the service enablement node. Only missing
// services are submitted, so a converged project sees no writes.
func (e *Engine) convergeServices(
	ctx context.Context,
	spec *topology.ResourceSpec,
	opts Options,
	log *slog.Logger,
) (Action, string, error) {
	enabled, err := e.clients.ServiceUsage.EnabledServices(ctx, spec.Project)
	if err != nil {
		return ActionNone, "", err
	}

	var missing []string
	for _, service := range spec.APIs {
		if !enabled[service] {
			missing = append(missing, service)
		}
	}
	if len(missing) == 0 {
		return ActionNone, "", nil
	}

	if opts.DryRun {
		return ActionCreate, "", nil
	}
	if err := e.clients.ServiceUsage.EnableServices(ctx, spec.Project, missing); err != nil {
		return ActionCreate, "", err
	}
	log.Info("enabled services", "services", missing)
	return ActionCreate, "", nil
}
