// Package reconcile drives a declared topology to convergence. It walks
// the dependency graph with a bounded worker pool, diffs each node
// against live cloud state, and issues the minimal create and update
// writes, isolating failures to the affected subgraph.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/busway/busway/internal/constants"
	"github.com/busway/busway/internal/gcp"
	"github.com/busway/busway/internal/graph"
	"github.com/busway/busway/internal/logger"
	"github.com/busway/busway/internal/topology"
)

// Options tune a run. Zero values fall back to the defaults.
type Options struct {
	// Parallelism bounds how many nodes reconcile concurrently.
	Parallelism int

	// AttemptTimeout caps a single reconcile attempt. Exceeding it
	// counts as a transient failure under the retry policy.
	AttemptTimeout time.Duration

	// MaxAttempts caps attempts per node, first try included.
	MaxAttempts int

	// DryRun computes per-node actions without issuing writes.
	DryRun bool
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = constants.DefaultParallelism
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = constants.DefaultAttemptTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = constants.DefaultMaxAttempts
	}
	return o
}

// Engine reconciles topology documents against live cloud state.
type Engine struct {
	clients *gcp.Clients
	logger  *slog.Logger
	sleep   func(ctx context.Context, delay time.Duration) error
}

// New creates an engine on top of the given clients.
func New(clients *gcp.Clients, log *slog.Logger) *Engine {
	return &Engine{
		clients: clients,
		logger:  log,
		sleep:   sleepContext,
	}
}

// Result is a completed apply: the per-node report plus the outputs
// collaborators consume.
type Result struct {
	Report  *Report
	Outputs *Outputs
}

// Apply converges the document's topology. The document must already
// have passed validation. The returned error covers run-level failures
// such as an unreachable project or a dangling reference; per-node
// failures land in the report and are surfaced by Report.Err.
func (e *Engine) Apply(ctx context.Context, doc *topology.Document, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	ctx = logger.WithRunID(ctx, logger.NewRunID())
	log := logger.DeriveRunLogger(ctx, e.logger)

	project, err := e.clients.Projects.GetProject(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}

	specs := topology.Expand(doc)
	dag, err := graph.Build(specs)
	if err != nil {
		return nil, err
	}

	log.Info("reconciling topology",
		"project", doc.ProjectID,
		"region", doc.Region,
		"nodes", len(specs),
		"dry_run", opts.DryRun)

	report := e.execute(ctx, dag, specs, opts, log)

	counts := report.Counts()
	log.Info("reconciliation finished",
		"converged", counts[StateConverged],
		"failed", counts[StateFailed],
		"blocked", counts[StateBlocked],
		"cancelled", counts[StateCancelled])

	return &Result{
		Report:  report,
		Outputs: collectOutputs(project, report),
	}, nil
}

// Plan computes per-node actions without writing anything.
func (e *Engine) Plan(ctx context.Context, doc *topology.Document, opts Options) (*Report, error) {
	opts.DryRun = true
	result, err := e.Apply(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}
