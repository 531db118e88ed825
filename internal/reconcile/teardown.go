package reconcile

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	apperrors "github.com/busway/busway/internal/errors"
	"github.com/busway/busway/internal/graph"
	"github.com/busway/busway/internal/logger"
	"github.com/busway/busway/internal/topology"
)

// Destroy deletes every declared resource in reverse dependency order,
// continuing past individual failures. Service enablement is never
// reverted.
func (e *Engine) Destroy(ctx context.Context, doc *topology.Document, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	ctx = logger.WithRunID(ctx, logger.NewRunID())
	log := logger.DeriveRunLogger(ctx, e.logger)

	specs := topology.Expand(doc)
	dag, err := graph.Build(specs)
	if err != nil {
		return nil, err
	}
	order, err := dag.TopologicalSort()
	if err != nil {
		return nil, err
	}
	slices.Reverse(order)

	byNode := make(map[string]*topology.ResourceSpec, len(specs))
	for _, spec := range specs {
		byNode[spec.NodeID()] = spec
	}

	log.Info("destroying topology",
		"project", doc.ProjectID,
		"region", doc.Region,
		"dry_run", opts.DryRun)

	var results []NodeResult
	for _, id := range order {
		spec := byNode[id]
		if spec.Kind == topology.KindAPIs {
			continue
		}
		results = append(results, e.deleteDeclared(ctx, spec, opts, log))
	}
	return &Report{Results: results}, nil
}

// deleteDeclared removes one declared resource if it still exists.
func (e *Engine) deleteDeclared(
	ctx context.Context,
	spec *topology.ResourceSpec,
	opts Options,
	log *slog.Logger,
) NodeResult {
	client := e.clients.ForKind(spec.Kind)
	name := client.Desired(spec).Name
	result := NodeResult{
		Node:     spec.NodeID(),
		Kind:     spec.Kind,
		EntryKey: spec.EntryKey,
		Name:     name,
		Action:   ActionDelete,
	}

	nodeLog := log.With("node", result.Node)
	attempts, err := e.retry(ctx, opts, nodeLog, func(attemptCtx context.Context) error {
		_, found, err := client.Get(attemptCtx, spec)
		if err != nil {
			return err
		}
		if !found {
			result.Action = ActionNone
			return nil
		}
		if opts.DryRun {
			return nil
		}
		if err := client.Delete(attemptCtx, name); err != nil && !apperrors.IsNotFound(err) {
			return err
		}
		return nil
	})
	result.Attempts = attempts

	if err != nil {
		result.State = StateFailed
		result.Err = err
		nodeLog.Error("delete failed", "name", name, "error", err)
		return result
	}
	if result.Action == ActionDelete && !opts.DryRun {
		nodeLog.Info("deleted", "name", name)
	}
	result.State = StateConverged
	return result
}

// pruneOrder removes dependents before the resources they reference.
var pruneOrder = []topology.Kind{
	topology.KindEnrollment,
	topology.KindGoogleAPISource,
	topology.KindPipeline,
	topology.KindTrigger,
	topology.KindMessageBus,
}

// Prune deletes managed resources in scope that the document no longer
// declares. Only resources labeled as managed by this tool are
// considered, and declared resources are never touched.
func (e *Engine) Prune(ctx context.Context, doc *topology.Document, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	ctx = logger.WithRunID(ctx, logger.NewRunID())
	log := logger.DeriveRunLogger(ctx, e.logger)

	declared := make(map[string]bool)
	for _, spec := range topology.Expand(doc) {
		if spec.Kind == topology.KindAPIs {
			continue
		}
		declared[e.clients.ForKind(spec.Kind).Desired(spec).Name] = true
	}

	var results []NodeResult
	for _, kind := range pruneOrder {
		client := e.clients.ForKind(kind)
		names, err := client.List(ctx, doc.ProjectID, doc.Region)
		if err != nil {
			return nil, err
		}
		slices.Sort(names)
		for _, name := range names {
			if declared[name] {
				continue
			}
			results = append(results, e.pruneResource(ctx, kind, name, opts, log))
		}
	}

	if len(results) == 0 {
		log.Info("nothing to prune", "project", doc.ProjectID, "region", doc.Region)
	}
	return &Report{Results: results}, nil
}

// pruneResource deletes one undeclared managed resource.
func (e *Engine) pruneResource(
	ctx context.Context,
	kind topology.Kind,
	name string,
	opts Options,
	log *slog.Logger,
) NodeResult {
	result := NodeResult{
		Node:   string(kind) + "/" + shortName(name),
		Kind:   kind,
		Name:   name,
		Action: ActionDelete,
	}
	if opts.DryRun {
		result.State = StateConverged
		return result
	}

	nodeLog := log.With("node", result.Node)
	attempts, err := e.retry(ctx, opts, nodeLog, func(attemptCtx context.Context) error {
		if err := e.clients.ForKind(kind).Delete(attemptCtx, name); err != nil && !apperrors.IsNotFound(err) {
			return err
		}
		return nil
	})
	result.Attempts = attempts

	if err != nil {
		result.State = StateFailed
		result.Err = err
		nodeLog.Error("prune failed", "name", name, "error", err)
		return result
	}
	nodeLog.Info("pruned", "name", name)
	result.State = StateConverged
	return result
}

// shortName returns the final segment of a full resource name.
func shortName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
