package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/busway/busway/internal/config"
	"github.com/busway/busway/internal/gcp"
	"github.com/busway/busway/internal/output"
	"github.com/busway/busway/internal/reconcile"
	"github.com/busway/busway/internal/topology"
)

// loadRunInputs loads the tool configuration and the topology document,
// with tool defaults filling document scope fields left unset.
func loadRunInputs(file string) (*config.Config, *topology.Document, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	doc, err := config.LoadDocument(file, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, doc, nil
}

// newEngine builds a reconcile engine on the default cloud clients. The
// caller owns closing the returned clients.
func newEngine(ctx context.Context) (*reconcile.Engine, *gcp.Clients, error) {
	clients, err := gcp.NewClients(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cloud clients: %w", err)
	}
	return reconcile.New(clients, slog.Default()), clients, nil
}

// engineOptions derives run options from the tool configuration, with the
// command line parallelism taking precedence when set.
func engineOptions(cfg *config.Config, flagParallelism int) reconcile.Options {
	opts := reconcile.Options{Parallelism: cfg.Parallelism}
	if flagParallelism > 0 {
		opts.Parallelism = flagParallelism
	}
	return opts
}

// renderReport prints the per-node result table and a one-line summary.
func renderReport(report *reconcile.Report) {
	if len(report.Results) == 0 {
		output.Info("nothing to do")
		return
	}

	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		rows = append(rows, []string{
			result.Node,
			output.ActionBadge(string(result.Action)),
			output.StatusBadge(string(result.State)),
			fmt.Sprintf("%d", result.Attempts),
		})
	}

	output.Blank()
	output.Table([]string{"Node", "Action", "State", "Attempts"}, rows)
	output.Blank()
	output.Println(summarize(report))
}

// summarize formats the state counts in a stable order, skipping zeroes.
func summarize(report *reconcile.Report) string {
	counts := report.Counts()
	order := []reconcile.NodeState{
		reconcile.StateConverged,
		reconcile.StateFailed,
		reconcile.StateBlocked,
		reconcile.StateCancelled,
	}

	var parts []string
	for _, state := range order {
		if n := counts[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, state))
		}
	}
	return strings.Join(parts, ", ")
}

// renderFailures lists the root-cause node errors.
func renderFailures(report *reconcile.Report) {
	failed := report.Failed()
	if len(failed) == 0 {
		return
	}

	items := make([]string, 0, len(failed))
	for _, result := range failed {
		items = append(items, fmt.Sprintf("%s: %v", result.Node, result.Err))
	}
	output.Blank()
	output.Error("%d node(s) failed", len(failed))
	output.List(items)
}

// renderOutputs prints the resolved resource names of the converged
// topology.
func renderOutputs(outputs *reconcile.Outputs) {
	output.Subheader("Outputs")
	output.KeyValueBold("Project number", outputs.ProjectNumber)
	if outputs.BusName != "" {
		output.KeyValue("Message bus", outputs.BusName)
	}
	if outputs.GoogleAPISourceName != nil {
		output.KeyValue("Google API source", *outputs.GoogleAPISourceName)
	}
	for _, key := range slices.Sorted(maps.Keys(outputs.PipelineNames)) {
		output.KeyValue("Pipeline "+key, outputs.PipelineNames[key])
	}
	for _, key := range slices.Sorted(maps.Keys(outputs.EnrollmentNames)) {
		output.KeyValue("Enrollment "+key, outputs.EnrollmentNames[key])
	}
	for _, key := range slices.Sorted(maps.Keys(outputs.TriggerNames)) {
		output.KeyValue("Trigger "+key, outputs.TriggerNames[key])
	}
}
