package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/busway/busway/internal/output"
	"github.com/busway/busway/internal/reconcile"
	"github.com/busway/busway/internal/topology"
	"github.com/busway/busway/internal/watch"

	"github.com/spf13/cobra"
)

var (
	applyFile        string
	applyPrune       bool
	applyParallelism int
	applyWatch       bool
	applyAutoApprove bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile the topology document against the live project",
	Long: `Reconcile the topology document against the live project.

Missing resources are created, drifted resources are updated, converged
resources are left alone. With --prune, managed resources the document no
longer declares are deleted after the apply.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "topology.yaml", "Topology document to apply")
	applyCmd.Flags().BoolVar(&applyPrune, "prune", false, "Delete managed resources the document no longer declares")
	applyCmd.Flags().IntVar(&applyParallelism, "parallelism", 0, "Concurrent node limit (defaults to tool config)")
	applyCmd.Flags().BoolVar(&applyWatch, "watch", false, "Re-apply whenever the document changes")
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip the prune confirmation prompt")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, clients, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer clients.Close()

	if !applyWatch {
		return applyOnce(ctx, engine)
	}

	// In watch mode a failing apply is reported and watching continues;
	// the next edit gets another chance.
	if err := applyOnce(ctx, engine); err != nil {
		output.Error("%v", err)
	}
	watcher := watch.New(applyFile, func(ctx context.Context) error {
		return applyOnce(ctx, engine)
	}, slog.Default())

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func applyOnce(ctx context.Context, engine *reconcile.Engine) error {
	cfg, doc, err := loadRunInputs(applyFile)
	if err != nil {
		return err
	}
	opts := engineOptions(cfg, applyParallelism)

	output.Header(fmt.Sprintf("Applying topology %s/%s", doc.ProjectID, doc.Region))
	output.KeyValue("Message bus", doc.BusID)
	output.KeyValue("Document", applyFile)

	started := time.Now()
	result, err := engine.Apply(ctx, doc, opts)
	if err != nil {
		return err
	}

	renderReport(result.Report)
	renderFailures(result.Report)
	if result.Report.Err() != nil {
		return errors.New("apply finished with failed nodes")
	}

	renderOutputs(result.Outputs)
	output.Blank()
	output.Success("Topology converged in %s", output.Duration(time.Since(started)))

	if applyPrune {
		return pruneUndeclared(ctx, engine, doc, opts)
	}
	return nil
}

// pruneUndeclared previews the prune set, asks for confirmation unless
// auto-approved, and deletes what was confirmed.
func pruneUndeclared(ctx context.Context, engine *reconcile.Engine, doc *topology.Document, opts reconcile.Options) error {
	previewOpts := opts
	previewOpts.DryRun = true
	preview, err := engine.Prune(ctx, doc, previewOpts)
	if err != nil {
		return err
	}
	if len(preview.Results) == 0 {
		output.Info("nothing to prune")
		return nil
	}

	names := make([]string, 0, len(preview.Results))
	for _, result := range preview.Results {
		names = append(names, result.Name)
	}
	output.Blank()
	output.Warning("%d undeclared managed resource(s) in scope", len(names))
	output.List(names)

	if !applyAutoApprove && !output.Confirm("Delete these resources?") {
		output.Info("prune skipped")
		return nil
	}

	report, err := engine.Prune(ctx, doc, opts)
	if err != nil {
		return err
	}
	renderReport(report)
	renderFailures(report)
	if report.Err() != nil {
		return errors.New("prune finished with failed resources")
	}

	output.Success("Pruned %d resource(s)", len(report.Results))
	return nil
}
