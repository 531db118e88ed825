package cmd

import (
	"errors"
	"fmt"

	"github.com/busway/busway/internal/output"
	"github.com/busway/busway/internal/reconcile"

	"github.com/spf13/cobra"
)

var (
	planFile        string
	planParallelism int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change without writing anything",
	Long: `Show what apply would change without writing anything.

Live state is read and diffed against the document; every node reports
the create or update it would need, or none when already converged.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "topology.yaml", "Topology document to plan")
	planCmd.Flags().IntVar(&planParallelism, "parallelism", 0, "Concurrent node limit (defaults to tool config)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, doc, err := loadRunInputs(planFile)
	if err != nil {
		return err
	}

	engine, clients, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer clients.Close()

	output.Header(fmt.Sprintf("Planning topology %s/%s", doc.ProjectID, doc.Region))
	output.KeyValue("Message bus", doc.BusID)
	output.KeyValue("Document", planFile)

	report, err := engine.Plan(ctx, doc, engineOptions(cfg, planParallelism))
	if err != nil {
		return err
	}

	renderReport(report)
	renderFailures(report)
	if report.Err() != nil {
		return errors.New("plan finished with failed nodes")
	}

	output.Blank()
	if !report.Changed() {
		output.Success("No changes. The live project matches the document.")
		return nil
	}

	changes := 0
	for _, result := range report.Results {
		if result.Action != reconcile.ActionNone {
			changes++
		}
	}
	output.Warning("%d node(s) would change", changes)
	return nil
}
