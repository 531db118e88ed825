package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/busway/busway/internal/output"

	"github.com/spf13/cobra"
)

var (
	destroyFile        string
	destroyAutoApprove bool
	destroyParallelism int
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete every resource the topology document declares",
	Long: `Delete every resource the topology document declares.

Resources are removed in reverse dependency order so nothing is deleted
while something else still references it. Enabled service APIs are left
alone.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().StringVarP(&destroyFile, "file", "f", "topology.yaml", "Topology document to destroy")
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip the confirmation prompt")
	destroyCmd.Flags().IntVar(&destroyParallelism, "parallelism", 0, "Concurrent node limit (defaults to tool config)")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, doc, err := loadRunInputs(destroyFile)
	if err != nil {
		return err
	}

	output.Header(fmt.Sprintf("Destroying topology %s/%s", doc.ProjectID, doc.Region))
	output.KeyValue("Message bus", doc.BusID)
	output.KeyValue("Document", destroyFile)
	output.Blank()

	if !destroyAutoApprove {
		if !output.Confirm(fmt.Sprintf("Delete all resources of bus %q in %s/%s?", doc.BusID, doc.ProjectID, doc.Region)) {
			output.Info("Destroy cancelled")
			return nil
		}
	}

	engine, clients, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer clients.Close()

	started := time.Now()
	report, err := engine.Destroy(ctx, doc, engineOptions(cfg, destroyParallelism))
	if err != nil {
		return err
	}

	renderReport(report)
	renderFailures(report)
	if report.Err() != nil {
		return errors.New("destroy finished with failed resources")
	}

	output.Blank()
	output.Success("Topology destroyed in %s", output.Bold(output.Duration(time.Since(started))))
	return nil
}
