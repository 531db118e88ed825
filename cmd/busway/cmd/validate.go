package cmd

import (
	"fmt"

	"github.com/busway/busway/internal/graph"
	"github.com/busway/busway/internal/output"
	"github.com/busway/busway/internal/topology"

	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology document without contacting Google Cloud",
	Long: `Check a topology document without contacting Google Cloud.

Runs the same structural and cross-reference checks apply runs before
touching live state: field validation, destination rules, and enrollment
references to declared pipelines.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "topology.yaml", "Topology document to validate")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, doc, err := loadRunInputs(validateFile)
	if err != nil {
		return err
	}

	// Expansion plus graph construction exercises the reference checks
	// apply relies on, without building any cloud clients.
	specs := topology.Expand(doc)
	if _, err := graph.Build(specs); err != nil {
		return fmt.Errorf("topology document invalid: %w", err)
	}

	output.Success("%s is valid", validateFile)
	output.KeyValue("Message bus", fmt.Sprintf("%s/%s/%s", doc.ProjectID, doc.Region, doc.BusID))
	output.KeyValue("Nodes", fmt.Sprintf("%d", len(specs)))
	output.KeyValue("Pipelines", fmt.Sprintf("%d", len(doc.AdvancedPipelines)))
	output.KeyValue("Enrollments", fmt.Sprintf("%d", len(doc.AdvancedPipelines)))
	output.KeyValue("Legacy triggers", fmt.Sprintf("%d", len(doc.StandardTriggers)))
	return nil
}
