package cmd

import (
	"github.com/busway/busway/internal/config"
	"github.com/busway/busway/internal/output"

	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure default project and region for topology runs",
	Long: `Configure the default Google Cloud project and region used when a
topology document omits them. This creates or updates the configuration
file at ` + output.Bold("~/.busway/config.yaml"),
	Run: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(_ *cobra.Command, _ []string) {
	existingConfig, err := config.Load()
	configExists := err == nil
	if configExists {
		output.Success("Found existing configuration")
	} else {
		existingConfig = &config.Config{}
		output.Info("Creating new configuration")
	}

	projectID := output.Prompt("Enter default Google Cloud project ID")

	if projectID == "" {
		if configExists && existingConfig.ProjectID != "" {
			projectID = existingConfig.ProjectID
			output.Info("Using existing project: %s", projectID)
		} else {
			output.Fatal("Project ID is required")
		}
	}

	region := output.Prompt("Enter default region")

	if region == "" {
		if configExists && existingConfig.Region != "" {
			region = existingConfig.Region
			output.Info("Using existing region: %s", region)
		} else {
			output.Fatal("Region is required")
		}
	}

	cfg := &config.Config{
		ProjectID:   projectID,
		Region:      region,
		LogLevel:    existingConfig.LogLevel,
		Parallelism: existingConfig.Parallelism,
	}

	if err := config.Save(cfg); err != nil {
		output.Fatal("Failed to save configuration: %v", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		output.Fatal("Failed to get config path: %v", err)
	}

	output.Success("Configuration saved successfully")
	output.KeyValue("Configuration path", configPath)
	output.Info("Configuration complete!")
}
