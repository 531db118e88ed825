// Package constants defines global constants used throughout busway.
// It includes version information, paths, and labeling conventions.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of busway.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool and application.
const ProjectName = "busway"

// ConfigDirName is the name of the configuration directory in the user's home directory.
const ConfigDirName = ".busway"

// ConfigFileName is the name of the global configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirPath returns the full path to the global configuration directory.
func ConfigDirPath(homeDir string) string {
	return homeDir + "/" + ConfigDirName
}

// ConfigFilePath returns the full path to the global configuration file.
func ConfigFilePath(homeDir string) string {
	return ConfigDirPath(homeDir) + "/" + ConfigFileName
}

// ConfigDirPermissions is the file system permissions for config directory (0750)
const ConfigDirPermissions = 0750

// ConfigFilePermissions is the file system permissions for config file (0600)
const ConfigFilePermissions = 0600

// Environment represents the execution environment.
type Environment string

// Environment types for logger configuration.
const (
	Development Environment = "development"
	Production  Environment = "production"
	CLI         Environment = "cli"
)

// ResourceManagedByLabelKey is the label key identifying the tool that
// manages a resource. Every resource busway creates carries it.
const ResourceManagedByLabelKey = "managed-by"

// ResourceApplicationLabelKey is the label key for the application name.
const ResourceApplicationLabelKey = "application"

// RunIDLogField is the log attribute key for the reconciliation run ID.
const RunIDLogField = "run_id"

// DefaultParallelism bounds how many topology nodes reconcile concurrently.
const DefaultParallelism = 4

// DefaultMaxAttempts caps reconcile attempts per node, first try included.
const DefaultMaxAttempts = 4
