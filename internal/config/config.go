// Package config manages configuration for the busway CLI. It uses Viper
// for tool-level settings from the config file and environment variables,
// and strict YAML decoding for topology documents.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/busway/busway/internal/constants"
	"github.com/busway/busway/internal/topology"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the tool-level configuration: per-user defaults that apply to
// every run unless the topology document or command line overrides them.
type Config struct {
	// ProjectID is the default project for documents that omit project_id.
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`

	// Region is the default region for documents that omit region.
	Region string `mapstructure:"region" yaml:"region"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// Parallelism is how many topology nodes reconcile concurrently.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism" validate:"omitempty,min=1,max=64"`

	// RunTimeout bounds one reconciliation run end to end.
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout" validate:"omitempty,min=1s"`
}

var validate = validator.New()

// Load loads the tool configuration. Values resolve in order: defaults,
// then ~/.busway/config.yaml, then BUSWAY_* environment variables. A
// missing config file is fine; defaults and the environment carry it.
func Load() (*Config, error) {
	v := newViper()

	if err := loadConfigFile(v); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the user's home directory, overwriting
// any existing config file.
func Save(config *Config) error {
	currentUser, err := user.Current()
	if err != nil {
		return fmt.Errorf("error getting current user: %w", err)
	}

	configDir := constants.ConfigDirPath(currentUser.HomeDir)

	if err = os.MkdirAll(configDir, constants.ConfigDirPermissions); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	configFilePath := filepath.Join(configDir, constants.ConfigFileName)

	v := viper.New()
	v.Set("project_id", config.ProjectID)
	v.Set("region", config.Region)
	v.Set("log_level", config.LogLevel)
	v.Set("parallelism", config.Parallelism)

	if err = v.WriteConfigAs(configFilePath); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	if err = os.Chmod(configFilePath, constants.ConfigFilePermissions); err != nil {
		return fmt.Errorf("error setting config file permissions: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("error getting current user: %w", err)
	}

	configDir := constants.ConfigDirPath(currentUser.HomeDir)
	return filepath.Join(configDir, constants.ConfigFileName), nil
}

// GetLogLevel returns the slog.Level from the string configuration.
// Defaults to INFO if the level string is invalid.
func (c *Config) GetLogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ApplyScopeDefaults fills the document's project and region from the
// tool defaults when the document leaves them unset. Runs before document
// validation so a document may rely on the tool config for its scope.
func (c *Config) ApplyScopeDefaults(doc *topology.Document) {
	if doc.ProjectID == "" {
		doc.ProjectID = c.ProjectID
	}
	if doc.Region == "" {
		doc.Region = c.Region
	}
}

// Helper functions

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BUSWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("parallelism", constants.DefaultParallelism)
	v.SetDefault("run_timeout", constants.DefaultRunTimeout)
}

func loadConfigFile(v *viper.Viper) error {
	currentUser, err := user.Current()
	if err != nil {
		return fmt.Errorf("error getting current user: %w", err)
	}

	configDir := constants.ConfigDirPath(currentUser.HomeDir)
	configFile := filepath.Join(configDir, constants.ConfigFileName)

	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if readErr := v.ReadInConfig(); readErr != nil {
		return readErr
	}

	return nil
}

func bindEnvVars(v *viper.Viper) {
	envVars := []string{
		"LOG_LEVEL",
		"PARALLELISM",
		"PROJECT_ID",
		"REGION",
		"RUN_TIMEOUT",
	}

	for _, envVar := range envVars {
		configKey := strings.ToLower(envVar)
		_ = v.BindEnv(configKey, "BUSWAY_"+envVar)
	}
}
