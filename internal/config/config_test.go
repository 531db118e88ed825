package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busway/busway/internal/constants"
	"github.com/busway/busway/internal/topology"
)

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{
			name:     "DEBUG level",
			logLevel: "DEBUG",
			expected: slog.LevelDebug,
		},
		{
			name:     "INFO level",
			logLevel: "INFO",
			expected: slog.LevelInfo,
		},
		{
			name:     "WARN level",
			logLevel: "WARN",
			expected: slog.LevelWarn,
		},
		{
			name:     "ERROR level",
			logLevel: "ERROR",
			expected: slog.LevelError,
		},
		{
			name:     "invalid level defaults to INFO",
			logLevel: "INVALID",
			expected: slog.LevelInfo,
		},
		{
			name:     "empty string defaults to INFO",
			logLevel: "",
			expected: slog.LevelInfo,
		},
		{
			name:     "lowercase level",
			logLevel: "debug",
			expected: slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			assert.Equal(t, tt.expected, cfg.GetLogLevel())
		})
	}
}

func TestDefaults(t *testing.T) {
	v := newViper()

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, constants.DefaultParallelism, cfg.Parallelism)
	assert.Equal(t, constants.DefaultRunTimeout, cfg.RunTimeout)
	assert.Empty(t, cfg.ProjectID)
	assert.Empty(t, cfg.Region)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BUSWAY_PROJECT_ID", "acme-prod")
	t.Setenv("BUSWAY_REGION", "europe-west1")
	t.Setenv("BUSWAY_PARALLELISM", "8")
	t.Setenv("BUSWAY_RUN_TIMEOUT", "45m")
	t.Setenv("BUSWAY_LOG_LEVEL", "DEBUG")

	v := newViper()

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "acme-prod", cfg.ProjectID)
	assert.Equal(t, "europe-west1", cfg.Region)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 45*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg:  Config{Parallelism: 4, RunTimeout: 30 * time.Minute},
		},
		{
			name: "zero values are fine",
			cfg:  Config{},
		},
		{
			name:    "negative parallelism",
			cfg:     Config{Parallelism: -1},
			wantErr: true,
		},
		{
			name:    "parallelism above cap",
			cfg:     Config{Parallelism: 65},
			wantErr: true,
		},
		{
			name:    "sub-second run timeout",
			cfg:     Config{RunTimeout: 100 * time.Millisecond},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyScopeDefaults(t *testing.T) {
	cfg := &Config{ProjectID: "acme-prod", Region: "us-central1"}

	doc := &topology.Document{}
	cfg.ApplyScopeDefaults(doc)
	assert.Equal(t, "acme-prod", doc.ProjectID)
	assert.Equal(t, "us-central1", doc.Region)

	// Document values win over tool defaults.
	doc = &topology.Document{ProjectID: "other-proj", Region: "europe-west1"}
	cfg.ApplyScopeDefaults(doc)
	assert.Equal(t, "other-proj", doc.ProjectID)
	assert.Equal(t, "europe-west1", doc.Region)
}
