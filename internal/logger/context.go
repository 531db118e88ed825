package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/busway/busway/internal/constants"
)

// contextKey is a private type for context keys defined in this package
type contextKey string

// runIDContextKey carries the reconciliation run identifier
const runIDContextKey contextKey = "run_id"

// NewRunID returns a fresh identifier for one reconciliation run.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID returns a context carrying the given run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// GetRunID extracts the run identifier from the context. Returns an
// empty string when the context carries none.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDContextKey).(string); ok {
		return id
	}
	return ""
}

// DeriveRunLogger returns a logger annotated with the context's run
// identifier. Every apply or plan invocation gets its own run ID so
// lines from successive watch cycles stay distinguishable.
func DeriveRunLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if runID := GetRunID(ctx); runID != "" {
		return base.With(constants.RunIDLogField, runID)
	}
	return base
}
