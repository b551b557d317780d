package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across callsheet.
// Use these constants instead of raw strings so console, JSON and journal
// output stay queryable by the same keys.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldComponent = "component"

	// Ledger
	FieldLedger    = "ledger"
	FieldContact   = "contact"
	FieldIndex     = "index"
	FieldKey       = "key"
	FieldMarker    = "marker"
	FieldTotal     = "total"
	FieldComplete  = "complete"
	FieldRemaining = "remaining"

	// Runner
	FieldState    = "state"
	FieldMode     = "mode"
	FieldAction   = "action"
	FieldExpected = "expected"
	FieldObserved = "observed"
	FieldAttempt  = "attempt"
	FieldFailures = "consecutive_failures"

	// Blacklist
	FieldSource  = "source"
	FieldMatched = "matched"
	FieldColumn  = "column"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldDelayMS    = "delay_ms"

	// Errors
	FieldError = "error"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
	FieldRows = "rows"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a campaign run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with any context fields present.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		base = base.With(FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		base = base.With(FieldComponent, component)
	}
	return base
}
