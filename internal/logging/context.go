package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRunID identifies one encode run across log lines and history rows.
	FieldRunID = "run_id"
	// FieldInput is the source path being encoded.
	FieldInput = "input"
	// FieldFrame is the zero-based frame index.
	FieldFrame = "frame"
	// FieldDirtyCells counts cells that changed in a frame.
	FieldDirtyCells = "dirty_cells"
	// FieldTiles counts tiles emitted for a frame or run.
	FieldTiles = "tiles"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind is the failure category from the failures package.
	FieldErrorKind = "error_kind"
)

type contextKey string

const (
	runIDKey contextKey = "run_id"
	inputKey contextKey = "input"
)

// WithRunID tags ctx with an encode run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(id))
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithInput tags ctx with the path being encoded.
func WithInput(ctx context.Context, path string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, inputKey, path)
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if input, ok := ctx.Value(inputKey).(string); ok && input != "" {
		fields = append(fields, slog.String(FieldInput, input))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
