package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStep is the standardized structured logging key for job step names.
	FieldStep = "step"
	// FieldStepIndex is the standardized structured logging key for a step's position in its job.
	FieldStepIndex = "step_index"
	// FieldUID is the standardized structured logging key for datastore uids.
	FieldUID = "uid"
	// FieldJobSHA is the standardized structured logging key for job signatures.
	FieldJobSHA = "job_sha"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	jobSHAKey
)

// WithCorrelationID attaches a correlation identifier to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation identifier stored in ctx.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// WithJobSHA attaches the signature of the job being served to ctx.
func WithJobSHA(ctx context.Context, sha string) context.Context {
	return context.WithValue(ctx, jobSHAKey, sha)
}

// JobSHAFromContext returns the job signature stored in ctx.
func JobSHAFromContext(ctx context.Context) (string, bool) {
	sha, ok := ctx.Value(jobSHAKey).(string)
	return sha, ok && sha != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if rid, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	if sha, ok := JobSHAFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobSHA, sha))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
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
