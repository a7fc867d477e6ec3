// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// correlationIDKey carries the id shared by every log line of one detection run.
	correlationIDKey contextKey = "correlation_id"

	// operationDateKey carries the operation date being evaluated.
	operationDateKey contextKey = "operation_date"
)

// GenerateCorrelationID creates a new short correlation ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithOperationDate records the operation date (YYYY-MM-DD) on the context.
func ContextWithOperationDate(ctx context.Context, date string) context.Context {
	return context.WithValue(ctx, operationDateKey, date)
}

// OperationDateFromContext returns the operation date stored on the context, if any.
func OperationDateFromContext(ctx context.Context) string {
	if d, ok := ctx.Value(operationDateKey).(string); ok {
		return d
	}
	return ""
}

// Ctx returns a logger with the context values (correlation_id, operation_date) attached.
//
//	logging.Ctx(ctx).Info().Msg("loading snapshot")
//	// {"level":"info","correlation_id":"abc12345","operation_date":"2025-09-08","message":"loading snapshot"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if date := OperationDateFromContext(ctx); date != "" {
		logCtx = logCtx.Str("operation_date", date)
	}

	l := logCtx.Logger()
	return &l
}
