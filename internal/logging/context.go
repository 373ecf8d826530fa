// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contextKey is a private type for logging context keys.
type contextKey string

const (
	// correlationIDKey is the context key for correlation IDs.
	correlationIDKey contextKey = "correlation_id"
)

// GenerateCorrelationID creates a new unique correlation ID.
// Returns the first 8 characters of a UUID for readability in logs.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context carrying the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a freshly generated correlation ID.
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

// Ctx returns a logger enriched with the correlation ID from the context,
// if one is present. Use this for all request-scoped logging.
//
//	logging.Ctx(ctx).Info().Str("category", string(key)).Msg("pool refreshed")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := CorrelationIDFromContext(ctx); id != "" {
		l = l.With().Str(string(correlationIDKey), id).Logger()
	}
	return &l
}
