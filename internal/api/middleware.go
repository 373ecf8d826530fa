// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/porchlight-labs/porchlight/internal/logging"
)

// correlationHeader carries the request's correlation ID to the caller.
const correlationHeader = "X-Request-ID"

// CorrelationID attaches a correlation ID to the request context and echoes
// it in the response. An incoming X-Request-ID is honored so IDs propagate
// across services.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = logging.GenerateCorrelationID()
		}
		ctx := logging.ContextWithCorrelationID(r.Context(), id)
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogging logs one line per request with status and latency.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}
