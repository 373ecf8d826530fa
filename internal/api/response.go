// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package api provides the HTTP surface over the context engine using the
// Chi router, with a standardized response envelope across all endpoints.
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/porchlight-labs/porchlight/internal/logging"
)

// APIResponse is the response wrapper for all endpoints.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError is a machine-readable error payload.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta carries response metadata for tracing.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any, started time.Time) {
	resp := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			RequestID:  logging.CorrelationIDFromContext(r.Context()),
			Timestamp:  time.Now().UTC(),
			DurationMs: time.Since(started).Milliseconds(),
		},
	}
	writeJSON(w, r, status, resp)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: logging.CorrelationIDFromContext(r.Context()),
		},
	}
	writeJSON(w, r, status, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encoding response")
	}
}
