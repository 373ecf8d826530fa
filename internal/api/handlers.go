// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/engine"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/validation"
)

// ContextResolver is the engine surface the handlers need.
type ContextResolver interface {
	ResolveContext(ctx context.Context, req engine.Request) (*community.ContextPayload, error)
}

// Handler serves the context API.
type Handler struct {
	engine ContextResolver
}

// NewHandler creates the API handler.
func NewHandler(e ContextResolver) *Handler {
	return &Handler{engine: e}
}

// contextRequest is the validated query surface of GET /context/{zip}.
type contextRequest struct {
	ZIP      string   `validate:"required,zipcode"`
	Category string   `validate:"omitempty,categorykey"`
	UserID   string   `validate:"omitempty,max=128"`
	Segments []string `validate:"omitempty,max=10,dive,segment"`
	Areas    []string `validate:"omitempty,max=25,dive,min=1,max=80"`
}

// Context handles GET /api/v1/context/{zip}.
//
// Query parameters: category (pin one category), user (rotation identity),
// segments (comma-separated audience segments), areas (comma-separated
// service area names), refresh=true (force regeneration).
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	q := r.URL.Query()

	req := contextRequest{
		ZIP:      chi.URLParam(r, "zip"),
		Category: q.Get("category"),
		UserID:   q.Get("user"),
		Segments: splitParam(q.Get("segments")),
		Areas:    splitParam(q.Get("areas")),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}

	payload, err := h.engine.ResolveContext(r.Context(), engine.Request{
		ZIP:              req.ZIP,
		UserID:           req.UserID,
		Category:         community.CategoryKey(req.Category),
		AudienceSegments: req.Segments,
		ServiceAreas:     req.Areas,
		ForceRefresh:     q.Get("refresh") == "true",
	})
	if err != nil {
		h.respondResolveError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, payload, started)
}

// respondResolveError maps engine errors onto HTTP statuses: validation
// problems are the caller's to fix, dependency exhaustion is an upstream
// failure.
func (h *Handler) respondResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case community.IsValidation(err):
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, community.ErrNoProviders):
		respondError(w, r, http.StatusBadGateway, "PROVIDERS_UNAVAILABLE",
			"no provider could produce community data")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, "REQUEST_CANCELED", "request canceled")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("context resolution failed")
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
