// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// RateLimit is requests per client IP per minute on the context
	// endpoint. Zero disables rate limiting.
	RateLimit int
}

// NewRouter assembles the Chi route tree.
func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(CorrelationID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogging)

	r.Get("/healthz", handler.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Get("/context/{zip}", handler.Context)
	})

	return r
}
