// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package metrics provides Prometheus instrumentation for the community
// context engine: cache tier efficiency, provider call volume and latency,
// circuit breaker state, and planner call estimates.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Tier Metrics
	//
	// tier is one of: payload, category, pool, details, audience, seasonal,
	// cycle, city, provider. result is hit or miss.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_cache_requests_total",
			Help: "Cache lookups per community context tier",
		},
		[]string{"tier", "result"},
	)

	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_cache_store_errors_total",
			Help: "Cache store failures (degraded to direct fetch, never fatal)",
		},
		[]string{"op"},
	)

	// Provider Metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_provider_requests_total",
			Help: "Outbound provider calls by provider, operation and status",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_provider_latency_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	ProviderFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_provider_fallbacks_total",
			Help: "Fallbacks from the preferred provider to the secondary",
		},
		[]string{"from", "to"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "community_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"provider", "from", "to"},
	)

	// Planner Metrics
	//
	// Estimates are advisory: the orchestrator meters them before fan-out so
	// per-request external spend is visible without enforcing a hard cap here.
	PlannedSearchCalls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "community_planned_search_calls",
			Help:    "Estimated provider search calls per context request",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 24, 32, 48},
		},
	)

	PlannedDetailCalls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "community_planned_detail_calls",
			Help:    "Estimated detail hydration calls per context request",
			Buckets: []float64{4, 8, 16, 24, 32, 48, 64, 96},
		},
	)

	// Hydration Metrics
	HydrationDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "community_hydration_drops_total",
			Help: "Pool entries dropped because details could not be fetched",
		},
	)

	// Orchestrator Metrics
	ContextRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_context_requests_total",
			Help: "Context resolution requests by outcome",
		},
		[]string{"status"},
	)

	ContextDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "community_context_duration_seconds",
			Help:    "End-to-end context resolution latency in seconds",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	CategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_category_failures_total",
			Help: "Per-category failures isolated at the orchestrator fan-out",
		},
		[]string{"category"},
	)
)

// RecordCache increments the cache request counter for a tier.
func RecordCache(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(tier, result).Inc()
}
