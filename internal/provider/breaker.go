// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// newBranchBreaker builds the circuit breaker protecting one provider
// branch. A tripped breaker fails fast, which the router treats exactly like
// a provider error: it falls back to the other branch.
//
// Settings:
//   - Max 3 concurrent probes in half-open state
//   - 1 minute measurement window in closed state
//   - 1 minute open period before probing again
//   - Opens at >= 60% failures with at least 5 requests observed
func newBranchBreaker(name string) *gobreaker.CircuitBreaker[*community.CommunityPayload] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*community.CommunityPayload](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("provider", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening provider circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("provider", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("provider circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
