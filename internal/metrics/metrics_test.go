// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCache(t *testing.T) {
	before := testutil.ToFloat64(CacheRequests.WithLabelValues("pool", "hit"))
	RecordCache("pool", true)
	after := testutil.ToFloat64(CacheRequests.WithLabelValues("pool", "hit"))

	if after != before+1 {
		t.Errorf("expected hit counter to increment by 1, got %v -> %v", before, after)
	}

	beforeMiss := testutil.ToFloat64(CacheRequests.WithLabelValues("pool", "miss"))
	RecordCache("pool", false)
	afterMiss := testutil.ToFloat64(CacheRequests.WithLabelValues("pool", "miss"))

	if afterMiss != beforeMiss+1 {
		t.Errorf("expected miss counter to increment by 1, got %v -> %v", beforeMiss, afterMiss)
	}
}

func TestProviderCountersRegistered(t *testing.T) {
	// Touching each vec with labels must not panic; promauto registration
	// happens at package init and duplicate registration would have paniced there.
	ProviderRequests.WithLabelValues("structured", "search", "ok").Add(0)
	ProviderFallbacks.WithLabelValues("knowledge", "structured").Add(0)
	CircuitBreakerState.WithLabelValues("structured").Set(0)
	CategoryFailures.WithLabelValues("dining").Add(0)
}
