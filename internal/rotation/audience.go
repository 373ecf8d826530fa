// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package rotation

import (
	"context"
	"time"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// audienceStateTTL matches the cycle state retention window.
const audienceStateTTL = 90 * 24 * time.Hour

// audienceState is the persisted last-served segment for a (user, category).
type audienceState struct {
	LastSegment string `json:"last_segment"`
}

// AudienceRotator round-robins through a user's configured audience segments
// per category, guaranteeing every segment is eventually served rather than
// leaving selection to chance.
type AudienceRotator struct {
	store cache.Store
}

// NewAudienceRotator creates an audience segment rotator backed by store.
// A nil store degrades to always serving the first configured segment.
func NewAudienceRotator(store cache.Store) *AudienceRotator {
	return &AudienceRotator{store: store}
}

// Rotate returns at most one segment to serve this turn for the
// (user, category) pair. With zero segments it returns empty; with one
// segment, or without a cache, it returns the first segment statelessly.
func (r *AudienceRotator) Rotate(ctx context.Context, userID string, category community.CategoryKey, segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	if len(segments) == 1 || r.store == nil {
		return segments[0]
	}

	key := community.KeyAudienceRotation(userID, category)

	var state audienceState
	hit := cache.GetJSON(ctx, r.store, key, &state)
	metrics.RecordCache("cycle", hit)

	next := segments[(indexOf(segments, state.LastSegment)+1)%len(segments)]
	cache.SetJSON(ctx, r.store, key, audienceState{LastSegment: next}, audienceStateTTL)
	return next
}

// indexOf returns the position of segment in segments, or -1 when absent
// (including the cold-cache case), so the first rotation serves segments[0].
func indexOf(segments []string, segment string) int {
	for i, s := range segments {
		if s == segment {
			return i
		}
	}
	return -1
}
