// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package pool manages the cached candidate place pool per (zip, category).
// A pool is the raw deduplicated set of search results before hydration; it
// carries identities and source queries only, so refreshing it never
// invalidates the independently cached per-place details.
package pool

import (
	"context"
	"time"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
	"github.com/porchlight-labs/porchlight/internal/provider"
)

// DefaultStalenessWindow is how old a pool may get before it is refetched.
// Distinct from the cache TTL: the TTL keeps the record readable for
// merging, the staleness window decides when to pay for fresh data.
// Inherited behavior; override via Config rather than re-derive.
const DefaultStalenessWindow = 14 * 24 * time.Hour

// poolRecordTTL keeps pool records in the store well past staleness so a
// refresh can merge still-valid entries instead of starting cold.
const poolRecordTTL = 60 * 24 * time.Hour

// FetchFunc issues the given search queries and returns scored places.
// In production this is the planner + provider router composition.
type FetchFunc func(ctx context.Context, queries []string) ([]provider.ScoredPlace, error)

// Config tunes the pool manager.
type Config struct {
	// StalenessWindow overrides DefaultStalenessWindow when positive.
	StalenessWindow time.Duration
}

// Manager is the place pool manager.
type Manager struct {
	store     cache.Store
	staleness time.Duration
	now       func() time.Time
}

// NewManager creates a pool manager backed by store. A nil store degrades to
// always fetching fresh and never persisting.
func NewManager(store cache.Store, cfg Config) *Manager {
	staleness := cfg.StalenessWindow
	if staleness <= 0 {
		staleness = DefaultStalenessWindow
	}
	return &Manager{store: store, staleness: staleness, now: time.Now}
}

// WithClock overrides the staleness clock. For tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// IsPoolStale reports whether a pool fetched at the given time must be
// refreshed before serving.
func (m *Manager) IsPoolStale(fetchedAt time.Time) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return m.now().Sub(fetchedAt) > m.staleness
}

// GetPooledPlaces returns the candidate pool for a (zip, category). On a
// fresh cache hit the cached entries are returned without any provider
// call; on miss or staleness, fetch runs the planned queries and the result
// is merged with any still-valid cached entries (dedup by identity, fresh
// attributes win), capped at the category's pool ceiling, and persisted
// with a new fetch timestamp.
func (m *Manager) GetPooledPlaces(ctx context.Context, zip string, category community.CategoryKey, queries []string, fetch FetchFunc) ([]community.PlacePoolEntry, error) {
	key := community.KeyPool(zip, category)

	var cached community.PlacePool
	hit := cache.GetJSON(ctx, m.store, key, &cached)

	if hit && !m.IsPoolStale(cached.FetchedAt) {
		metrics.RecordCache("pool", true)
		return cached.Entries, nil
	}
	metrics.RecordCache("pool", false)

	scored, err := fetch(ctx, queries)
	if err != nil {
		// A stale pool beats no pool when the provider is down.
		if hit && len(cached.Entries) > 0 {
			logging.Ctx(ctx).Warn().Err(err).
				Str("category", string(category)).
				Msg("pool refresh failed, serving stale entries")
			return cached.Entries, nil
		}
		return nil, err
	}

	merged := mergeEntries(scored, cached.Entries, community.ConfigFor(category).PoolMax)
	next := community.PlacePool{Entries: merged, FetchedAt: m.now()}
	cache.SetJSON(ctx, m.store, key, next, poolRecordTTL)

	logging.Ctx(ctx).Debug().
		Str("category", string(category)).
		Int("fetched", len(scored)).
		Int("pool_size", len(merged)).
		Msg("pool refreshed")

	return merged, nil
}

// AugmentForAudience layers audience-specific queries onto the base pool
// without re-issuing searches the base pool already covers. Only queries
// absent from the pool's source queries are fetched; new entries are
// appended to the pool record without touching its fetch timestamp, keeping
// base staleness and audience augmentation independent.
//
// The returned entries are the audience-relevant subset: every entry whose
// source queries intersect audienceQueries.
func (m *Manager) AugmentForAudience(ctx context.Context, zip string, category community.CategoryKey, audienceQueries []string, fetch FetchFunc) ([]community.PlacePoolEntry, error) {
	key := community.KeyPool(zip, category)

	var pool community.PlacePool
	hit := cache.GetJSON(ctx, m.store, key, &pool)
	metrics.RecordCache("pool", hit)

	covered := pool.CoveredQueries()
	var missing []string
	for _, q := range audienceQueries {
		if _, ok := covered[q]; !ok {
			missing = append(missing, q)
		}
	}

	if len(missing) > 0 {
		scored, err := fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		// Audience entries are append-only on top of the base pool; no cap
		// reshuffle and no FetchedAt update, so the base staleness clock is
		// untouched.
		pool.Entries = appendNew(pool.Entries, scored)
		cache.SetJSON(ctx, m.store, key, pool, poolRecordTTL)
	}

	want := make(map[string]struct{}, len(audienceQueries))
	for _, q := range audienceQueries {
		want[q] = struct{}{}
	}

	var out []community.PlacePoolEntry
	for _, e := range pool.Entries {
		for _, q := range e.SourceQueries {
			if _, ok := want[q]; ok {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

// mergeEntries deduplicates fresh results against still-valid cached
// entries. Fresh entries win on conflict (their source queries absorb the
// cached ones) and come first, so the cap preferentially keeps new data.
func mergeEntries(fresh []provider.ScoredPlace, cached []community.PlacePoolEntry, limit int) []community.PlacePoolEntry {
	out := make([]community.PlacePoolEntry, 0, len(fresh)+len(cached))
	index := make(map[string]int, len(fresh))

	for _, p := range fresh {
		id := p.ID
		if id == "" {
			id = community.NormalizeIdentity(p.Name, p.Address)
		}
		if at, dup := index[id]; dup {
			out[at].SourceQueries = appendQuery(out[at].SourceQueries, p.Query)
			continue
		}
		index[id] = len(out)
		entry := community.PlacePoolEntry{ID: id}
		entry.SourceQueries = appendQuery(entry.SourceQueries, p.Query)
		out = append(out, entry)
	}

	for _, e := range cached {
		if at, dup := index[e.ID]; dup {
			for _, q := range e.SourceQueries {
				out[at].SourceQueries = appendQuery(out[at].SourceQueries, q)
			}
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// appendNew appends scored places not already present in entries.
func appendNew(entries []community.PlacePoolEntry, scored []provider.ScoredPlace) []community.PlacePoolEntry {
	known := make(map[string]int, len(entries))
	for i, e := range entries {
		known[e.ID] = i
	}
	for _, p := range scored {
		id := p.ID
		if id == "" {
			id = community.NormalizeIdentity(p.Name, p.Address)
		}
		if at, dup := known[id]; dup {
			entries[at].SourceQueries = appendQuery(entries[at].SourceQueries, p.Query)
			continue
		}
		known[id] = len(entries)
		entry := community.PlacePoolEntry{ID: id}
		entry.SourceQueries = appendQuery(entry.SourceQueries, p.Query)
		entries = append(entries, entry)
	}
	return entries
}

func appendQuery(queries []string, q string) []string {
	if q == "" {
		return queries
	}
	for _, existing := range queries {
		if existing == q {
			return queries
		}
	}
	return append(queries, q)
}
