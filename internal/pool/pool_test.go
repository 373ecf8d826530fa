// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package pool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/provider"
)

func newStore(t *testing.T) *cache.Memory {
	t.Helper()
	m := cache.NewMemory(1 * time.Hour)
	t.Cleanup(m.Close)
	return m
}

func countingFetch(calls *int, places ...provider.ScoredPlace) FetchFunc {
	return func(_ context.Context, queries []string) ([]provider.ScoredPlace, error) {
		*calls++
		out := make([]provider.ScoredPlace, len(places))
		copy(out, places)
		// Attribute every place to the first query for source tracking.
		if len(queries) > 0 {
			for i := range out {
				if out[i].Query == "" {
					out[i].Query = queries[0]
				}
			}
		}
		return out, nil
	}
}

func TestGetPooledPlacesIdempotentWithinWindow(t *testing.T) {
	store := newStore(t)
	m := NewManager(store, Config{})
	ctx := context.Background()

	calls := 0
	fetch := countingFetch(&calls,
		provider.ScoredPlace{ID: "a", Name: "A"},
		provider.ScoredPlace{ID: "b", Name: "B"},
	)
	queries := []string{"best restaurants in Austin, TX"}

	first, err := m.GetPooledPlaces(ctx, "78701", community.CategoryDining, queries, fetch)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := m.GetPooledPlaces(ctx, "78701", community.CategoryDining, queries, fetch)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected zero additional provider calls on warm pool, got %d total", calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("expected 2 entries both calls, got %d and %d", len(first), len(second))
	}
}

func TestGetPooledPlacesRefreshesStalePool(t *testing.T) {
	store := newStore(t)
	current := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(store, Config{StalenessWindow: 24 * time.Hour}).WithClock(func() time.Time { return current })
	ctx := context.Background()

	calls := 0
	fetch := countingFetch(&calls, provider.ScoredPlace{ID: "a", Name: "A"})
	queries := []string{"q"}

	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, queries, fetch)

	// Within the window: cached.
	current = current.Add(12 * time.Hour)
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, queries, fetch)
	if calls != 1 {
		t.Fatalf("expected cache hit within window, got %d calls", calls)
	}

	// Past the window: refetched.
	current = current.Add(13 * time.Hour)
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, queries, fetch)
	if calls != 2 {
		t.Errorf("expected refetch past staleness window, got %d calls", calls)
	}
}

func TestGetPooledPlacesMergePrefersFreshAndCaps(t *testing.T) {
	store := newStore(t)
	m := NewManager(store, Config{})
	ctx := context.Background()

	cfg := community.ConfigFor(community.CategoryDining)

	// Seed a pool with more entries than PoolMax can keep after merging.
	seed := community.PlacePool{FetchedAt: time.Now().Add(-100 * 24 * time.Hour)}
	for i := 0; i < cfg.PoolMax; i++ {
		seed.Entries = append(seed.Entries, community.PlacePoolEntry{
			ID:            fmt.Sprintf("old-%d", i),
			SourceQueries: []string{"old query"},
		})
	}
	cache.SetJSON(ctx, store, community.KeyPool("78701", community.CategoryDining), seed, time.Hour)

	calls := 0
	fresh := []provider.ScoredPlace{
		{ID: "old-0", Name: "Old Zero", Query: "new query"}, // overlaps cached
		{ID: "new-1", Name: "New One", Query: "new query"},
	}
	entries, err := m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{"new query"}, countingFetch(&calls, fresh...))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(entries) != cfg.PoolMax {
		t.Errorf("expected pool capped at %d, got %d", cfg.PoolMax, len(entries))
	}

	// Fresh entries come first; the overlapping entry keeps both queries.
	if entries[0].ID != "old-0" || entries[1].ID != "new-1" {
		t.Errorf("expected fresh entries first, got %v %v", entries[0].ID, entries[1].ID)
	}
	if len(entries[0].SourceQueries) != 2 {
		t.Errorf("expected merged source queries on overlap, got %v", entries[0].SourceQueries)
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.ID] {
			t.Errorf("duplicate identity %q in pool", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestGetPooledPlacesServesStaleOnFetchFailure(t *testing.T) {
	store := newStore(t)
	current := time.Now()
	m := NewManager(store, Config{StalenessWindow: time.Hour}).WithClock(func() time.Time { return current })
	ctx := context.Background()

	calls := 0
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{"q"}, countingFetch(&calls, provider.ScoredPlace{ID: "a", Name: "A"}))

	current = current.Add(2 * time.Hour) // stale now

	failing := func(_ context.Context, _ []string) ([]provider.ScoredPlace, error) {
		return nil, fmt.Errorf("provider down")
	}
	entries, err := m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{"q"}, failing)
	if err != nil {
		t.Fatalf("expected stale entries instead of error, got %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("expected stale pool served, got %v", entries)
	}
}

func TestGetPooledPlacesErrorsOnColdFetchFailure(t *testing.T) {
	m := NewManager(newStore(t), Config{})

	failing := func(_ context.Context, _ []string) ([]provider.ScoredPlace, error) {
		return nil, fmt.Errorf("provider down")
	}
	if _, err := m.GetPooledPlaces(context.Background(), "78701", community.CategoryDining, []string{"q"}, failing); err == nil {
		t.Fatal("expected error when no cached pool exists")
	}
}

func TestAugmentForAudienceSkipsCoveredQueries(t *testing.T) {
	store := newStore(t)
	m := NewManager(store, Config{})
	ctx := context.Background()

	baseCalls := 0
	baseQueries := []string{"family friendly dining in Austin, TX"}
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, baseQueries,
		countingFetch(&baseCalls, provider.ScoredPlace{ID: "fam", Name: "Family Spot"}))

	// The audience asks for exactly the queries the base pool already
	// covers: zero new search calls may be issued.
	audienceCalls := 0
	entries, err := m.AugmentForAudience(ctx, "78701", community.CategoryDining, baseQueries,
		countingFetch(&audienceCalls))
	if err != nil {
		t.Fatalf("augment: %v", err)
	}

	if audienceCalls != 0 {
		t.Errorf("covered queries must not be re-searched, got %d calls", audienceCalls)
	}
	if len(entries) != 1 || entries[0].ID != "fam" {
		t.Errorf("expected audience-relevant base entry, got %v", entries)
	}
}

func TestAugmentForAudienceFetchesOnlyMissingQueries(t *testing.T) {
	store := newStore(t)
	m := NewManager(store, Config{})
	ctx := context.Background()

	covered := "best restaurants in Austin, TX"
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{covered},
		countingFetch(new(int), provider.ScoredPlace{ID: "base", Name: "Base"}))

	var gotQueries []string
	fetch := func(_ context.Context, queries []string) ([]provider.ScoredPlace, error) {
		gotQueries = queries
		return []provider.ScoredPlace{{ID: "aud", Name: "Audience Spot", Query: queries[0]}}, nil
	}

	missing := "kid friendly restaurants in Austin, TX"
	entries, err := m.AugmentForAudience(ctx, "78701", community.CategoryDining, []string{covered, missing}, fetch)
	if err != nil {
		t.Fatalf("augment: %v", err)
	}

	if len(gotQueries) != 1 || gotQueries[0] != missing {
		t.Errorf("expected only the uncovered query fetched, got %v", gotQueries)
	}

	// Both the base entry (covered query) and the new audience entry are
	// relevant to the audience set.
	if len(entries) != 2 {
		t.Errorf("expected 2 audience-relevant entries, got %v", entries)
	}
}

func TestAugmentDoesNotResetBaseStaleness(t *testing.T) {
	store := newStore(t)
	current := time.Now()
	m := NewManager(store, Config{StalenessWindow: time.Hour}).WithClock(func() time.Time { return current })
	ctx := context.Background()

	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{"base q"},
		countingFetch(new(int), provider.ScoredPlace{ID: "base", Name: "Base"}))

	// Augmentation happens just before the base pool goes stale.
	current = current.Add(59 * time.Minute)
	m.AugmentForAudience(ctx, "78701", community.CategoryDining, []string{"aud q"},
		countingFetch(new(int), provider.ScoredPlace{ID: "aud", Name: "Aud"}))

	// Past the original window the base pool must refetch: augmentation is
	// append-only and must not have refreshed the staleness clock.
	current = current.Add(2 * time.Minute)
	refetches := 0
	m.GetPooledPlaces(ctx, "78701", community.CategoryDining, []string{"base q"},
		countingFetch(&refetches, provider.ScoredPlace{ID: "base", Name: "Base"}))

	if refetches != 1 {
		t.Errorf("expected base pool to refetch after window despite augmentation, got %d", refetches)
	}
}

func TestIsPoolStale(t *testing.T) {
	current := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(nil, Config{StalenessWindow: 24 * time.Hour}).WithClock(func() time.Time { return current })

	tests := []struct {
		name      string
		fetchedAt time.Time
		want      bool
	}{
		{"zero time", time.Time{}, true},
		{"fresh", current.Add(-1 * time.Hour), false},
		{"boundary", current.Add(-24 * time.Hour), false},
		{"stale", current.Add(-25 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.IsPoolStale(tt.fetchedAt); got != tt.want {
				t.Errorf("IsPoolStale(%v) = %v, want %v", tt.fetchedAt, got, tt.want)
			}
		})
	}
}
