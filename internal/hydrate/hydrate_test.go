// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package hydrate

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
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

func entriesFor(ids ...string) []community.PlacePoolEntry {
	out := make([]community.PlacePoolEntry, len(ids))
	for i, id := range ids {
		out[i] = community.PlacePoolEntry{ID: id, SourceQueries: []string{"q"}}
	}
	return out
}

func TestHydrateCachesDetailsPerPlace(t *testing.T) {
	store := newStore(t)
	h := NewHydrator(store, Config{})
	ctx := context.Background()

	var calls int64
	getDetails := func(_ context.Context, id string) (*provider.PlaceDetails, error) {
		atomic.AddInt64(&calls, 1)
		return &provider.PlaceDetails{ID: id, Name: "Place " + id, Rating: 4.5, ReviewCount: 100}, nil
	}

	entries := entriesFor("a", "b")
	first, err := h.Hydrate(ctx, entries, community.CategoryDining, getDetails)
	if err != nil {
		t.Fatalf("first hydrate: %v", err)
	}
	second, err := h.Hydrate(ctx, entries, community.CategoryDining, getDetails)
	if err != nil {
		t.Fatalf("second hydrate: %v", err)
	}

	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("expected 2 detail fetches total across both calls, got %d", got)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("expected 2 places both calls, got %d and %d", len(first), len(second))
	}
	if second[0].Name != "Place a" || second[0].Category != community.CategoryDining {
		t.Errorf("unexpected cached place: %+v", second[0])
	}
}

func TestHydrateDropsOnMissAndError(t *testing.T) {
	h := NewHydrator(newStore(t), Config{})

	getDetails := func(_ context.Context, id string) (*provider.PlaceDetails, error) {
		switch id {
		case "missing":
			return nil, nil
		case "broken":
			return nil, fmt.Errorf("provider down")
		default:
			return &provider.PlaceDetails{ID: id, Name: "OK"}, nil
		}
	}

	places, err := h.Hydrate(context.Background(), entriesFor("ok", "missing", "broken"), community.CategoryDining, getDetails)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if len(places) != 1 || places[0].ID != "ok" {
		t.Errorf("expected only the healthy place, got %v", places)
	}
}

func TestHydratePreservesInputOrder(t *testing.T) {
	h := NewHydrator(newStore(t), Config{Concurrency: 8})

	getDetails := func(_ context.Context, id string) (*provider.PlaceDetails, error) {
		// Stagger completion to shake out ordering bugs.
		if id == "a" {
			time.Sleep(20 * time.Millisecond)
		}
		return &provider.PlaceDetails{ID: id, Name: id}, nil
	}

	places, err := h.Hydrate(context.Background(), entriesFor("a", "b", "c", "d"), community.CategoryShopping, getDetails)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	var got []string
	for _, p := range places {
		got = append(got, p.ID)
	}
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestHydrateBoundsConcurrency(t *testing.T) {
	h := NewHydrator(newStore(t), Config{Concurrency: 2})

	var mu sync.Mutex
	inFlight, peak := 0, 0
	getDetails := func(_ context.Context, id string) (*provider.PlaceDetails, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return &provider.PlaceDetails{ID: id}, nil
	}

	if _, err := h.Hydrate(context.Background(), entriesFor("a", "b", "c", "d", "e", "f"), community.CategoryDining, getDetails); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds limit 2", peak)
	}
}

func TestHydratePrefersSummaryOverKeywords(t *testing.T) {
	h := NewHydrator(newStore(t), Config{})

	getDetails := func(_ context.Context, id string) (*provider.PlaceDetails, error) {
		if id == "summarized" {
			return &provider.PlaceDetails{
				ID:      id,
				Summary: "  A beloved neighborhood bakery.  ",
				Types:   []string{"bakery"},
			}, nil
		}
		return &provider.PlaceDetails{
			ID:          id,
			PrimaryType: "coffee_shop",
			Types:       []string{"establishment", "cafe", "point_of_interest", "food", "bakery", "breakfast_restaurant"},
		}, nil
	}

	places, err := h.Hydrate(context.Background(), entriesFor("summarized", "typed"), community.CategoryCoffeeBrunch, getDetails)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	if places[0].Summary != "A beloved neighborhood bakery." {
		t.Errorf("summary = %q, want trimmed provider summary", places[0].Summary)
	}
	if places[0].Keywords != nil {
		t.Errorf("summary and keywords are mutually exclusive, got keywords %v", places[0].Keywords)
	}

	want := []string{"coffee shop", "cafe", "bakery", "breakfast restaurant"}
	if !reflect.DeepEqual(places[1].Keywords, want) {
		t.Errorf("keywords = %v, want %v", places[1].Keywords, want)
	}
}

func TestDeriveKeywords(t *testing.T) {
	tests := []struct {
		name        string
		primaryType string
		types       []string
		want        []string
	}{
		{
			name:        "generic tags filtered",
			primaryType: "establishment",
			types:       []string{"point_of_interest", "food", "store"},
			want:        nil,
		},
		{
			name:        "primary leads and dedups",
			primaryType: "italian_restaurant",
			types:       []string{"italian_restaurant", "restaurant"},
			want:        []string{"italian restaurant", "restaurant"},
		},
		{
			name:        "capped at four",
			primaryType: "park",
			types:       []string{"hiking_area", "playground", "dog_park", "picnic_ground"},
			want:        []string{"park", "hiking area", "playground", "dog park"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveKeywords(tt.primaryType, tt.types)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("deriveKeywords() = %v, want %v", got, tt.want)
			}
		})
	}
}
