// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package hydrate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
	"github.com/porchlight-labs/porchlight/internal/provider"
)

// DefaultDetailTTL keeps hydrated detail records for a month. Detail churn
// is slow relative to pool membership, so this can run much longer than the
// pool staleness window.
const DefaultDetailTTL = 30 * 24 * time.Hour

// DefaultConcurrency bounds parallel detail fetches per hydration call so a
// large pool cannot burn through the provider's rate limit.
const DefaultConcurrency = 5

// maxKeywords caps the keyword list derived from type tags.
const maxKeywords = 4

// genericTypes are provider type tags too vague to tell a reader anything.
var genericTypes = map[string]struct{}{
	"establishment":     {},
	"point_of_interest": {},
	"food":              {},
	"store":             {},
	"place":             {},
	"business":          {},
	"premise":           {},
	"locality":          {},
}

// DetailsFunc fetches rich details for one place. A nil, nil return means
// the provider has no record for the ID.
type DetailsFunc func(ctx context.Context, placeID string) (*provider.PlaceDetails, error)

// Config tunes the hydrator.
type Config struct {
	// DetailTTL overrides DefaultDetailTTL when positive.
	DetailTTL time.Duration

	// Concurrency overrides DefaultConcurrency when positive.
	Concurrency int
}

// Hydrator turns pool entries into fully populated places, reading through a
// per-place detail cache.
type Hydrator struct {
	store       cache.Store
	ttl         time.Duration
	concurrency int
}

// NewHydrator creates a hydrator backed by store. A nil store degrades to
// fetching every detail fresh.
func NewHydrator(store cache.Store, cfg Config) *Hydrator {
	ttl := cfg.DetailTTL
	if ttl <= 0 {
		ttl = DefaultDetailTTL
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Hydrator{store: store, ttl: ttl, concurrency: concurrency}
}

// Hydrate resolves details for each pool entry concurrently, bounded by the
// configured concurrency. Entries whose details cannot be fetched are
// dropped and siblings continue; only parent-context cancellation aborts the
// whole call. Output order follows input order.
func (h *Hydrator) Hydrate(ctx context.Context, entries []community.PlacePoolEntry, category community.CategoryKey, getDetails DetailsFunc) ([]community.Place, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	results := make([]*community.Place, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			details, err := h.lookup(gctx, entry.ID, getDetails)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.HydrationDrops.Inc()
				logging.Ctx(gctx).Debug().Err(err).
					Str("place_id", entry.ID).
					Str("category", string(category)).
					Msg("hydration failed, dropping place")
				return nil
			}
			if details == nil {
				metrics.HydrationDrops.Inc()
				return nil
			}
			place := buildPlace(details, entry, category)
			results[i] = &place
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]community.Place, 0, len(entries))
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// lookup reads the detail cache before paying for a provider call. Provider
// misses (nil, nil) are not cached: a place absent today may be indexed
// tomorrow, and pools containing it are already short-lived.
func (h *Hydrator) lookup(ctx context.Context, placeID string, getDetails DetailsFunc) (*provider.PlaceDetails, error) {
	key := community.KeyDetails(placeID)

	var cached provider.PlaceDetails
	if cache.GetJSON(ctx, h.store, key, &cached) {
		metrics.RecordCache("details", true)
		return &cached, nil
	}
	metrics.RecordCache("details", false)

	details, err := getDetails(ctx, placeID)
	if err != nil || details == nil {
		return details, err
	}
	cache.SetJSON(ctx, h.store, key, details, h.ttl)
	return details, nil
}

// buildPlace maps a detail record onto the assembly-ready Place. Summary
// wins over keywords when the provider produced one.
func buildPlace(d *provider.PlaceDetails, entry community.PlacePoolEntry, category community.CategoryKey) community.Place {
	p := community.Place{
		ID:            d.ID,
		Name:          d.Name,
		Rating:        d.Rating,
		ReviewCount:   d.ReviewCount,
		Address:       d.Address,
		Category:      category,
		SourceQueries: entry.SourceQueries,
	}
	if p.ID == "" {
		p.ID = entry.ID
	}
	if summary := strings.TrimSpace(d.Summary); summary != "" {
		p.Summary = summary
	} else {
		p.Keywords = deriveKeywords(d.PrimaryType, d.Types)
	}
	return p
}

// deriveKeywords turns provider type tags into a short human-readable list.
// The primary type leads, generic tags are filtered, underscores become
// spaces, and the list caps at maxKeywords.
func deriveKeywords(primaryType string, types []string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return
		}
		if _, generic := genericTypes[tag]; generic {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, strings.ReplaceAll(tag, "_", " "))
	}

	add(primaryType)
	for _, t := range types {
		if len(out) >= maxKeywords {
			break
		}
		add(t)
	}
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}
