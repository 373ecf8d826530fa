// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/porchlight-labs/porchlight/internal/assemble"
	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
	"github.com/porchlight-labs/porchlight/internal/planner"
	"github.com/porchlight-labs/porchlight/internal/provider"
)

// structuredBranch builds the community payload from the places-search
// provider: plan queries, fill pools, hydrate details, assemble blocks. The
// neighborhoods category is always included. Categories fail independently;
// a category that errors is omitted rather than sinking its siblings.
func (e *Engine) structuredBranch(ctx context.Context, loc community.Location, _ string, categories []community.CategoryKey) (*community.CommunityPayload, error) {
	withNeighborhoods := categories
	if !containsCategory(categories, community.CategoryNeighborhoods) {
		withNeighborhoods = append([]community.CategoryKey{community.CategoryNeighborhoods}, categories...)
	}

	plans := e.planner.Plan(withNeighborhoods, loc)
	e.planner.EstimateSearchCalls(plans)
	e.planner.EstimateDetailCalls(withNeighborhoods)

	var mu sync.Mutex
	blocks := make(map[community.CategoryKey]string, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for _, plan := range plans {
		g.Go(func() error {
			block, err := e.categoryBlock(gctx, loc, plan)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.CategoryFailures.WithLabelValues(string(plan.Category)).Inc()
				logging.Ctx(gctx).Warn().Err(err).
					Str("category", string(plan.Category)).
					Msg("category build failed, omitting from payload")
				return nil
			}
			mu.Lock()
			blocks[plan.Category] = block
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	payload := &community.CommunityPayload{
		ZIP:           loc.ZIP,
		Categories:    blocks,
		Neighborhoods: blocks[community.CategoryNeighborhoods],
		Source:        "structured",
	}
	delete(payload.Categories, community.CategoryNeighborhoods)
	return payload, nil
}

// categoryBlock produces one category's formatted block, reading through the
// per-category block cache.
func (e *Engine) categoryBlock(ctx context.Context, loc community.Location, plan planner.QueryPlan) (string, error) {
	key := community.KeyCategory(loc.ZIP, plan.Category)

	var cached string
	if cache.GetJSON(ctx, e.store, key, &cached) {
		metrics.RecordCache("category", true)
		return cached, nil
	}
	metrics.RecordCache("category", false)

	places, err := e.placesFor(ctx, loc, plan)
	if err != nil {
		return "", err
	}

	cfg := community.ConfigFor(plan.Category)
	block := assemble.Assemble(places, cfg, cfg.DisplayLimit, true)
	cache.SetJSON(ctx, e.store, key, block, e.payloadTTL)
	return block, nil
}

// placesFor runs the pool and hydration tiers for one plan and marks
// fallback-only places for assembly's admission gate. Hydration is lazy:
// only the leading display-limit slice of the pool pays for detail calls,
// not the whole accumulated pool.
func (e *Engine) placesFor(ctx context.Context, loc community.Location, plan planner.QueryPlan) ([]community.Place, error) {
	entries, err := e.pools.GetPooledPlaces(ctx, loc.ZIP, plan.Category, plan.Queries, e.searchFetch(loc, plan.MaxResults))
	if err != nil {
		return nil, err
	}

	limit := community.ConfigFor(plan.Category).DisplayLimit
	places, err := e.hydrator.Hydrate(ctx, displayed(entries, limit), plan.Category, e.search.GetDetails)
	if err != nil {
		return nil, err
	}
	for i := range places {
		places[i].Fallback = plan.FallbackOnly(places[i].SourceQueries)
	}
	return places, nil
}

// displayed caps pool entries to the slice the rendered block can show.
// Pool order is provider relevance order, fresh entries first.
func displayed(entries []community.PlacePoolEntry, limit int) []community.PlacePoolEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// searchFetch adapts the search client into the pool manager's fetch shape.
func (e *Engine) searchFetch(loc community.Location, maxResults int) func(ctx context.Context, queries []string) ([]provider.ScoredPlace, error) {
	return func(ctx context.Context, queries []string) ([]provider.ScoredPlace, error) {
		return e.search.Search(ctx, queries, loc, maxResults)
	}
}

// audienceDeltas computes (or serves cached) per-category delta blocks for
// one audience segment. Only audience-augmentable categories among the
// selected set participate. Failures degrade to omitting the category.
func (e *Engine) audienceDeltas(ctx context.Context, zip, segment string, categories []community.CategoryKey) map[community.CategoryKey]string {
	if e.search == nil {
		return nil
	}
	key := community.KeyAudience(zip, segment)

	var cached map[community.CategoryKey]string
	if cache.GetJSON(ctx, e.store, key, &cached) {
		metrics.RecordCache("audience", true)
		return cached
	}
	metrics.RecordCache("audience", false)

	loc, err := e.resolver.Resolve(ctx, zip)
	if err != nil || loc == nil {
		logging.Ctx(ctx).Warn().Err(err).Str("zip", zip).Msg("audience deltas skipped, location unavailable")
		return nil
	}

	deltas := make(map[community.CategoryKey]string)
	for _, category := range categories {
		cfg := community.ConfigFor(category)
		if !cfg.AudienceAugmentable {
			continue
		}
		block, derr := e.audienceDelta(ctx, *loc, category, segment, cfg)
		if derr != nil {
			logging.Ctx(ctx).Warn().Err(derr).
				Str("category", string(category)).
				Str("segment", segment).
				Msg("audience delta failed, omitting category")
			continue
		}
		deltas[category] = block
	}

	if len(deltas) > 0 {
		cache.SetJSON(ctx, e.store, key, deltas, audienceDeltaTTL)
	}
	return deltas
}

// audienceDelta builds one category's audience block: augment the base pool
// with audience-specific queries, hydrate the audience-relevant entries, and
// emit only the places the base block does not already show.
func (e *Engine) audienceDelta(ctx context.Context, loc community.Location, category community.CategoryKey, segment string, cfg community.CategoryConfig) (string, error) {
	plan := e.planner.Plan([]community.CategoryKey{category}, loc)[0]
	fetch := e.searchFetch(loc, plan.MaxResults)

	baseEntries, err := e.pools.GetPooledPlaces(ctx, loc.ZIP, category, plan.Queries, fetch)
	if err != nil {
		return "", err
	}
	basePlaces, err := e.hydrator.Hydrate(ctx, displayed(baseEntries, cfg.DisplayLimit), category, e.search.GetDetails)
	if err != nil {
		return "", err
	}

	audienceEntries, err := e.pools.AugmentForAudience(ctx, loc.ZIP, category, audienceQueries(segment, category, loc), fetch)
	if err != nil {
		return "", err
	}
	audiencePlaces, err := e.hydrator.Hydrate(ctx, displayed(audienceEntries, cfg.DisplayLimit), category, e.search.GetDetails)
	if err != nil {
		return "", err
	}

	return assemble.Delta(basePlaces, audiencePlaces, cfg, cfg.DisplayLimit), nil
}

// audienceQueries derives the audience-specific search queries for a
// category. Query text is deterministic so pool source-query coverage can
// suppress repeat searches across requests.
func audienceQueries(segment string, category community.CategoryKey, loc community.Location) []string {
	noun := strings.ReplaceAll(string(category), "_", " ")
	return []string{
		fmt.Sprintf("best %s for %s in %s", noun, segment, loc.DisplayName()),
	}
}

func containsCategory(categories []community.CategoryKey, want community.CategoryKey) bool {
	for _, c := range categories {
		if c == want {
			return true
		}
	}
	return false
}
