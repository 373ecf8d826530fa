// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package provider

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// BranchFunc is one provider branch: given a resolved location, an optional
// audience segment, and the categories selected for this turn, produce the
// per-category community payload. The structured branch composes planner +
// pool + hydration + assembly for exactly the selected categories; the
// knowledge branch issues a single schema-constrained generative query and
// may cover more categories than asked, since its payload is cached per ZIP
// across users with different rotations.
type BranchFunc func(ctx context.Context, loc community.Location, audience string, categories []community.CategoryKey) (*community.CommunityPayload, error)

// branch pairs a BranchFunc with its breaker and cache namespace.
type branch struct {
	name     string
	fetch    BranchFunc
	breaker  *gobreaker.CircuitBreaker[*community.CommunityPayload]
	cacheKey func(zip, audience string) string // nil when the branch caches internally
}

// RouterConfig configures the provider router.
type RouterConfig struct {
	// Preference selects the branch tried first.
	Preference Preference

	// PayloadTTL bounds branch-level payload caching.
	PayloadTTL time.Duration
}

// Router picks between the structured and knowledge provider branches.
// The preferred branch is tried first; on error, a tripped breaker, or an
// empty payload, the other branch is tried exactly once. Location
// resolution failure short-circuits to nil without touching either branch.
type Router struct {
	resolver  LocationResolver
	store     cache.Store
	ttl       time.Duration
	primary   branch
	secondary branch
}

// NewRouter builds a provider router. structured and knowledge are the two
// branch pipelines; which one is primary follows cfg.Preference.
func NewRouter(resolver LocationResolver, store cache.Store, cfg RouterConfig, structured, knowledge BranchFunc) *Router {
	if cfg.PayloadTTL <= 0 {
		cfg.PayloadTTL = 24 * time.Hour
	}

	structuredBranch := branch{
		name:    "structured",
		fetch:   structured,
		breaker: newBranchBreaker("structured"),
		// The structured pipeline caches per category internally
		// (community:category:*), so no branch-level key.
	}
	knowledgeBranch := branch{
		name:    "knowledge",
		fetch:   knowledge,
		breaker: newBranchBreaker("knowledge"),
		cacheKey: func(zip, audience string) string {
			key := community.KeyKnowledge(zip)
			if audience != "" {
				key += ":aud:" + audience
			}
			return key
		},
	}

	r := &Router{
		resolver:  resolver,
		store:     store,
		ttl:       cfg.PayloadTTL,
		primary:   structuredBranch,
		secondary: knowledgeBranch,
	}
	if cfg.Preference == PreferKnowledge {
		r.primary, r.secondary = knowledgeBranch, structuredBranch
	}
	return r
}

// GetCommunityData resolves the ZIP and returns the first non-empty payload
// from the preferred branch, falling back to the other branch once. Returns
// nil with a ValidationError when the location cannot be resolved, and nil
// with ErrNoProviders (wrapping both failures) when both branches fail.
func (r *Router) GetCommunityData(ctx context.Context, zip, audience string, categories []community.CategoryKey) (*community.CommunityPayload, error) {
	loc, err := r.resolver.Resolve(ctx, zip)
	if err != nil {
		return nil, community.NewDependencyError("resolver", "resolve", err)
	}
	if loc == nil {
		// No anchor: no point paying for a search.
		return nil, community.NewValidationError("zip", fmt.Sprintf("location %q could not be resolved", zip))
	}

	payload, primaryErr := r.tryBranch(ctx, r.primary, *loc, audience, categories)
	if primaryErr == nil && !payload.Empty() {
		return payload, nil
	}

	metrics.ProviderFallbacks.WithLabelValues(r.primary.name, r.secondary.name).Inc()
	logging.Ctx(ctx).Warn().
		Err(primaryErr).
		Str("from", r.primary.name).
		Str("to", r.secondary.name).
		Msg("falling back to secondary provider")

	payload, secondaryErr := r.tryBranch(ctx, r.secondary, *loc, audience, categories)
	if secondaryErr == nil && !payload.Empty() {
		return payload, nil
	}

	return nil, fmt.Errorf("%w: %s: %v; %s: %v",
		community.ErrNoProviders, r.primary.name, primaryErr, r.secondary.name, secondaryErr)
}

// tryBranch runs one branch behind its cache and breaker. An empty payload
// is normalized to an error so the caller's fallback logic has one shape.
func (r *Router) tryBranch(ctx context.Context, b branch, loc community.Location, audience string, categories []community.CategoryKey) (*community.CommunityPayload, error) {
	var key string
	if b.cacheKey != nil {
		key = b.cacheKey(loc.ZIP, audience)
		var cached community.CommunityPayload
		if hit := cache.GetJSON(ctx, r.store, key, &cached); hit {
			metrics.RecordCache("provider", true)
			return &cached, nil
		}
		metrics.RecordCache("provider", false)
	}

	payload, err := b.breaker.Execute(func() (*community.CommunityPayload, error) {
		p, ferr := b.fetch(ctx, loc, audience, categories)
		if ferr != nil {
			return nil, ferr
		}
		if p.Empty() {
			return nil, fmt.Errorf("%s provider returned empty payload", b.name)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	if key != "" {
		cache.SetJSON(ctx, r.store, key, payload, r.ttl)
	}
	return payload, nil
}
