// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package planner turns a set of categories and a resolved location into the
// concrete search queries to issue, folding in seasonal queries under a
// per-request call budget, and estimates the external-call cost of a request
// before any provider is touched.
package planner

import (
	"fmt"
	"time"

	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// DefaultSearchCallBudget bounds planned search queries per request.
// The budget shapes the plan; it is not a hard cap. Rejecting an
// over-budget request is the orchestrator's call.
const DefaultSearchCallBudget = 24

// QueryPlan is the planned work for one category.
type QueryPlan struct {
	Category community.CategoryKey

	// Queries holds the formatted primary queries followed by any fallback
	// queries, in issue order.
	Queries []string

	// FallbackQueries is the subset of Queries sourced from the category's
	// fallback templates. Places surfaced only by these are admission-gated
	// differently during assembly.
	FallbackQueries map[string]struct{}

	// SeasonalQueries is the subset of Queries injected by the seasonal
	// picker for the current season.
	SeasonalQueries map[string]struct{}

	// MaxResults caps scored places pulled per query.
	MaxResults int
}

// FallbackOnly reports whether every query that surfaced a place belongs to
// the plan's fallback set. Such places are only admitted during assembly
// when a category would otherwise fall short of its minimum primary results.
func (p QueryPlan) FallbackOnly(sourceQueries []string) bool {
	if len(sourceQueries) == 0 {
		return false
	}
	for _, q := range sourceQueries {
		if _, ok := p.FallbackQueries[q]; !ok {
			return false
		}
	}
	return true
}

// Planner builds query plans. The zero value is not usable; call New.
type Planner struct {
	budget int
	now    func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithBudget overrides the per-request search call budget.
func WithBudget(budget int) Option {
	return func(p *Planner) {
		if budget > 0 {
			p.budget = budget
		}
	}
}

// WithClock overrides the clock used for season selection. For tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a query planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		budget: DefaultSearchCallBudget,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Budget returns the configured per-request search call budget.
func (p *Planner) Budget() int {
	return p.budget
}

// Season returns the season the planner is currently planning for.
func (p *Planner) Season() Season {
	return SeasonFor(p.now())
}

// Plan builds one QueryPlan per category. Primary and fallback queries are
// always planned; seasonal queries are folded in afterwards, category by
// category, stopping once the overall budget is reached so seasonal flavor
// never crowds out core coverage.
func (p *Planner) Plan(categories []community.CategoryKey, loc community.Location) []QueryPlan {
	season := p.Season()
	plans := make([]QueryPlan, 0, len(categories))
	total := 0

	for _, category := range categories {
		cfg := community.ConfigFor(category)
		plan := QueryPlan{
			Category:        category,
			FallbackQueries: make(map[string]struct{}),
			SeasonalQueries: make(map[string]struct{}),
			MaxResults:      cfg.MaxResultsPerQuery,
		}

		for _, tmpl := range cfg.QueryTemplates {
			plan.Queries = append(plan.Queries, fmt.Sprintf(tmpl, loc.DisplayName()))
		}
		for _, tmpl := range cfg.FallbackQueries {
			q := fmt.Sprintf(tmpl, loc.DisplayName())
			plan.Queries = append(plan.Queries, q)
			plan.FallbackQueries[q] = struct{}{}
		}

		total += len(plan.Queries)
		plans = append(plans, plan)
	}

	// Seasonal injection: 0..N extra queries per eligible category, oldest
	// category first, never exceeding the budget.
	for i := range plans {
		for _, q := range SeasonalQueriesFor(season, plans[i].Category, loc) {
			if total >= p.budget {
				return plans
			}
			plans[i].Queries = append(plans[i].Queries, q)
			plans[i].SeasonalQueries[q] = struct{}{}
			total++
		}
	}

	return plans
}

// EstimateSearchCalls returns the number of provider search calls the plans
// would issue on a fully cold cache. Advisory: the orchestrator meters it
// (and the monetary cost it implies) before fanning out.
func (p *Planner) EstimateSearchCalls(plans []QueryPlan) int {
	total := 0
	for _, plan := range plans {
		total += len(plan.Queries)
	}
	metrics.PlannedSearchCalls.Observe(float64(total))
	return total
}

// EstimateDetailCalls returns the worst-case detail hydration calls for the
// categories: one per displayed entry, since hydration is lazy and limited
// to entries actually rendered.
func (p *Planner) EstimateDetailCalls(categories []community.CategoryKey) int {
	total := 0
	for _, category := range categories {
		total += community.ConfigFor(category).DisplayLimit
	}
	metrics.PlannedDetailCalls.Observe(float64(total))
	return total
}
