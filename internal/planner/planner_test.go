// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/porchlight-labs/porchlight/internal/community"
)

var austin = community.Location{City: "Austin", State: "TX", ZIP: "78701"}

func julyClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestSeasonFor(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Season
	}{
		{time.January, SeasonWinter},
		{time.March, SeasonSpring},
		{time.May, SeasonSpring},
		{time.June, SeasonSummer},
		{time.August, SeasonSummer},
		{time.September, SeasonFall},
		{time.November, SeasonFall},
		{time.December, SeasonWinter},
	}

	for _, tt := range tests {
		d := time.Date(2026, tt.month, 10, 0, 0, 0, 0, time.UTC)
		if got := SeasonFor(d); got != tt.want {
			t.Errorf("SeasonFor(%v) = %v, want %v", tt.month, got, tt.want)
		}
	}
}

func TestPlanFormatsLocationIntoQueries(t *testing.T) {
	p := New(WithClock(julyClock()))

	plans := p.Plan([]community.CategoryKey{community.CategoryDining}, austin)
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}

	plan := plans[0]
	cfg := community.ConfigFor(community.CategoryDining)
	wantQueries := cfg.TargetQueryCount() + len(cfg.FallbackQueries)
	if len(plan.Queries) < wantQueries {
		t.Fatalf("expected at least %d queries, got %v", wantQueries, plan.Queries)
	}

	for _, q := range plan.Queries {
		if !strings.Contains(q, "Austin, TX") {
			t.Errorf("query %q missing location", q)
		}
	}

	if plan.MaxResults != cfg.MaxResultsPerQuery {
		t.Errorf("expected MaxResults %d, got %d", cfg.MaxResultsPerQuery, plan.MaxResults)
	}
}

func TestPlanMarksFallbackQueries(t *testing.T) {
	p := New(WithClock(julyClock()))

	plan := p.Plan([]community.CategoryKey{community.CategoryDining}, austin)[0]

	if len(plan.FallbackQueries) != len(community.ConfigFor(community.CategoryDining).FallbackQueries) {
		t.Fatalf("expected fallback queries marked, got %v", plan.FallbackQueries)
	}
	for q := range plan.FallbackQueries {
		found := false
		for _, planned := range plan.Queries {
			if planned == q {
				found = true
			}
		}
		if !found {
			t.Errorf("fallback query %q not in planned queries", q)
		}
	}
}

func TestPlanInjectsSeasonalQueries(t *testing.T) {
	p := New(WithClock(julyClock()))

	plan := p.Plan([]community.CategoryKey{community.CategoryNatureOutdoors}, austin)[0]

	if len(plan.SeasonalQueries) == 0 {
		t.Fatal("expected summer seasonal queries for nature_outdoors")
	}
	for q := range plan.SeasonalQueries {
		if !strings.Contains(q, "Austin, TX") {
			t.Errorf("seasonal query %q missing location", q)
		}
	}
}

func TestPlanHonorsBudget(t *testing.T) {
	// A budget that only covers the primary+fallback queries leaves no room
	// for seasonal injection.
	categories := []community.CategoryKey{community.CategoryNatureOutdoors, community.CategoryCommunityEvents}

	base := 0
	for _, c := range categories {
		cfg := community.ConfigFor(c)
		base += cfg.TargetQueryCount() + len(cfg.FallbackQueries)
	}

	p := New(WithBudget(base), WithClock(julyClock()))
	plans := p.Plan(categories, austin)

	for _, plan := range plans {
		if len(plan.SeasonalQueries) != 0 {
			t.Errorf("seasonal queries injected over budget for %s: %v", plan.Category, plan.SeasonalQueries)
		}
	}

	// One extra slot admits exactly one seasonal query across the request.
	p = New(WithBudget(base+1), WithClock(julyClock()))
	plans = p.Plan(categories, austin)

	injected := 0
	for _, plan := range plans {
		injected += len(plan.SeasonalQueries)
	}
	if injected != 1 {
		t.Errorf("expected exactly 1 seasonal query with budget+1, got %d", injected)
	}
}

func TestEstimateSearchCalls(t *testing.T) {
	p := New(WithClock(julyClock()))
	categories := []community.CategoryKey{community.CategoryDining, community.CategoryShopping}

	plans := p.Plan(categories, austin)
	got := p.EstimateSearchCalls(plans)

	want := 0
	for _, plan := range plans {
		want += len(plan.Queries)
	}
	if got != want {
		t.Errorf("EstimateSearchCalls = %d, want %d", got, want)
	}
}

func TestEstimateDetailCalls(t *testing.T) {
	p := New()
	categories := []community.CategoryKey{community.CategoryDining, community.CategoryShopping}

	want := community.ConfigFor(community.CategoryDining).DisplayLimit +
		community.ConfigFor(community.CategoryShopping).DisplayLimit

	if got := p.EstimateDetailCalls(categories); got != want {
		t.Errorf("EstimateDetailCalls = %d, want %d", got, want)
	}
}

func TestSeasonalSectionQueries(t *testing.T) {
	queries := SeasonalSectionQueries(SeasonSummer, austin)
	if len(queries) == 0 {
		t.Fatal("expected summer section queries")
	}
	for _, q := range queries {
		if !strings.Contains(q, "Austin, TX") {
			t.Errorf("section query %q missing location", q)
		}
	}
}

func TestFallbackOnly(t *testing.T) {
	loc := community.Location{City: "Austin", State: "TX", ZIP: "78701"}
	p := New(WithClock(julyClock()))
	plan := p.Plan([]community.CategoryKey{community.CategoryDining}, loc)[0]

	var fallbackQ string
	for q := range plan.FallbackQueries {
		fallbackQ = q
	}
	if fallbackQ == "" {
		t.Fatal("dining plan must carry a fallback query")
	}

	if !plan.FallbackOnly([]string{fallbackQ}) {
		t.Error("place surfaced only by a fallback query should be fallback-only")
	}
	if plan.FallbackOnly([]string{fallbackQ, plan.Queries[0]}) {
		t.Error("place with any primary query should not be fallback-only")
	}
	if plan.FallbackOnly(nil) {
		t.Error("place with no source queries should not be fallback-only")
	}
}
