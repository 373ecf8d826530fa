// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package community

import (
	"strings"
	"time"
)

// Location is a resolved request anchor. It is immutable once resolved;
// resolution failure is terminal for the request (no silent defaulting).
type Location struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	ZIP       string  `json:"zip"`
}

// DisplayName renders the location as "City, ST" for query templates.
func (l Location) DisplayName() string {
	if l.State == "" {
		return l.City
	}
	return l.City + ", " + l.State
}

// Place is a fully hydrated point of interest ready for assembly.
// Summary and Keywords are mutually exclusive; Summary is preferred when the
// provider returned a generative overview.
type Place struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	Address     string      `json:"address"`
	Category    CategoryKey `json:"category"`
	Summary     string      `json:"summary,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`

	// SourceQueries records which search queries surfaced this place.
	SourceQueries []string `json:"source_queries,omitempty"`

	// Fallback marks places surfaced only by a category's fallback queries.
	// Fallback places are admitted below threshold when a category would
	// otherwise have fewer than its minimum primary results.
	Fallback bool `json:"fallback,omitempty"`
}

// Identity returns the deduplication identity for the place: the
// provider-assigned ID when present, otherwise normalized name+address.
func (p Place) Identity() string {
	if p.ID != "" {
		return p.ID
	}
	return NormalizeIdentity(p.Name, p.Address)
}

// NormalizeIdentity builds a provider-independent identity from a place name
// and address. Case and surrounding whitespace are ignored.
func NormalizeIdentity(name, address string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	a := strings.ToLower(strings.TrimSpace(address))
	if a == "" {
		return n
	}
	return n + "|" + a
}

// PlacePoolEntry is the lightweight pool cache record: identity plus source
// queries only. Full Place detail is hydrated on demand and cached in its own
// tier so pool and detail records invalidate independently.
type PlacePoolEntry struct {
	ID            string   `json:"id"`
	SourceQueries []string `json:"source_queries,omitempty"`
}

// PlacePool is the cached candidate pool for one (zip, category).
type PlacePool struct {
	Entries   []PlacePoolEntry `json:"entries"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// CoveredQueries returns the set of query strings already covered by the
// pool's entries. Audience augmentation consults this to avoid re-issuing
// searches whose text the base pool already paid for.
func (p PlacePool) CoveredQueries() map[string]struct{} {
	covered := make(map[string]struct{})
	for _, e := range p.Entries {
		for _, q := range e.SourceQueries {
			covered[q] = struct{}{}
		}
	}
	return covered
}

// CycleState is the per-user rotation state. Remaining is always a subset of
// the fixed category universe; when exhausted it is refilled by a fresh
// shuffle and CyclesCompleted increments.
type CycleState struct {
	Remaining       []CategoryKey `json:"remaining"`
	CyclesCompleted int           `json:"cycles_completed"`
}

// SeasonalRecord is the cached seasonal-sections tier. Staleness is tied to
// the calendar season changing, not a fixed duration.
type SeasonalRecord struct {
	Season   string            `json:"season"`
	Sections map[string]string `json:"sections"`
}

// ContextPayload is the full engine output consumed by downstream AI prompt
// assembly. Every block is preformatted text; the shape is stable even when
// a category produced no results (see NoResultsPlaceholder).
type ContextPayload struct {
	ZIP             string                 `json:"zip"`
	CategoryKeys    []CategoryKey          `json:"category_keys"`
	CommunityData   map[CategoryKey]string `json:"community_data"`
	Neighborhoods   string                 `json:"neighborhoods"`
	CityDescription string                 `json:"city_description"`
	SeasonalSections map[string]string     `json:"seasonal_sections"`
	AudienceSegment string                 `json:"audience_segment,omitempty"`
	AudienceDeltas  map[CategoryKey]string `json:"audience_deltas,omitempty"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Source          string                 `json:"source"`
}

// CommunityPayload is one provider branch's contribution: per-category
// formatted blocks plus the neighborhoods block. The router caches one per
// provider namespace and falls back to the other branch when a branch
// errors or returns an empty payload.
type CommunityPayload struct {
	ZIP           string                 `json:"zip"`
	Categories    map[CategoryKey]string `json:"categories"`
	Neighborhoods string                 `json:"neighborhoods"`
	Source        string                 `json:"source"`
}

// Empty reports whether the payload carries no usable content, which the
// router treats the same as a provider failure.
func (p *CommunityPayload) Empty() bool {
	return p == nil || (len(p.Categories) == 0 && p.Neighborhoods == "")
}
