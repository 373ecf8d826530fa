// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package provider holds the two community data provider clients (the
// structured places-search API and the generative knowledge-query API), the
// location resolver contract, and the router that picks between providers
// with circuit-breaker-protected fallback.
package provider

import (
	"context"

	"github.com/porchlight-labs/porchlight/internal/community"
)

// ScoredPlace is one structured search result, before detail hydration.
type ScoredPlace struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Address     string  `json:"address"`

	// Query is the search query that surfaced this place.
	Query string `json:"query,omitempty"`
}

// PlaceDetails is the rich per-place record fetched during hydration.
type PlaceDetails struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Address     string   `json:"address"`
	Summary     string   `json:"summary,omitempty"`
	PrimaryType string   `json:"primary_type,omitempty"`
	Types       []string `json:"types,omitempty"`
}

// LocationResolver resolves a ZIP or free-form query to a Location.
// A nil, nil return means the input could not be resolved; that outcome is
// terminal for the request (no silent defaulting).
type LocationResolver interface {
	Resolve(ctx context.Context, zipOrQuery string) (*community.Location, error)
}

// SearchClient is the structured places-search provider surface.
type SearchClient interface {
	// Search issues the given queries anchored at the location and returns
	// the deduplicated scored results across all of them.
	Search(ctx context.Context, queries []string, anchor community.Location, maxResults int) ([]ScoredPlace, error)

	// GetDetails fetches rich detail for one place. A nil, nil return means
	// the provider has no record; the caller drops the place.
	GetDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// KnowledgeClient is the generative knowledge-query provider surface.
type KnowledgeClient interface {
	// Query sends a prompt constrained by a JSON schema and unmarshals the
	// provider's JSON answer into out.
	Query(ctx context.Context, prompt string, schema map[string]any, out any) error
}

// Preference selects which provider branch the router tries first.
type Preference string

const (
	PreferStructured Preference = "structured"
	PreferKnowledge  Preference = "knowledge"
)

// Valid reports whether the preference is a known value.
func (p Preference) Valid() bool {
	return p == PreferStructured || p == PreferKnowledge
}
