// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package community

import "testing"

func TestCacheKeyShapes(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"community", KeyCommunity("78701"), "community:78701"},
		{"category", KeyCategory("78701", CategoryDining), "community:category:78701:dining"},
		{"pool", KeyPool("78701", CategoryNatureOutdoors), "community:pool:78701:nature_outdoors"},
		{"details", KeyDetails("place-123"), "community:details:place-123"},
		{"audience", KeyAudience("78701", "families"), "community:audience:78701:families"},
		{"seasonal", KeySeasonal("78701"), "community:seasonal:78701"},
		{"cycle", KeyCycle("u1"), "community:cycle:u1"},
		{"audience_rot", KeyAudienceRotation("u1", CategoryDining), "community:audience_rot:u1:dining"},
		{"city", KeyCityDescription("Austin", "TX"), "community:city:Austin:TX"},
		{"knowledge", KeyKnowledge("78701"), "community:knowledge:78701"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCategoryUniverse(t *testing.T) {
	all := AllCategories()
	if len(all) != 13 {
		t.Fatalf("expected 13 categories, got %d", len(all))
	}

	seen := make(map[CategoryKey]bool)
	for _, k := range all {
		if !k.Valid() {
			t.Errorf("category %q missing from config table", k)
		}
		if seen[k] {
			t.Errorf("duplicate category %q", k)
		}
		seen[k] = true
	}

	if CategoryKey("bowling").Valid() {
		t.Error("unknown key reported as valid")
	}
}

func TestRotatableCategoriesExcludesNeighborhoods(t *testing.T) {
	for _, k := range RotatableCategories() {
		if k == CategoryNeighborhoods {
			t.Fatal("neighborhoods must not rotate")
		}
	}
	if got := len(RotatableCategories()); got != 12 {
		t.Errorf("expected 12 rotatable categories, got %d", got)
	}
}

func TestPlaceIdentity(t *testing.T) {
	tests := []struct {
		name  string
		place Place
		want  string
	}{
		{"provider id wins", Place{ID: "abc", Name: "Joe's", Address: "1 Main St"}, "abc"},
		{"name plus address", Place{Name: "Joe's", Address: "1 Main St"}, "joe's|1 main st"},
		{"name only", Place{Name: " Joe's  "}, "joe's"},
		{"case folded", Place{Name: "JOE'S", Address: "1 MAIN ST"}, "joe's|1 main st"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.place.Identity(); got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPoolCoveredQueries(t *testing.T) {
	pool := PlacePool{
		Entries: []PlacePoolEntry{
			{ID: "a", SourceQueries: []string{"best restaurants in Austin, TX"}},
			{ID: "b", SourceQueries: []string{"best restaurants in Austin, TX", "local favorite restaurants in Austin, TX"}},
		},
	}

	covered := pool.CoveredQueries()
	if len(covered) != 2 {
		t.Fatalf("expected 2 covered queries, got %d", len(covered))
	}
	if _, ok := covered["best restaurants in Austin, TX"]; !ok {
		t.Error("expected base query to be covered")
	}
}

func TestCommunityPayloadEmpty(t *testing.T) {
	var nilPayload *CommunityPayload
	if !nilPayload.Empty() {
		t.Error("nil payload should be empty")
	}
	if !(&CommunityPayload{ZIP: "78701"}).Empty() {
		t.Error("payload without content should be empty")
	}
	if (&CommunityPayload{Neighborhoods: "- Hyde Park"}).Empty() {
		t.Error("payload with neighborhoods should not be empty")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	ve := NewValidationError("zip", "must be 5 digits")
	if !IsValidation(ve) {
		t.Error("expected IsValidation to match")
	}
	if IsDependency(ve) {
		t.Error("validation error must not match dependency")
	}

	de := NewDependencyError("structured", "search", ErrNoProviders)
	if !IsDependency(de) {
		t.Error("expected IsDependency to match")
	}
	if IsValidation(de) {
		t.Error("dependency error must not match validation")
	}
}
