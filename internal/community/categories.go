// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package community

import "fmt"

// CategoryKey identifies one content category in the fixed universe.
type CategoryKey string

// The fixed category universe. Rotation, planning and caching all key off
// these values; they appear verbatim in cache keys, so renaming one
// invalidates that category's cached tiers.
const (
	CategoryNeighborhoods   CategoryKey = "neighborhoods"
	CategoryDining          CategoryKey = "dining"
	CategoryCoffeeBrunch    CategoryKey = "coffee_brunch"
	CategoryNatureOutdoors  CategoryKey = "nature_outdoors"
	CategoryEntertainment   CategoryKey = "entertainment"
	CategoryAttractions     CategoryKey = "attractions"
	CategorySportsRec       CategoryKey = "sports_rec"
	CategoryArtsCulture     CategoryKey = "arts_culture"
	CategoryNightlifeSocial CategoryKey = "nightlife_social"
	CategoryFitnessWellness CategoryKey = "fitness_wellness"
	CategoryShopping        CategoryKey = "shopping"
	CategoryEducation       CategoryKey = "education"
	CategoryCommunityEvents CategoryKey = "community_events"
)

// allCategories lists the universe in stable declaration order.
var allCategories = []CategoryKey{
	CategoryNeighborhoods,
	CategoryDining,
	CategoryCoffeeBrunch,
	CategoryNatureOutdoors,
	CategoryEntertainment,
	CategoryAttractions,
	CategorySportsRec,
	CategoryArtsCulture,
	CategoryNightlifeSocial,
	CategoryFitnessWellness,
	CategoryShopping,
	CategoryEducation,
	CategoryCommunityEvents,
}

// AllCategories returns a copy of the fixed category universe.
func AllCategories() []CategoryKey {
	out := make([]CategoryKey, len(allCategories))
	copy(out, allCategories)
	return out
}

// RotatableCategories returns the universe minus neighborhoods, which is
// always served and never participates in rotation.
func RotatableCategories() []CategoryKey {
	out := make([]CategoryKey, 0, len(allCategories)-1)
	for _, k := range allCategories {
		if k != CategoryNeighborhoods {
			out = append(out, k)
		}
	}
	return out
}

// Valid reports whether k belongs to the fixed category universe.
func (k CategoryKey) Valid() bool {
	_, ok := categoryConfigs[k]
	return ok
}

// CategoryConfig is the static per-category tuning table. Values are fixed at
// compile time; operational knobs (staleness window, call budget) live in the
// config package instead.
type CategoryConfig struct {
	// DisplayLimit is the maximum entries rendered in the final block.
	DisplayLimit int

	// PoolMax caps the cached candidate pool size.
	PoolMax int

	// MinRating and MinReviews gate admission during assembly. Entries below
	// either threshold are dropped unless the category would fall under
	// MinPrimaryResults, in which case fallback-sourced entries are admitted.
	MinRating  float64
	MinReviews int

	// QueryTemplates are the primary search queries, formatted with the
	// location display name.
	QueryTemplates []string

	// FallbackQueries are broader templates used when primary queries leave
	// the category under MinPrimaryResults.
	FallbackQueries []string

	// MaxResultsPerQuery caps how many scored places are pulled per query.
	MaxResultsPerQuery int

	// MinPrimaryResults is the minimum admissible entries before fallback
	// queries (and fallback-sourced entries) come into play.
	MinPrimaryResults int

	// AudienceAugmentable marks categories that accept audience delta
	// queries on top of the base pool.
	AudienceAugmentable bool
}

// TargetQueryCount is the number of primary queries the planner issues for
// the category before folding in seasonal or fallback queries.
func (c CategoryConfig) TargetQueryCount() int {
	return len(c.QueryTemplates)
}

var categoryConfigs = map[CategoryKey]CategoryConfig{
	CategoryNeighborhoods: {
		DisplayLimit:       8,
		PoolMax:            20,
		MinRating:          0,
		MinReviews:         0,
		QueryTemplates:     []string{"best neighborhoods in %s", "up and coming neighborhoods in %s"},
		FallbackQueries:    []string{"residential areas in %s"},
		MaxResultsPerQuery: 10,
		MinPrimaryResults:  3,
	},
	CategoryDining: {
		DisplayLimit:        6,
		PoolMax:             24,
		MinRating:           4.2,
		MinReviews:          150,
		QueryTemplates:      []string{"best restaurants in %s", "local favorite restaurants in %s"},
		FallbackQueries:     []string{"restaurants in %s"},
		MaxResultsPerQuery:  10,
		MinPrimaryResults:   3,
		AudienceAugmentable: true,
	},
	CategoryCoffeeBrunch: {
		DisplayLimit:        5,
		PoolMax:             18,
		MinRating:           4.3,
		MinReviews:          80,
		QueryTemplates:      []string{"best coffee shops in %s", "brunch spots in %s"},
		FallbackQueries:     []string{"cafes in %s"},
		MaxResultsPerQuery:  8,
		MinPrimaryResults:   3,
		AudienceAugmentable: true,
	},
	CategoryNatureOutdoors: {
		DisplayLimit:        6,
		PoolMax:             20,
		MinRating:           4.4,
		MinReviews:          60,
		QueryTemplates:      []string{"best parks and trails in %s", "outdoor recreation near %s"},
		FallbackQueries:     []string{"parks in %s"},
		MaxResultsPerQuery:  10,
		MinPrimaryResults:   3,
		AudienceAugmentable: true,
	},
	CategoryEntertainment: {
		DisplayLimit:        5,
		PoolMax:             18,
		MinRating:           4.1,
		MinReviews:          100,
		QueryTemplates:      []string{"entertainment venues in %s", "things to do in %s"},
		FallbackQueries:     []string{"fun activities in %s"},
		MaxResultsPerQuery:  8,
		MinPrimaryResults:   3,
		AudienceAugmentable: true,
	},
	CategoryAttractions: {
		DisplayLimit:        5,
		PoolMax:             18,
		MinRating:           4.2,
		MinReviews:          120,
		QueryTemplates:      []string{"top attractions in %s", "landmarks in %s"},
		FallbackQueries:     []string{"points of interest in %s"},
		MaxResultsPerQuery:  8,
		MinPrimaryResults:   3,
		AudienceAugmentable: true,
	},
	CategorySportsRec: {
		DisplayLimit:       5,
		PoolMax:            16,
		MinRating:          4.0,
		MinReviews:         40,
		QueryTemplates:     []string{"sports facilities in %s", "recreation centers in %s"},
		FallbackQueries:    []string{"gyms and sports in %s"},
		MaxResultsPerQuery: 8,
		MinPrimaryResults:  2,
	},
	CategoryArtsCulture: {
		DisplayLimit:        5,
		PoolMax:             16,
		MinRating:           4.3,
		MinReviews:          50,
		QueryTemplates:      []string{"museums and galleries in %s", "cultural attractions in %s"},
		FallbackQueries:     []string{"arts venues in %s"},
		MaxResultsPerQuery:  8,
		MinPrimaryResults:   2,
		AudienceAugmentable: true,
	},
	CategoryNightlifeSocial: {
		DisplayLimit:       5,
		PoolMax:            16,
		MinRating:          4.1,
		MinReviews:         100,
		QueryTemplates:     []string{"best bars in %s", "nightlife in %s"},
		FallbackQueries:    []string{"bars in %s"},
		MaxResultsPerQuery: 8,
		MinPrimaryResults:  2,
	},
	CategoryFitnessWellness: {
		DisplayLimit:       5,
		PoolMax:            16,
		MinRating:          4.4,
		MinReviews:         40,
		QueryTemplates:     []string{"best gyms and studios in %s", "wellness and spas in %s"},
		FallbackQueries:    []string{"fitness in %s"},
		MaxResultsPerQuery: 8,
		MinPrimaryResults:  2,
	},
	CategoryShopping: {
		DisplayLimit:       5,
		PoolMax:            16,
		MinRating:          4.0,
		MinReviews:         80,
		QueryTemplates:     []string{"shopping districts in %s", "local boutiques in %s"},
		FallbackQueries:    []string{"shopping in %s"},
		MaxResultsPerQuery: 8,
		MinPrimaryResults:  2,
	},
	CategoryEducation: {
		DisplayLimit:       5,
		PoolMax:            16,
		MinRating:          3.8,
		MinReviews:         20,
		QueryTemplates:     []string{"top rated schools in %s", "libraries in %s"},
		FallbackQueries:    []string{"schools in %s"},
		MaxResultsPerQuery: 8,
		MinPrimaryResults:  2,
	},
	CategoryCommunityEvents: {
		DisplayLimit:        5,
		PoolMax:             16,
		MinRating:           4.0,
		MinReviews:          20,
		QueryTemplates:      []string{"community event venues in %s", "farmers markets in %s"},
		FallbackQueries:     []string{"event spaces in %s"},
		MaxResultsPerQuery:  8,
		MinPrimaryResults:   2,
		AudienceAugmentable: true,
	},
}

// ConfigFor returns the static configuration for a category key.
// It panics on an unknown key; callers must validate keys first.
func ConfigFor(k CategoryKey) CategoryConfig {
	cfg, ok := categoryConfigs[k]
	if !ok {
		panic(fmt.Sprintf("community: unknown category key %q", k))
	}
	return cfg
}

// NoResultsPlaceholder is returned for a category that ends with zero
// admissible places. Downstream prompt assembly depends on every requested
// category producing a non-empty block.
const NoResultsPlaceholder = "No standout places found for this category yet."
