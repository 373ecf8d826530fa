// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package planner

import (
	"fmt"
	"time"

	"github.com/porchlight-labs/porchlight/internal/community"
)

// Season is a calendar season key. Seasonal cache staleness is tied to this
// value changing, not to a fixed duration.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// SeasonFor maps a time to its meteorological season (northern hemisphere).
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

// seasonalTemplates maps season -> category -> query templates. Only
// categories listed here receive seasonal queries; the planner folds them in
// after primary queries, budget permitting.
var seasonalTemplates = map[Season]map[community.CategoryKey][]string{
	SeasonSpring: {
		community.CategoryNatureOutdoors:  {"spring wildflower walks near %s", "botanical gardens in %s"},
		community.CategoryCommunityEvents: {"spring festivals in %s"},
	},
	SeasonSummer: {
		community.CategoryNatureOutdoors:  {"swimming holes near %s", "shaded trails near %s"},
		community.CategoryCommunityEvents: {"summer concert series in %s"},
		community.CategoryAttractions:     {"summer family activities in %s"},
	},
	SeasonFall: {
		community.CategoryNatureOutdoors:  {"fall foliage spots near %s"},
		community.CategoryCommunityEvents: {"fall markets and fairs in %s"},
	},
	SeasonWinter: {
		community.CategoryCommunityEvents: {"holiday events in %s", "winter markets in %s"},
		community.CategoryEntertainment:   {"cozy indoor activities in %s"},
	},
}

// SeasonalQueriesFor returns the formatted seasonal queries for a category
// in the given season. Returns nil for categories without seasonal coverage.
func SeasonalQueriesFor(season Season, category community.CategoryKey, loc community.Location) []string {
	templates := seasonalTemplates[season][category]
	if len(templates) == 0 {
		return nil
	}
	out := make([]string, len(templates))
	for i, tmpl := range templates {
		out[i] = fmt.Sprintf(tmpl, loc.DisplayName())
	}
	return out
}

// SeasonalSectionQueries returns the queries used to build the standalone
// seasonal sections block for a location, independent of any category plan.
func SeasonalSectionQueries(season Season, loc community.Location) []string {
	var out []string
	for category := range seasonalTemplates[season] {
		out = append(out, SeasonalQueriesFor(season, category, loc)...)
	}
	return out
}
