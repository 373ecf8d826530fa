// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/porchlight-labs/porchlight/internal/assemble"
	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
	"github.com/porchlight-labs/porchlight/internal/planner"
)

// seasonalRecordTTL keeps seasonal sections readable well past one season;
// staleness is decided by comparing the stored season key, not the TTL.
const seasonalRecordTTL = 120 * 24 * time.Hour

// cityDescriptionTTL caches the city description near-indefinitely; cities
// do not change much.
const cityDescriptionTTL = 180 * 24 * time.Hour

type knowledgePlace struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type knowledgeAnswer struct {
	Neighborhoods []knowledgePlace            `json:"neighborhoods"`
	Categories    map[string][]knowledgePlace `json:"categories"`
}

var placeListSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"name"},
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
	},
}

// knowledgeBranch asks the generative provider for the whole category
// universe in one schema-constrained query. It deliberately ignores the
// per-turn category selection: the router caches this payload per ZIP, and a
// payload covering every category stays valid for users on any rotation.
func (e *Engine) knowledgeBranch(ctx context.Context, loc community.Location, _ string, _ []community.CategoryKey) (*community.CommunityPayload, error) {
	categories := community.RotatableCategories()

	keys := make([]string, len(categories))
	for i, c := range categories {
		keys[i] = string(c)
	}

	prompt := fmt.Sprintf(
		"List notable local places in %s (ZIP %s) for a real-estate marketing overview. "+
			"Cover neighborhoods plus these categories: %s. "+
			"For each place give its name and a one-sentence description.",
		loc.DisplayName(), loc.ZIP, strings.Join(keys, ", "))

	schema := map[string]any{
		"type":     "object",
		"required": []string{"neighborhoods", "categories"},
		"properties": map[string]any{
			"neighborhoods": placeListSchema,
			"categories": map[string]any{
				"type":                 "object",
				"additionalProperties": placeListSchema,
			},
		},
	}

	var answer knowledgeAnswer
	if err := e.knowledge.Query(ctx, prompt, schema, &answer); err != nil {
		return nil, err
	}

	blocks := make(map[community.CategoryKey]string, len(answer.Categories))
	for key, places := range answer.Categories {
		category := community.CategoryKey(key)
		if !category.Valid() {
			continue
		}
		cfg := community.ConfigFor(category)
		blocks[category] = assemble.Assemble(knowledgePlaces(places, category), cfg, cfg.DisplayLimit, true)
	}
	// The provider answered; categories it had nothing for are genuine
	// zero-result categories, not failures.
	for _, category := range categories {
		if _, ok := blocks[category]; !ok {
			blocks[category] = community.NoResultsPlaceholder
		}
	}

	neighborhoodsCfg := community.ConfigFor(community.CategoryNeighborhoods)
	return &community.CommunityPayload{
		ZIP:        loc.ZIP,
		Categories: blocks,
		Neighborhoods: assemble.Assemble(
			knowledgePlaces(answer.Neighborhoods, community.CategoryNeighborhoods),
			neighborhoodsCfg, neighborhoodsCfg.DisplayLimit, true),
		Source: "knowledge",
	}, nil
}

// knowledgePlaces converts generative answers into unrated places; the
// assembler's threshold gate passes them through on the no-rating path.
func knowledgePlaces(in []knowledgePlace, category community.CategoryKey) []community.Place {
	out := make([]community.Place, 0, len(in))
	for _, kp := range in {
		name := strings.TrimSpace(kp.Name)
		if name == "" {
			continue
		}
		out = append(out, community.Place{
			Name:     name,
			Category: category,
			Summary:  strings.TrimSpace(kp.Description),
		})
	}
	return out
}

// seasonalSections returns the per-season text blocks for a location. The
// cached record is stale when the calendar season has changed, regardless of
// how recently it was written. Failures degrade to whatever is cached, then
// to nothing.
func (e *Engine) seasonalSections(ctx context.Context, loc community.Location) map[string]string {
	if e.knowledge == nil {
		return nil
	}

	season := planner.SeasonFor(e.now())
	key := community.KeySeasonal(loc.ZIP)

	var record community.SeasonalRecord
	hit := cache.GetJSON(ctx, e.store, key, &record)
	if hit && record.Season == string(season) {
		metrics.RecordCache("seasonal", true)
		return record.Sections
	}
	metrics.RecordCache("seasonal", false)

	prompt := fmt.Sprintf(
		"Describe what %s offers residents in %s. Write one short section per topic: %s.",
		loc.DisplayName(), season, strings.Join(planner.SeasonalSectionQueries(season, loc), "; "))

	schema := map[string]any{
		"type":     "object",
		"required": []string{"sections"},
		"properties": map[string]any{
			"sections": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
	}

	var answer struct {
		Sections map[string]string `json:"sections"`
	}
	if err := e.knowledge.Query(ctx, prompt, schema, &answer); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("zip", loc.ZIP).Msg("seasonal sections unavailable")
		if hit {
			// Last season's sections beat none.
			return record.Sections
		}
		return nil
	}

	cache.SetJSON(ctx, e.store, key, community.SeasonalRecord{
		Season:   string(season),
		Sections: answer.Sections,
	}, seasonalRecordTTL)
	return answer.Sections
}

// cityDescription returns the cached one-paragraph city overview, generating
// it once per (city, state). Failure degrades to an empty string.
func (e *Engine) cityDescription(ctx context.Context, loc community.Location) string {
	if e.knowledge == nil {
		return ""
	}

	key := community.KeyCityDescription(loc.City, loc.State)

	var cached string
	if cache.GetJSON(ctx, e.store, key, &cached) {
		metrics.RecordCache("city_description", true)
		return cached
	}
	metrics.RecordCache("city_description", false)

	prompt := fmt.Sprintf(
		"Write a warm two-sentence overview of %s for someone considering moving there.",
		loc.DisplayName())
	schema := map[string]any{
		"type":     "object",
		"required": []string{"description"},
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
		},
	}

	var answer struct {
		Description string `json:"description"`
	}
	if err := e.knowledge.Query(ctx, prompt, schema, &answer); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("city", loc.City).Msg("city description unavailable")
		return ""
	}

	description := strings.TrimSpace(answer.Description)
	if description != "" {
		cache.SetJSON(ctx, e.store, key, description, cityDescriptionTTL)
	}
	return description
}
