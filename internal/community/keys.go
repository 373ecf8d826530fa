// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package community

// Cache key builders. Key shapes are part of the engine's contract: tests
// and operational tooling reproduce them, so changes here invalidate every
// deployed cache.

// KeyCommunity is the top-level payload cache key for a ZIP.
func KeyCommunity(zip string) string {
	return "community:" + zip
}

// KeyCategory caches one category's assembled block for a ZIP, namespaced by
// the provider branch that produced it.
func KeyCategory(zip string, category CategoryKey) string {
	return "community:category:" + zip + ":" + string(category)
}

// KeyPool caches the candidate place pool for a (zip, category).
func KeyPool(zip string, category CategoryKey) string {
	return "community:pool:" + zip + ":" + string(category)
}

// KeyDetails caches hydrated detail for one place, independent of any pool.
func KeyDetails(placeID string) string {
	return "community:details:" + placeID
}

// KeyAudience caches the audience delta blocks for a (zip, segment).
func KeyAudience(zip, audienceSegment string) string {
	return "community:audience:" + zip + ":" + audienceSegment
}

// KeySeasonal caches the seasonal sections for a ZIP.
func KeySeasonal(zip string) string {
	return "community:seasonal:" + zip
}

// KeyCycle stores a user's category rotation state.
func KeyCycle(userID string) string {
	return "community:cycle:" + userID
}

// KeyAudienceRotation stores the last audience segment served for a
// (user, category) pair.
func KeyAudienceRotation(userID string, category CategoryKey) string {
	return "community:audience_rot:" + userID + ":" + string(category)
}

// KeyCityDescription caches the generated city description, shared by every
// ZIP that resolves to the same city and state.
func KeyCityDescription(city, state string) string {
	return "community:city:" + city + ":" + state
}

// KeyKnowledge caches the knowledge-provider branch payload for a ZIP.
// The structured branch uses KeyCategory; keeping the namespaces separate
// lets each provider's cache expire independently.
func KeyKnowledge(zip string) string {
	return "community:knowledge:" + zip
}
