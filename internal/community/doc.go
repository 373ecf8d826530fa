// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package community defines the shared domain model for the community
// context engine: locations, content categories and their static
// configuration, places and pool records, rotation cycle state, the final
// context payload, the error taxonomy, and the cache key builders shared by
// every cache tier.
//
// This package has no dependencies on other internal packages so that every
// pipeline stage (rotation, planning, pooling, hydration, assembly,
// orchestration) can share these types without import cycles.
package community
