// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package cache provides the key/value store abstraction shared by every
// community-context cache tier (payload, category, pool, details, audience,
// seasonal, cycle state).
//
// Two implementations ship:
//
//   - Memory: a thread-safe in-process TTL cache, the default for tests and
//     single-instance deployments.
//   - Badger: a durable BadgerDB-backed store for deployments that must keep
//     warmed context across restarts.
//
// Store failure semantics are deliberate: a broken or unreachable store
// degrades to "always fetch fresh, never persist". Get reports a miss, Set
// logs and drops. No pipeline stage ever fails a request because of the
// cache.
package cache
