// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// Store is the cache abstraction injected into every engine component.
// Implementations must be safe for concurrent use from multiple in-flight
// requests.
//
// Get returns (nil, false) on miss, expiry, or store failure; callers cannot
// distinguish the three and must treat all of them as "fetch fresh".
type Store interface {
	// Get retrieves the raw value for a key. Returns false on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the store's default TTL.
	Set(ctx context.Context, key string, value []byte)

	// SetTTL stores a value with an explicit TTL.
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes a key. No-op if absent.
	Delete(ctx context.Context, key string)
}

// GetJSON retrieves and unmarshals a cached value into out. Returns false on
// miss or on a corrupt entry (which is deleted so the next write heals it).
func GetJSON(ctx context.Context, s Store, key string, out any) bool {
	if s == nil {
		return false
	}
	raw, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("corrupt cache entry, dropping")
		metrics.CacheStoreErrors.WithLabelValues("decode").Inc()
		s.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals and stores a value with the given TTL. A ttl of zero uses
// the store's default. Marshal failures are logged and dropped; caching is
// never worth failing a request over.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) {
	if s == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache marshal failed")
		metrics.CacheStoreErrors.WithLabelValues("encode").Inc()
		return
	}
	if ttl <= 0 {
		s.Set(ctx, key, raw)
		return
	}
	s.SetTTL(ctx, key, raw, ttl)
}
