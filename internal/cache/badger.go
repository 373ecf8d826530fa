// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// Badger is a durable Store backed by BadgerDB. It keeps warmed community
// context across process restarts, which matters because a cold pool refill
// costs real provider money.
//
// All failures degrade to miss/no-op per the Store contract.
type Badger struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadger wraps an open BadgerDB handle with the given default TTL.
// The caller owns the handle's lifecycle (and its value-log GC).
func NewBadger(db *badger.DB, defaultTTL time.Duration) *Badger {
	return &Badger{db: db, ttl: defaultTTL}
}

// OpenBadger opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database, used by tests and ephemeral deployments.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// Get implements Store.
func (b *Badger) Get(ctx context.Context, key string) ([]byte, bool) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("badger get failed, treating as miss")
		metrics.CacheStoreErrors.WithLabelValues("get").Inc()
		return nil, false
	}
	return data, true
}

// Set implements Store using the default TTL.
func (b *Badger) Set(ctx context.Context, key string, value []byte) {
	b.SetTTL(ctx, key, value, b.ttl)
}

// SetTTL implements Store.
func (b *Badger) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("badger set failed, entry dropped")
		metrics.CacheStoreErrors.WithLabelValues("set").Inc()
	}
}

// Delete implements Store.
func (b *Badger) Delete(ctx context.Context, key string) {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("badger delete failed")
		metrics.CacheStoreErrors.WithLabelValues("delete").Inc()
	}
}

// RunGC performs one value-log garbage collection pass. Badger returns
// ErrNoRewrite when it found nothing worth rewriting.
func (b *Badger) RunGC(discardRatio float64) error {
	return b.db.RunValueLogGC(discardRatio)
}
