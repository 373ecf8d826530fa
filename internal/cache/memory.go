// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a cached item with expiration.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// Memory is a thread-safe in-process Store with TTL support.
//
// A background goroutine sweeps expired entries every cleanupInterval; call
// Close to stop it. Expired entries are also removed lazily on Get, so the
// sweep only bounds memory, not correctness.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats

	done chan struct{}
	once sync.Once
}

const cleanupInterval = 5 * time.Minute

// NewMemory creates an in-memory store with the given default TTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     defaultTTL,
		done:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		m.record(func(s *Stats) { s.Misses++ })
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		m.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		return nil, false
	}

	m.record(func(s *Stats) { s.Hits++ })
	return e.data, true
}

// Set implements Store using the default TTL.
func (m *Memory) Set(ctx context.Context, key string, value []byte) {
	m.SetTTL(ctx, key, value, m.ttl)
}

// SetTTL implements Store.
func (m *Memory) SetTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{data: value, expiresAt: time.Now().Add(ttl)}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.record(func(s *Stats) { s.TotalKeys = total })
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	m.record(func(s *Stats) { s.Evictions++ })
}

// GetStats returns a snapshot of the cache counters.
func (m *Memory) GetStats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// HitRate returns the hit rate as a percentage.
func (m *Memory) HitRate() float64 {
	s := m.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) record(fn func(*Stats)) {
	m.statsMu.Lock()
	fn(&m.stats)
	m.statsMu.Unlock()
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()
	var evicted int64

	m.mu.Lock()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evicted++
		}
	}
	total := int64(len(m.entries))
	m.mu.Unlock()

	m.record(func(s *Stats) {
		s.Evictions += evicted
		s.TotalKeys = total
	})
}
