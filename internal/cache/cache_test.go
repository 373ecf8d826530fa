// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryBasicOperations(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "key1", []byte("value1"))
	value, exists := m.Get(ctx, "key1")
	if !exists {
		t.Fatal("expected key1 to exist")
	}
	if string(value) != "value1" {
		t.Errorf("expected value1, got %s", value)
	}

	if _, exists = m.Get(ctx, "key2"); exists {
		t.Error("expected key2 to not exist")
	}
}

func TestMemoryExpiration(t *testing.T) {
	m := NewMemory(50 * time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "key1", []byte("value1"))

	if _, exists := m.Get(ctx, "key1"); !exists {
		t.Error("expected key1 to exist immediately after set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, exists := m.Get(ctx, "key1"); exists {
		t.Error("expected key1 to be expired")
	}
}

func TestMemorySetTTLOverridesDefault(t *testing.T) {
	m := NewMemory(1 * time.Hour)
	defer m.Close()
	ctx := context.Background()

	m.SetTTL(ctx, "short", []byte("v"), 50*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	if _, exists := m.Get(ctx, "short"); exists {
		t.Error("expected explicit TTL to win over default")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "key1", []byte("value1"))
	m.Delete(ctx, "key1")

	if _, exists := m.Get(ctx, "key1"); exists {
		t.Error("expected key1 to be deleted")
	}

	// Deleting a missing key must not panic.
	m.Delete(ctx, "missing")
}

func TestMemoryStats(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	m.Get(ctx, "a")
	m.Get(ctx, "a")
	m.Get(ctx, "missing")

	stats := m.GetStats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}

	want := float64(2) / 3 * 100
	if got := m.HitRate(); got < want-0.01 || got > want+0.01 {
		t.Errorf("expected hit rate ~%.2f, got %.2f", want, got)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				m.Set(ctx, key, []byte("v"))
				m.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestJSONRoundTrip(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	SetJSON(ctx, m, "rec", record{Name: "austin", Count: 3}, 0)

	var got record
	if !GetJSON(ctx, m, "rec", &got) {
		t.Fatal("expected cache hit")
	}
	if got.Name != "austin" || got.Count != 3 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestJSONCorruptEntryDropped(t *testing.T) {
	m := NewMemory(1 * time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "bad", []byte("{not json"))

	var out map[string]string
	if GetJSON(ctx, m, "bad", &out) {
		t.Fatal("expected corrupt entry to report miss")
	}
	if _, exists := m.Get(ctx, "bad"); exists {
		t.Error("expected corrupt entry to be deleted")
	}
}

func TestJSONNilStore(t *testing.T) {
	ctx := context.Background()

	// A nil store is the cache-unavailable degradation path; both helpers
	// must be safe no-ops.
	var out map[string]string
	if GetJSON(ctx, nil, "k", &out) {
		t.Error("nil store must miss")
	}
	SetJSON(ctx, nil, "k", map[string]string{"a": "b"}, 0)
}

func TestBadgerStore(t *testing.T) {
	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	defer db.Close()

	b := NewBadger(db, 1*time.Minute)
	ctx := context.Background()

	b.Set(ctx, "key1", []byte("value1"))
	value, exists := b.Get(ctx, "key1")
	if !exists {
		t.Fatal("expected key1 to exist")
	}
	if string(value) != "value1" {
		t.Errorf("expected value1, got %s", value)
	}

	b.Delete(ctx, "key1")
	if _, exists := b.Get(ctx, "key1"); exists {
		t.Error("expected key1 to be deleted")
	}
}

func TestBadgerTTLExpiry(t *testing.T) {
	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	defer db.Close()

	b := NewBadger(db, 1*time.Minute)
	ctx := context.Background()

	b.SetTTL(ctx, "short", []byte("v"), 1*time.Second)
	time.Sleep(1100 * time.Millisecond)

	if _, exists := b.Get(ctx, "short"); exists {
		t.Error("expected entry to expire")
	}
}
