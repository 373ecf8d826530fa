// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package rotation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/porchlight-labs/porchlight/internal/cache"
	"github.com/porchlight-labs/porchlight/internal/community"
	"github.com/porchlight-labs/porchlight/internal/logging"
	"github.com/porchlight-labs/porchlight/internal/metrics"
)

// DefaultRefreshThreshold is the number of completed cycles after which
// SelectCategories signals a full base-content refresh. Inherited behavior;
// overridable via SchedulerConfig rather than re-derived.
const DefaultRefreshThreshold = 2

// cycleStateTTL keeps rotation state around long enough for infrequent
// posters without letting abandoned users accumulate forever.
const cycleStateTTL = 90 * 24 * time.Hour

// SchedulerConfig tunes the category scheduler.
type SchedulerConfig struct {
	// RefreshThreshold is the completed-cycle count that fires ShouldRefresh.
	// Default: DefaultRefreshThreshold.
	RefreshThreshold int

	// Seed seeds the shuffle source. Zero means seed from the clock.
	Seed int64
}

// Scheduler persists per-user cycle state in the cache store and serializes
// read-modify-write per user so concurrent requests cannot lose updates.
// With a nil store it degrades to a single stateless shuffle.
type Scheduler struct {
	store     cache.Store
	threshold int

	rngMu sync.Mutex
	rng   *rand.Rand

	usersMu sync.Mutex
	users   map[string]*sync.Mutex
}

// NewScheduler creates a category rotation scheduler backed by store.
// store may be nil (cache unavailable); selection then degrades to a random
// shuffle with no persisted state and ShouldRefresh never fires.
func NewScheduler(store cache.Store, cfg SchedulerConfig) *Scheduler {
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = DefaultRefreshThreshold
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		store:     store,
		threshold: cfg.RefreshThreshold,
		rng:       rand.New(rand.NewSource(seed)),
		users:     make(map[string]*sync.Mutex),
	}
}

// SelectCategories picks the categories to serve this turn for the user and
// advances the persisted cycle state. The second return signals that the
// user has cycled the universe enough times that base content should be
// fully regenerated.
func (s *Scheduler) SelectCategories(ctx context.Context, userID string, count int, available []community.CategoryKey) ([]community.CategoryKey, bool) {
	if s.store == nil {
		_, result := Advance(community.CycleState{}, available, count, s.threshold, s.locked())
		return result.Selected, false
	}

	unlock := s.lockUser(userID)
	defer unlock()

	var state community.CycleState
	key := community.KeyCycle(userID)
	hit := cache.GetJSON(ctx, s.store, key, &state)
	metrics.RecordCache("cycle", hit)

	next, result := Advance(state, available, count, s.threshold, s.locked())
	cache.SetJSON(ctx, s.store, key, next, cycleStateTTL)

	logging.Ctx(ctx).Debug().
		Str("user", userID).
		Int("selected", len(result.Selected)).
		Int("cycles_completed", next.CyclesCompleted).
		Bool("should_refresh", result.ShouldRefresh).
		Msg("category rotation advanced")

	return result.Selected, result.ShouldRefresh
}

// PeekNextCategories reads what the next SelectCategories call would serve
// without mutating the persisted state. Intended for lookahead pre-fetch.
func (s *Scheduler) PeekNextCategories(ctx context.Context, userID string, count int, available []community.CategoryKey) []community.CategoryKey {
	if s.store == nil {
		return Peek(community.CycleState{}, available, count, s.threshold, s.locked())
	}

	var state community.CycleState
	hit := cache.GetJSON(ctx, s.store, community.KeyCycle(userID), &state)
	metrics.RecordCache("cycle", hit)

	return Peek(state, available, count, s.threshold, s.locked())
}

// locked returns the shared rng behind its mutex for the duration of one
// Advance call. Advance only consults the rng for shuffles, which are fast,
// so a coarse lock is fine.
func (s *Scheduler) locked() *rand.Rand {
	// rand.Rand is not safe for concurrent use; hand out a fresh source
	// seeded from the shared one instead of holding the lock across Advance.
	s.rngMu.Lock()
	seed := s.rng.Int63()
	s.rngMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// lockUser serializes state mutation per user.
func (s *Scheduler) lockUser(userID string) func() {
	s.usersMu.Lock()
	mu, ok := s.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.users[userID] = mu
	}
	s.usersMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
