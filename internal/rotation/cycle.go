// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package rotation decides which content categories and audience segments a
// user is served each turn. Category selection cycles through the full
// universe before repeating; audience segments round-robin per
// (user, category) so no configured segment starves.
package rotation

import (
	"math/rand"

	"github.com/porchlight-labs/porchlight/internal/community"
)

// AdvanceResult is the output half of one rotation step.
type AdvanceResult struct {
	// Selected are the categories to serve this turn, in serve order.
	Selected []community.CategoryKey

	// ShouldRefresh fires once the user has consumed the full universe
	// RefreshThreshold times, signaling that base content is old enough to
	// regenerate rather than serve incrementally.
	ShouldRefresh bool
}

// Advance is the pure rotation step: (state, input) -> (state', output).
// It never mutates its inputs, so it is directly unit-testable without a
// cache. rng drives the reshuffles; threshold is the cycle count at which
// ShouldRefresh fires (and CyclesCompleted resets to zero).
func Advance(state community.CycleState, available []community.CategoryKey, count, threshold int, rng *rand.Rand) (community.CycleState, AdvanceResult) {
	if count <= 0 || len(available) == 0 {
		return state, AdvanceResult{}
	}
	if count > len(available) {
		count = len(available)
	}

	valid := make(map[community.CategoryKey]bool, len(available))
	for _, k := range available {
		valid[k] = true
	}

	// Drop remaining keys that are no longer in the universe.
	remaining := make([]community.CategoryKey, 0, len(state.Remaining))
	for _, k := range state.Remaining {
		if valid[k] {
			remaining = append(remaining, k)
		}
	}

	cycles := state.CyclesCompleted

	// Exhausted (or entirely filtered out): start a fresh cycle.
	if len(remaining) == 0 {
		remaining = shuffled(available, rng)
		cycles++
	}

	var selected []community.CategoryKey
	if len(remaining) >= count {
		selected = append(selected, remaining[:count]...)
		remaining = append([]community.CategoryKey(nil), remaining[count:]...)
	} else {
		// Take the carried-over keys plus a freshly shuffled refill for the
		// shortfall. Carried keys are excluded from the refill so one turn
		// never serves the same category twice.
		carried := append([]community.CategoryKey(nil), remaining...)
		carriedSet := make(map[community.CategoryKey]bool, len(carried))
		for _, k := range carried {
			carriedSet[k] = true
		}
		refill := make([]community.CategoryKey, 0, len(available))
		for _, k := range shuffled(available, rng) {
			if !carriedSet[k] {
				refill = append(refill, k)
			}
		}
		cycles++

		shortfall := count - len(carried)
		selected = append(carried, refill[:shortfall]...)
		remaining = append([]community.CategoryKey(nil), refill[shortfall:]...)
	}

	result := AdvanceResult{Selected: selected}
	if cycles >= threshold {
		result.ShouldRefresh = true
		cycles = 0
	}

	return community.CycleState{Remaining: remaining, CyclesCompleted: cycles}, result
}

// Peek returns what the next Advance would select without producing a new
// state. Reshuffle-dependent positions use rng, so Peek is only exact when
// enough keys remain to satisfy count.
func Peek(state community.CycleState, available []community.CategoryKey, count, threshold int, rng *rand.Rand) []community.CategoryKey {
	_, result := Advance(state, available, count, threshold, rng)
	return result.Selected
}

func shuffled(keys []community.CategoryKey, rng *rand.Rand) []community.CategoryKey {
	out := make([]community.CategoryKey, len(keys))
	copy(out, keys)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
