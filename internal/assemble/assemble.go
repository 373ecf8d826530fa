// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package assemble

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/porchlight-labs/porchlight/internal/community"
)

// Assemble dedups, ranks, truncates, and formats places into one text block.
// Places below the category's rating or review thresholds are dropped; when
// that would leave fewer than the category's minimum primary results,
// fallback-sourced places are re-admitted by score until the minimum is met
// or the pool is exhausted. Unrated places (no rating, no reviews, typical
// of knowledge-provider output) bypass the thresholds since there is nothing
// to gate on. An empty result renders as NoResultsPlaceholder so the block
// shape stays stable for prompt assembly.
func Assemble(places []community.Place, cfg community.CategoryConfig, max int, preferDetailed bool) string {
	admitted := rank(admit(dedup(places), cfg), preferDetailed)

	if max > 0 && len(admitted) > max {
		admitted = admitted[:max]
	}
	if len(admitted) == 0 {
		return community.NoResultsPlaceholder
	}

	lines := make([]string, 0, len(admitted))
	for _, p := range admitted {
		lines = append(lines, formatLine(p))
	}
	return strings.Join(lines, "\n")
}

// Delta formats the audience-specific block: the audience places whose
// identities do not already appear in the base list. Ranking and admission
// rules match Assemble so the delta reads like a continuation of the base
// block.
func Delta(base, audience []community.Place, cfg community.CategoryConfig, max int) string {
	seen := make(map[string]struct{}, len(base))
	for _, p := range base {
		seen[p.Identity()] = struct{}{}
	}

	var novel []community.Place
	for _, p := range audience {
		if _, dup := seen[p.Identity()]; !dup {
			novel = append(novel, p)
		}
	}
	return Assemble(novel, cfg, max, true)
}

// dedup keeps the first occurrence of each place identity.
func dedup(places []community.Place) []community.Place {
	seen := make(map[string]struct{}, len(places))
	out := make([]community.Place, 0, len(places))
	for _, p := range places {
		id := p.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out
}

// admit applies the category's threshold gate. Below-threshold places are
// dropped, then fallback-sourced places are pulled back in by score when the
// admissible count falls short of the category minimum.
func admit(places []community.Place, cfg community.CategoryConfig) []community.Place {
	var admitted, rejected []community.Place
	for _, p := range places {
		if meetsThreshold(p, cfg) {
			admitted = append(admitted, p)
		} else {
			rejected = append(rejected, p)
		}
	}

	if len(admitted) >= cfg.MinPrimaryResults {
		return admitted
	}

	var fallback []community.Place
	for _, p := range rejected {
		if p.Fallback {
			fallback = append(fallback, p)
		}
	}
	sort.SliceStable(fallback, func(i, j int) bool {
		return score(fallback[i]) > score(fallback[j])
	})

	for _, p := range fallback {
		if len(admitted) >= cfg.MinPrimaryResults {
			break
		}
		admitted = append(admitted, p)
	}
	return admitted
}

func meetsThreshold(p community.Place, cfg community.CategoryConfig) bool {
	if p.Rating == 0 && p.ReviewCount == 0 {
		return true
	}
	return p.Rating >= cfg.MinRating && p.ReviewCount >= cfg.MinReviews
}

// rank orders by composite score descending, name ascending on ties for a
// deterministic block. With preferDetailed, summarized places sort ahead of
// keyword-only ones regardless of score.
func rank(places []community.Place, preferDetailed bool) []community.Place {
	sort.SliceStable(places, func(i, j int) bool {
		a, b := places[i], places[j]
		if preferDetailed && (a.Summary != "") != (b.Summary != "") {
			return a.Summary != ""
		}
		sa, sb := score(a), score(b)
		if sa != sb {
			return sa > sb
		}
		return a.Name < b.Name
	})
	return places
}

// score weights rating by log-scaled review volume so a 4.6 with thousands
// of reviews outranks a 5.0 with three.
func score(p community.Place) float64 {
	return p.Rating * math.Log1p(float64(p.ReviewCount))
}

// formatLine renders one place as a single prompt-ready line.
func formatLine(p community.Place) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(p.Name)
	if p.Address != "" {
		fmt.Fprintf(&b, " (%s)", p.Address)
	}
	switch {
	case p.Summary != "":
		b.WriteString(": ")
		b.WriteString(p.Summary)
	case len(p.Keywords) > 0:
		b.WriteString(": ")
		b.WriteString(strings.Join(p.Keywords, ", "))
	}
	return b.String()
}
