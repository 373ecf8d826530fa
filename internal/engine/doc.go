// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package engine is the top-level context orchestrator. It sequences
// location resolution, category rotation, query planning, provider routing,
// pool management, hydration, and assembly into one ContextPayload, cached
// whole per ZIP so a fully warm request pays for zero external calls.
package engine
