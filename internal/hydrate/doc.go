// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package hydrate enriches lightweight pool entries into displayable places.
// Detail records are fetched lazily and cached per place, independent of any
// pool, because ratings and summaries change far less often than pool
// membership. A place that cannot be enriched is dropped rather than shown
// empty.
package hydrate
