// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package assemble ranks and formats hydrated places into the text blocks
// embedded in downstream AI prompts. The output format is contractual:
// prompt templates depend on the exact line shape, so changes here are
// breaking changes even though the output is "just" a string.
package assemble
