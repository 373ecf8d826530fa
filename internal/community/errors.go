// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

package community

import (
	"errors"
	"fmt"
)

// ValidationError marks a user-fixable problem (missing or unresolvable
// location, unknown category). It is never retried and surfaces to the
// caller as a 4xx-class failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DependencyError marks an external provider failure: unreachable, timed
// out, or malformed data. The router retries once via provider fallback;
// after that the orchestrator degrades (serves whatever categories
// succeeded) rather than failing the request.
type DependencyError struct {
	Provider string
	Op       string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency: %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// NewDependencyError wraps a provider failure.
func NewDependencyError(provider, op string, err error) *DependencyError {
	return &DependencyError{Provider: provider, Op: op, Err: err}
}

// IsDependency reports whether err is (or wraps) a DependencyError.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// ErrNoProviders is returned when both providers failed for a request.
var ErrNoProviders = errors.New("community: all providers failed")
