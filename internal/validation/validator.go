// Porchlight - Community Context Engine for Listing Marketing
// Copyright 2026 Porchlight Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/porchlight-labs/porchlight

// Package validation provides struct validation using go-playground/validator
// v10 behind a thread-safe singleton, with custom validators for Porchlight
// request fields (ZIP codes, category keys, audience segments).
//
// Example usage:
//
//	type ContextRequest struct {
//	    ZIP      string `validate:"required,zipcode"`
//	    Category string `validate:"omitempty,categorykey"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    respondError(w, http.StatusBadRequest, err)
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/porchlight-labs/porchlight/internal/community"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single field validation failure.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the struct field that failed.
func (e FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e FieldError) Tag() string { return e.tag }

// Error returns a human-readable message.
func (e FieldError) Error() string { return e.message }

// RequestValidationError collects every field failure for one request.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []FieldError { return ve.errors }

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton validator, registering Porchlight's
// custom validators on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// zipcode: 5-digit US ZIP.
		_ = validate.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
			zip := fl.Field().String()
			if len(zip) != 5 {
				return false
			}
			for _, r := range zip {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		})

		// categorykey: a member of the fixed category universe.
		_ = validate.RegisterValidation("categorykey", func(fl validator.FieldLevel) bool {
			return community.CategoryKey(fl.Field().String()).Valid()
		})

		// segment: short free text without key-delimiter characters, so
		// segments remain safe inside cache keys.
		_ = validate.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) > 0 && len(s) <= 64 && !strings.ContainsAny(s, ":\n")
		})
	})
	return validate
}

// ValidateStruct validates a struct with the singleton validator. Returns
// nil on success or a *RequestValidationError listing every failed field.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"zipcode":     "%s must be a 5-digit ZIP code",
	"categorykey": "%s must be a known category key",
	"segment":     "%s must be 1-64 characters without colons",
}

var errorMessageWithParam = map[string]string{
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()
	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
