// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the configuration loader and the
// HTTP API. Besides the built-in tags it registers:
//   - opdate: a YYYY-MM-DD calendar date, as used for operation dates
//   - layout: a snapshot layout containing the "{date}" placeholder
//
// Field names in error messages come from the koanf or json struct tag when
// present, so messages name the key the operator actually wrote:
//
//	type runRequest struct {
//	    Date string `json:"date" validate:"required,opdate"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // apiErr.Message == "date must be a YYYY-MM-DD date"
//	}
package validation
