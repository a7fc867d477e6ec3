// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package telemetry

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for operation dates and snapshot paths.
const DateLayout = "2006-01-02"

// ParseOperationDate parses a YYYY-MM-DD operation date into midnight UTC.
func ParseOperationDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid operation date %q: %w", s, err)
	}
	return d, nil
}

// DateOf truncates t to its calendar date (midnight UTC).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
