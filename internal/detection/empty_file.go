// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// EmptyFileConfig configures the unexpected empty file detector.
type EmptyFileConfig struct {
	// Tolerance is how many empty files above the rounded weekday mean are
	// still considered normal.
	Tolerance int `json:"tolerance"`

	// FallbackMedianRows applies when the weekday mean is unavailable: a
	// source whose all-time median rows per file exceeds this value is not
	// expected to send empty files at all.
	FallbackMedianRows float64 `json:"fallback_median_rows"`
}

// DefaultEmptyFileConfig returns the default configuration.
func DefaultEmptyFileConfig() EmptyFileConfig {
	return EmptyFileConfig{
		Tolerance:          1,
		FallbackMedianRows: 50,
	}
}

// EmptyFileDetector flags zero-row files beyond what the source's history
// explains. Sources without a profile get maximal scrutiny: every empty file
// is reported.
type EmptyFileDetector struct {
	toggle
	config EmptyFileConfig
	mu     sync.RWMutex
}

// NewEmptyFileDetector creates a new unexpected empty file detector.
func NewEmptyFileDetector() *EmptyFileDetector {
	return &EmptyFileDetector{
		toggle: toggle{enabled: true},
		config: DefaultEmptyFileConfig(),
	}
}

// Type returns the incident type.
func (d *EmptyFileDetector) Type() IncidentType {
	return IncidentUnexpectedEmpty
}

// Descriptor returns the detector's input requirements.
func (d *EmptyFileDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentUnexpectedEmpty, UsesProfile: true, NeedsDate: true}
}

// Check evaluates the day's records for one source.
func (d *EmptyFileDetector) Check(ctx context.Context, in *Input) (*Incident, error) {
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	var empty []telemetry.FileRecord
	for i := range in.Records {
		if in.Records[i].IsEmpty() {
			empty = append(empty, in.Records[i])
		}
	}
	if len(empty) == 0 {
		return nil, nil
	}
	count := len(empty)
	day := weekdayAbbr(in.Date)

	var details string
	switch {
	case in.Profile == nil:
		details = fmt.Sprintf(
			"Received %d empty files and there is no profile to tell whether this is a normal pattern.",
			count,
		)

	default:
		if mean, ok := in.Profile.EmptyFilesMeanOn(in.Date.Weekday()); ok {
			if count <= int(math.RoundToEven(mean))+config.Tolerance {
				return nil, nil
			}
			details = fmt.Sprintf(
				"Received %d empty files, above the historical mean of ~%.2f for %s.",
				count, mean, day,
			)
			break
		}

		median, ok := in.Profile.MedianRows()
		if !ok || median <= config.FallbackMedianRows {
			logging.Ctx(ctx).Debug().
				Str("source_id", in.SourceID).
				Int("empty_files", count).
				Msg("empty files not flagged: no weekday mean and median rows below fallback")
			return nil, nil
		}
		details = fmt.Sprintf(
			"Received %d empty files. The median rows per file for this source is %s, so empty files are not expected.",
			count, formatNumber(median),
		)
	}

	return &Incident{
		SourceID:       in.SourceID,
		Type:           IncidentUnexpectedEmpty,
		Details:        details,
		TotalIncidents: count,
		FilesToReview:  filenames(empty),
	}, nil
}

// Configure updates the detector configuration.
func (d *EmptyFileDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultEmptyFileConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative")
	}
	if newConfig.FallbackMedianRows < 0 {
		return fmt.Errorf("fallback_median_rows must not be negative")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *EmptyFileDetector) Config() EmptyFileConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// formatNumber renders a statistic without a trailing ".0" for whole values.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
