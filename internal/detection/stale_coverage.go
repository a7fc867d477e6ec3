// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// coverageToken finds the first run of eight digits in a filename.
var coverageToken = regexp.MustCompile(`\d{8}`)

// StaleCoverageConfig configures the stale coverage detector.
type StaleCoverageConfig struct {
	// MaxAgeDays is the largest accepted gap between the operation date and
	// the coverage date embedded in the filename.
	MaxAgeDays int `json:"max_age_days"`
}

// DefaultStaleCoverageConfig returns the default configuration.
func DefaultStaleCoverageConfig() StaleCoverageConfig {
	return StaleCoverageConfig{MaxAgeDays: 3}
}

// StaleCoverageDetector flags files whose filename carries a YYYYMMDD
// coverage date older than MaxAgeDays, which usually means a historical
// backfill. Advisory.
type StaleCoverageDetector struct {
	toggle
	config StaleCoverageConfig
	mu     sync.RWMutex
}

// NewStaleCoverageDetector creates a new stale coverage detector.
func NewStaleCoverageDetector() *StaleCoverageDetector {
	return &StaleCoverageDetector{
		toggle: toggle{enabled: true},
		config: DefaultStaleCoverageConfig(),
	}
}

// Type returns the incident type.
func (d *StaleCoverageDetector) Type() IncidentType {
	return IncidentStaleCoverage
}

// Descriptor returns the detector's input requirements.
func (d *StaleCoverageDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentStaleCoverage, NeedsDate: true, Advisory: true}
}

// Check evaluates the day's records for one source.
func (d *StaleCoverageDetector) Check(_ context.Context, in *Input) (*Incident, error) {
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	opDate := telemetry.DateOf(in.Date)
	var stale []telemetry.FileRecord
	for i := range in.Records {
		coverage, ok := CoverageDate(in.Records[i].Filename)
		if !ok {
			continue
		}
		if daysBetween(coverage, opDate) > config.MaxAgeDays {
			stale = append(stale, in.Records[i])
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	return &Incident{
		SourceID: in.SourceID,
		Type:     IncidentStaleCoverage,
		Details: fmt.Sprintf(
			"Found %d files whose filename date is more than %d days old, indicating a possible historical load.",
			len(stale), config.MaxAgeDays,
		),
		TotalIncidents: len(stale),
		FilesToReview:  filenames(stale),
	}, nil
}

// Configure updates the detector configuration.
func (d *StaleCoverageDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultStaleCoverageConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.MaxAgeDays < 0 {
		return fmt.Errorf("max_age_days must not be negative")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *StaleCoverageDetector) Config() StaleCoverageConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// CoverageDate returns the date encoded by the first eight-digit token in
// filename. Only the first token is considered; if it is not a valid
// YYYYMMDD date the filename has no coverage date.
func CoverageDate(filename string) (time.Time, bool) {
	tok := coverageToken.FindString(filename)
	if tok == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("20060102", tok)
	if err != nil || d.Year() < 1 {
		return time.Time{}, false
	}
	return d, true
}

// daysBetween returns the whole number of days from a to b; both are
// calendar dates at midnight UTC.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
