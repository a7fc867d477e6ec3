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

// VolumeVariationConfig configures the volume variation detector.
type VolumeVariationConfig struct {
	// MinRowsMean skips sources whose weekday mean is too small for
	// standard-deviation reasoning.
	MinRowsMean float64 `json:"min_rows_mean"`

	// Sigma is the number of standard deviations a file may deviate.
	Sigma float64 `json:"sigma"`
}

// DefaultVolumeVariationConfig returns the default configuration.
func DefaultVolumeVariationConfig() VolumeVariationConfig {
	return VolumeVariationConfig{
		MinRowsMean: 100,
		Sigma:       2,
	}
}

// VolumeVariationDetector flags files whose row count deviates from the
// weekday mean by more than Sigma all-time standard deviations.
type VolumeVariationDetector struct {
	toggle
	config VolumeVariationConfig
	mu     sync.RWMutex
}

// NewVolumeVariationDetector creates a new volume variation detector.
func NewVolumeVariationDetector() *VolumeVariationDetector {
	return &VolumeVariationDetector{
		toggle: toggle{enabled: true},
		config: DefaultVolumeVariationConfig(),
	}
}

// Type returns the incident type.
func (d *VolumeVariationDetector) Type() IncidentType {
	return IncidentVolumeVariation
}

// Descriptor returns the detector's input requirements.
func (d *VolumeVariationDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentVolumeVariation, NeedsProfile: true, NeedsDate: true}
}

// Check evaluates the day's records for one source.
func (d *VolumeVariationDetector) Check(ctx context.Context, in *Input) (*Incident, error) {
	if len(in.Records) == 0 || in.Profile == nil {
		return nil, nil
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	rowsMean, ok := in.Profile.RowsMeanOn(in.Date.Weekday())
	if !ok {
		return nil, nil
	}
	stdev, ok := in.Profile.StdevRows()
	if !ok {
		return nil, nil
	}
	if rowsMean < config.MinRowsMean {
		logging.Ctx(ctx).Debug().
			Str("source_id", in.SourceID).
			Float64("rows_mean", rowsMean).
			Msg("weekday rows mean below volume floor, skipping variation check")
		return nil, nil
	}

	limit := config.Sigma * stdev
	var flagged []telemetry.FileRecord
	for i := range in.Records {
		r := &in.Records[i]
		if !r.RowsKnown {
			continue
		}
		if math.Abs(float64(r.Rows)-rowsMean) > limit {
			flagged = append(flagged, *r)
		}
	}
	if len(flagged) == 0 {
		return nil, nil
	}

	return &Incident{
		SourceID: in.SourceID,
		Type:     IncidentVolumeVariation,
		Details: fmt.Sprintf(
			"Found %d files with an anomalous row count. The expected mean for %s is ~%.0f (stdev: %.0f).",
			len(flagged), weekdayAbbr(in.Date), rowsMean, stdev,
		),
		TotalIncidents: len(flagged),
		FilesToReview:  filenames(flagged),
	}, nil
}

// Configure updates the detector configuration.
func (d *VolumeVariationDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultVolumeVariationConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.Sigma <= 0 {
		return fmt.Errorf("sigma must be positive")
	}
	if newConfig.MinRowsMean < 0 {
		return fmt.Errorf("min_rows_mean must not be negative")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *VolumeVariationDetector) Config() VolumeVariationConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
