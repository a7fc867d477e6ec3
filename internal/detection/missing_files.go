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
)

// MissingFilesConfig configures the missing files detector.
type MissingFilesConfig struct {
	// Tolerance is the shortfall accepted without an incident.
	Tolerance int `json:"tolerance"`
}

// DefaultMissingFilesConfig returns the default configuration.
func DefaultMissingFilesConfig() MissingFilesConfig {
	return MissingFilesConfig{Tolerance: 0}
}

// MissingFilesDetector compares the number of files received with the
// source's mean for the weekday. It can fire when nothing was received.
type MissingFilesDetector struct {
	toggle
	config MissingFilesConfig
	mu     sync.RWMutex
}

// NewMissingFilesDetector creates a new missing files detector.
func NewMissingFilesDetector() *MissingFilesDetector {
	return &MissingFilesDetector{
		toggle: toggle{enabled: true},
		config: DefaultMissingFilesConfig(),
	}
}

// Type returns the incident type.
func (d *MissingFilesDetector) Type() IncidentType {
	return IncidentMissingFiles
}

// Descriptor returns the detector's input requirements.
func (d *MissingFilesDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentMissingFiles, NeedsProfile: true, NeedsDate: true}
}

// Check evaluates the day's records for one source.
func (d *MissingFilesDetector) Check(_ context.Context, in *Input) (*Incident, error) {
	if in.Profile == nil {
		return nil, nil
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	mean, ok := in.Profile.MeanFilesOn(in.Date.Weekday())
	if !ok {
		return nil, nil
	}

	expected := int(math.RoundToEven(mean))
	received := len(in.Records)
	shortfall := expected - received
	if shortfall <= config.Tolerance {
		return nil, nil
	}

	return &Incident{
		SourceID: in.SourceID,
		Type:     IncidentMissingFiles,
		Details: fmt.Sprintf(
			"Received %d files but about %d were expected (historical mean for %s is %.2f).",
			received, expected, weekdayAbbr(in.Date), mean,
		),
		TotalIncidents: shortfall,
		FilesToReview:  filenames(in.Records),
	}, nil
}

// Configure updates the detector configuration.
func (d *MissingFilesDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultMissingFilesConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *MissingFilesDetector) Config() MissingFilesConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
