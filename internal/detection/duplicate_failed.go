// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// DuplicateFailedConfig configures the duplicate/failed file detector.
type DuplicateFailedConfig struct {
	// FailedStatus is compared case-insensitively against each record's status.
	FailedStatus string `json:"failed_status"`
}

// DefaultDuplicateFailedConfig returns the default configuration.
func DefaultDuplicateFailedConfig() DuplicateFailedConfig {
	return DuplicateFailedConfig{FailedStatus: telemetry.StatusStopped}
}

// DuplicateFailedDetector flags files marked as duplicated or whose upstream
// processing stopped.
type DuplicateFailedDetector struct {
	toggle
	config DuplicateFailedConfig
	mu     sync.RWMutex
}

// NewDuplicateFailedDetector creates a new duplicate/failed file detector.
func NewDuplicateFailedDetector() *DuplicateFailedDetector {
	return &DuplicateFailedDetector{
		toggle: toggle{enabled: true},
		config: DefaultDuplicateFailedConfig(),
	}
}

// Type returns the incident type.
func (d *DuplicateFailedDetector) Type() IncidentType {
	return IncidentDuplicateOrFailed
}

// Descriptor returns the detector's input requirements.
func (d *DuplicateFailedDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentDuplicateOrFailed}
}

// Check evaluates the day's records for one source.
func (d *DuplicateFailedDetector) Check(_ context.Context, in *Input) (*Incident, error) {
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	var flagged []telemetry.FileRecord
	for i := range in.Records {
		r := &in.Records[i]
		if r.IsDuplicated || strings.EqualFold(r.Status, config.FailedStatus) {
			flagged = append(flagged, *r)
		}
	}
	if len(flagged) == 0 {
		return nil, nil
	}

	return &Incident{
		SourceID: in.SourceID,
		Type:     IncidentDuplicateOrFailed,
		Details: fmt.Sprintf(
			"Found %d files marked as duplicated or with status '%s'.",
			len(flagged), config.FailedStatus,
		),
		TotalIncidents: len(flagged),
		FilesToReview:  filenames(flagged),
	}, nil
}

// Configure updates the detector configuration.
func (d *DuplicateFailedDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultDuplicateFailedConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.TrimSpace(newConfig.FailedStatus) == "" {
		return fmt.Errorf("failed_status must not be empty")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *DuplicateFailedDetector) Config() DuplicateFailedConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
