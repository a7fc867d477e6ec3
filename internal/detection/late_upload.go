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
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// LateUploadConfig configures the late upload detector.
type LateUploadConfig struct {
	// GraceHours is added to the end of the expected window.
	GraceHours float64 `json:"grace_hours"`
}

// DefaultLateUploadConfig returns the default configuration.
func DefaultLateUploadConfig() LateUploadConfig {
	return LateUploadConfig{GraceHours: 4}
}

// Grace returns the grace period as a duration.
func (c LateUploadConfig) Grace() time.Duration {
	return time.Duration(c.GraceHours * float64(time.Hour))
}

// LateUploadDetector flags files uploaded after the end of the source's
// expected upload window plus a grace period. Advisory.
type LateUploadDetector struct {
	toggle
	config LateUploadConfig
	mu     sync.RWMutex
}

// NewLateUploadDetector creates a new late upload detector.
func NewLateUploadDetector() *LateUploadDetector {
	return &LateUploadDetector{
		toggle: toggle{enabled: true},
		config: DefaultLateUploadConfig(),
	}
}

// Type returns the incident type.
func (d *LateUploadDetector) Type() IncidentType {
	return IncidentLateUpload
}

// Descriptor returns the detector's input requirements.
func (d *LateUploadDetector) Descriptor() Descriptor {
	return Descriptor{Type: IncidentLateUpload, NeedsProfile: true, NeedsDate: true, Advisory: true}
}

// Check evaluates the day's records for one source.
func (d *LateUploadDetector) Check(ctx context.Context, in *Input) (*Incident, error) {
	if len(in.Records) == 0 || in.Profile == nil {
		return nil, nil
	}
	d.mu.RLock()
	config := d.config
	d.mu.RUnlock()

	window, ok := in.Profile.UploadWindowOn(in.Date.Weekday())
	if !ok {
		return nil, nil
	}
	end, err := ParseWindowEnd(window)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("source_id", in.SourceID).Msg("upload window not recognized")
		return nil, nil
	}

	deadline := telemetry.DateOf(in.Date).Add(end).Add(config.Grace())
	var late []telemetry.FileRecord
	for i := range in.Records {
		if in.Records[i].UploadedAt.After(deadline) {
			late = append(late, in.Records[i])
		}
	}
	if len(late) == 0 {
		return nil, nil
	}

	windowEnd := time.Time{}.Add(end)
	return &Incident{
		SourceID: in.SourceID,
		Type:     IncidentLateUpload,
		Details: fmt.Sprintf(
			"Received %d files more than %s after the expected window closed (~%s UTC).",
			len(late), formatHours(config.GraceHours), windowEnd.Format("15:04"),
		),
		TotalIncidents: len(late),
		FilesToReview:  filenames(late),
	}, nil
}

// Configure updates the detector configuration.
func (d *LateUploadDetector) Configure(config json.RawMessage) error {
	newConfig := DefaultLateUploadConfig()
	if err := json.Unmarshal(config, &newConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.GraceHours < 0 {
		return fmt.Errorf("grace_hours must not be negative")
	}

	d.mu.Lock()
	d.config = newConfig
	d.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (d *LateUploadDetector) Config() LateUploadConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// ParseWindowEnd extracts the end time of an upload window such as
// "11:00:00–11:30:00 UTC" and returns it as an offset from midnight.
// The separator may be an en-dash or a plain hyphen.
func ParseWindowEnd(window string) (time.Duration, error) {
	parts := strings.Split(window, "–")
	if len(parts) < 2 {
		parts = strings.Split(window, "-")
	}
	if len(parts) < 2 {
		return 0, fmt.Errorf("upload window %q has no range separator", window)
	}

	endStr := strings.TrimSpace(strings.ReplaceAll(parts[1], " UTC", ""))
	end, err := time.Parse("15:04:05", endStr)
	if err != nil {
		return 0, fmt.Errorf("upload window %q: %w", window, err)
	}
	return time.Duration(end.Hour())*time.Hour +
		time.Duration(end.Minute())*time.Minute +
		time.Duration(end.Second())*time.Second, nil
}

func formatHours(h float64) string {
	if h == 1 {
		return "1 hour"
	}
	return formatNumber(h) + " hours"
}
