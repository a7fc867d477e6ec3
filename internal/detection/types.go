// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// IncidentType identifies the detector that produced an incident.
type IncidentType string

const (
	// IncidentDuplicateOrFailed flags duplicated or stopped files.
	IncidentDuplicateOrFailed IncidentType = "DuplicateOrFailedFile"

	// IncidentUnexpectedEmpty flags an unusual number of zero-row files.
	IncidentUnexpectedEmpty IncidentType = "UnexpectedEmptyFile"

	// IncidentMissingFiles flags a shortfall against the expected file count.
	IncidentMissingFiles IncidentType = "MissingFiles"

	// IncidentVolumeVariation flags files with anomalous row counts.
	IncidentVolumeVariation IncidentType = "UnexpectedVolumeVariation"

	// IncidentLateUpload flags files uploaded after the grace deadline. Advisory.
	IncidentLateUpload IncidentType = "LateUpload"

	// IncidentStaleCoverage flags files whose coverage date is too old. Advisory.
	IncidentStaleCoverage IncidentType = "StaleCoverageUpload"
)

// AllIncidentTypes lists every incident type in detector registration order.
var AllIncidentTypes = []IncidentType{
	IncidentDuplicateOrFailed,
	IncidentUnexpectedEmpty,
	IncidentMissingFiles,
	IncidentVolumeVariation,
	IncidentLateUpload,
	IncidentStaleCoverage,
}

// ParseIncidentType validates an incident type name.
func ParseIncidentType(s string) (IncidentType, bool) {
	for _, t := range AllIncidentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Incident is one aggregated anomaly for one source and one detector.
//
// The JSON field names are consumed by downstream advisory tooling and must
// not change; "total_incidentes" is spelled as that tooling expects.
type Incident struct {
	SourceID       string       `json:"source_id"`
	Type           IncidentType `json:"incident_type"`
	Details        string       `json:"incident_details"`
	TotalIncidents int          `json:"total_incidentes"`
	FilesToReview  []string     `json:"files_to_review"`
}

// Descriptor declares statically which inputs a detector reads.
type Descriptor struct {
	Type IncidentType

	// NeedsProfile detectors cannot evaluate without a source profile;
	// the engine skips them for unknown sources.
	NeedsProfile bool

	// UsesProfile detectors read the profile when present but also have a
	// defined behaviour without one.
	UsesProfile bool

	// NeedsDate detectors read the operation date.
	NeedsDate bool

	// Advisory incidents are informational.
	Advisory bool
}

// Input is everything a detector sees for one source.
type Input struct {
	SourceID string

	// Records are the source's files uploaded on Date, in document order.
	Records []telemetry.FileRecord

	// Profile is nil when the source has no historical profile.
	Profile *profile.SourceProfile

	// Date is the operation date at midnight UTC.
	Date time.Time
}

// Detector is the interface every detection rule implements.
type Detector interface {
	// Type returns the incident type this detector produces.
	Type() IncidentType

	// Descriptor returns the detector's static input requirements.
	Descriptor() Descriptor

	// Check evaluates one source. It returns nil when nothing is anomalous
	// or when the available data cannot be evaluated.
	Check(ctx context.Context, in *Input) (*Incident, error)

	// Configure updates the detector configuration.
	Configure(config json.RawMessage) error

	// Enabled returns whether this detector is currently enabled.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// toggle carries the enabled flag shared by every detector.
type toggle struct {
	mu      sync.RWMutex
	enabled bool
}

// Enabled returns whether the detector is enabled.
func (t *toggle) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// SetEnabled enables or disables the detector.
func (t *toggle) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// filenames returns the filenames of records, never nil.
func filenames(records []telemetry.FileRecord) []string {
	out := make([]string, 0, len(records))
	for i := range records {
		out = append(out, records[i].Filename)
	}
	return out
}

// weekdayAbbr returns the three-letter English abbreviation used in messages.
func weekdayAbbr(d time.Time) string {
	return d.Weekday().String()[:3]
}
