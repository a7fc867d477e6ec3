// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/metrics"
	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// ErrNoSources is returned by Run when neither the profiles nor the snapshot
// name a single source: there is no work to do.
var ErrNoSources = errors.New("no sources to evaluate")

// ErrNoDate is returned by Run when an enabled detector needs the operation
// date and none was given.
var ErrNoDate = errors.New("operation date is required")

// Skip reasons used as the reason label of metrics.DetectorSkips.
const (
	skipNoProfile = "no_profile"
)

// Engine runs the registered detectors for every source of a daily snapshot.
type Engine struct {
	mu        sync.RWMutex
	detectors []Detector
	byType    map[IncidentType]Detector

	metricsMu    sync.RWMutex
	metricsStore *EngineMetrics
}

// EngineMetrics tracks detection engine activity since start.
type EngineMetrics struct {
	RunsCompleted      int64
	SourcesEvaluated   int64
	IncidentsGenerated int64
	DetectionErrors    int64
	LastRunDurationMs  int64
	LastRunAt          time.Time
	DetectorMetrics    map[IncidentType]*DetectorMetrics
}

// DetectorMetrics tracks individual detector activity.
type DetectorMetrics struct {
	Evaluations     int64
	Incidents       int64
	Skipped         int64
	Errors          int64
	LastTriggeredAt *time.Time
}

// RunInput is one detection run's input.
type RunInput struct {
	// Date is the operation date; only its calendar date is used.
	Date time.Time

	// Snapshot holds the day's records. May be nil or empty.
	Snapshot *telemetry.Snapshot

	// Profiles may be nil when no profile collection is available.
	Profiles *profile.Set
}

// RunResult is the outcome of a detection run.
type RunResult struct {
	Date time.Time

	// SourceIDs is the sorted universe of evaluated sources.
	SourceIDs []string

	// Incidents are ordered by source id, then by detector registration order.
	Incidents []Incident

	// Errors lists detector failures. They never abort the run.
	Errors []DetectorError

	Duration time.Duration
}

// DetectorError records a detector that failed for one source.
type DetectorError struct {
	SourceID string       `json:"source_id"`
	Detector IncidentType `json:"detector"`
	Err      string       `json:"error"`
}

// NewEngine creates an engine with no detectors.
func NewEngine() *Engine {
	return &Engine{
		byType: make(map[IncidentType]Detector),
		metricsStore: &EngineMetrics{
			DetectorMetrics: make(map[IncidentType]*DetectorMetrics),
		},
	}
}

// DefaultDetectors returns one instance of each built-in detector in
// registration order.
func DefaultDetectors() []Detector {
	return []Detector{
		NewDuplicateFailedDetector(),
		NewEmptyFileDetector(),
		NewMissingFilesDetector(),
		NewVolumeVariationDetector(),
		NewLateUploadDetector(),
		NewStaleCoverageDetector(),
	}
}

// NewDefaultEngine creates an engine with every built-in detector registered.
func NewDefaultEngine() *Engine {
	e := NewEngine()
	for _, d := range DefaultDetectors() {
		e.RegisterDetector(d)
	}
	return e
}

// RegisterDetector adds a detector to the engine. Registering a second
// detector of the same type replaces the first in place.
func (e *Engine) RegisterDetector(detector Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := detector.Type()
	if _, exists := e.byType[t]; exists {
		for i := range e.detectors {
			if e.detectors[i].Type() == t {
				e.detectors[i] = detector
			}
		}
	} else {
		e.detectors = append(e.detectors, detector)
	}
	e.byType[t] = detector

	e.metricsMu.Lock()
	e.metricsStore.DetectorMetrics[t] = &DetectorMetrics{}
	e.metricsMu.Unlock()

	logging.Debug().Str("detector", string(t)).Msg("registered detector")
}

// GetDetector returns a detector by incident type.
func (e *Engine) GetDetector(t IncidentType) (Detector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.byType[t]
	return d, ok
}

// Detectors returns the registered detectors in registration order.
func (e *Engine) Detectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Detector, len(e.detectors))
	copy(out, e.detectors)
	return out
}

// ConfigureDetector applies a JSON configuration to the detector of type t.
func (e *Engine) ConfigureDetector(t IncidentType, config json.RawMessage) error {
	d, ok := e.GetDetector(t)
	if !ok {
		return fmt.Errorf("unknown detector %q", t)
	}
	if err := d.Configure(config); err != nil {
		return fmt.Errorf("configure %s: %w", t, err)
	}
	return nil
}

// SetDetectorEnabled enables or disables the detector of type t.
func (e *Engine) SetDetectorEnabled(t IncidentType, enabled bool) error {
	d, ok := e.GetDetector(t)
	if !ok {
		return fmt.Errorf("unknown detector %q", t)
	}
	d.SetEnabled(enabled)
	return nil
}

// enabledDetectors returns the enabled detectors in registration order.
func (e *Engine) enabledDetectors() []Detector {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Detector, 0, len(e.detectors))
	for _, d := range e.detectors {
		if d.Enabled() {
			out = append(out, d)
		}
	}
	return out
}

// SourceUniverse returns the sorted union of profile and snapshot source ids.
func SourceUniverse(snap *telemetry.Snapshot, profiles *profile.Set) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, profiles.Len())
	for _, id := range profiles.IDs() {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if snap != nil {
		for _, id := range snap.SourceIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Run evaluates every enabled detector for every source and returns the
// incidents in a deterministic order. Detector failures are recorded in the
// result and never abort the run; the only run-level failures are
// ErrNoSources, ErrNoDate and a context already done.
func (e *Engine) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	detectors := e.enabledDetectors()
	date := in.Date
	if date.IsZero() {
		for _, d := range detectors {
			if d.Descriptor().NeedsDate {
				return nil, ErrNoDate
			}
		}
	} else {
		date = telemetry.DateOf(date)
	}

	sources := SourceUniverse(in.Snapshot, in.Profiles)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	var bySource map[string][]telemetry.FileRecord
	if in.Snapshot != nil {
		bySource = in.Snapshot.BySource()
	} else {
		bySource = map[string][]telemetry.FileRecord{}
	}

	type sourceResult struct {
		incidents []Incident
		errs      []DetectorError
	}
	results := make([]sourceResult, len(sources))

	var wg sync.WaitGroup
	for i, id := range sources {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			input := &Input{
				SourceID: id,
				Records:  bySource[id],
				Profile:  in.Profiles.Get(id),
				Date:     date,
			}
			for _, d := range detectors {
				incident, err := e.runSingleDetector(ctx, d, input)
				if err != nil {
					results[i].errs = append(results[i].errs, DetectorError{
						SourceID: id,
						Detector: d.Type(),
						Err:      err.Error(),
					})
					continue
				}
				if incident != nil {
					results[i].incidents = append(results[i].incidents, *incident)
				}
			}
		}(i, id)
	}
	wg.Wait()

	res := &RunResult{Date: date, SourceIDs: sources, Incidents: []Incident{}}
	for i := range results {
		res.Incidents = append(res.Incidents, results[i].incidents...)
		res.Errors = append(res.Errors, results[i].errs...)
	}
	res.Duration = time.Since(start)

	e.updateRunMetrics(len(sources), res.Duration)

	logging.Ctx(ctx).Info().
		Int("sources", len(sources)).
		Int("detectors", len(detectors)).
		Int("incidents", len(res.Incidents)).
		Int("errors", len(res.Errors)).
		Dur("duration", res.Duration).
		Msg("detection run complete")

	return res, nil
}

// runSingleDetector executes one detector for one source and updates its
// metrics. A panicking detector is recovered and reported as an error.
func (e *Engine) runSingleDetector(ctx context.Context, detector Detector, in *Input) (incident *Incident, err error) {
	t := detector.Type()
	desc := detector.Descriptor()

	if desc.NeedsProfile && in.Profile == nil {
		e.recordSkip(t)
		metrics.DetectorSkips.WithLabelValues(string(t), skipNoProfile).Inc()
		return nil, nil
	}

	e.metricsMu.Lock()
	if m, ok := e.metricsStore.DetectorMetrics[t]; ok {
		m.Evaluations++
	}
	e.metricsMu.Unlock()
	metrics.DetectorEvaluations.WithLabelValues(string(t)).Inc()

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Str("detector", string(t)).
				Str("source_id", in.SourceID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("detector panicked")
			incident = nil
			err = fmt.Errorf("%s: panic: %v", t, r)
		}
		if err != nil {
			e.recordError(t)
			metrics.DetectorErrors.WithLabelValues(string(t)).Inc()
		}
	}()

	incident, err = detector.Check(ctx, in)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("detector", string(t)).
			Str("source_id", in.SourceID).
			Msg("detector failed")
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	if incident == nil {
		return nil, nil
	}

	if incident.SourceID == "" {
		incident.SourceID = in.SourceID
	}
	if incident.FilesToReview == nil {
		incident.FilesToReview = []string{}
	}
	e.recordIncident(t)
	metrics.DetectorIncidents.WithLabelValues(string(t)).Inc()
	return incident, nil
}

func (e *Engine) recordSkip(t IncidentType) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	if m, ok := e.metricsStore.DetectorMetrics[t]; ok {
		m.Skipped++
	}
}

func (e *Engine) recordError(t IncidentType) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	if m, ok := e.metricsStore.DetectorMetrics[t]; ok {
		m.Errors++
	}
	e.metricsStore.DetectionErrors++
}

func (e *Engine) recordIncident(t IncidentType) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	if m, ok := e.metricsStore.DetectorMetrics[t]; ok {
		m.Incidents++
		now := time.Now()
		m.LastTriggeredAt = &now
	}
	e.metricsStore.IncidentsGenerated++
}

func (e *Engine) updateRunMetrics(sources int, d time.Duration) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	e.metricsStore.RunsCompleted++
	e.metricsStore.SourcesEvaluated += int64(sources)
	e.metricsStore.LastRunDurationMs = d.Milliseconds()
	e.metricsStore.LastRunAt = time.Now()
}

// Metrics returns a copy of the engine metrics.
func (e *Engine) Metrics() EngineMetrics {
	e.metricsMu.RLock()
	defer e.metricsMu.RUnlock()

	out := EngineMetrics{
		RunsCompleted:      e.metricsStore.RunsCompleted,
		SourcesEvaluated:   e.metricsStore.SourcesEvaluated,
		IncidentsGenerated: e.metricsStore.IncidentsGenerated,
		DetectionErrors:    e.metricsStore.DetectionErrors,
		LastRunDurationMs:  e.metricsStore.LastRunDurationMs,
		LastRunAt:          e.metricsStore.LastRunAt,
		DetectorMetrics:    make(map[IncidentType]*DetectorMetrics, len(e.metricsStore.DetectorMetrics)),
	}
	for t, m := range e.metricsStore.DetectorMetrics {
		c := *m
		out.DetectorMetrics[t] = &c
	}
	return out
}
