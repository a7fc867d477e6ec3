// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/uploadwatch/internal/config"
	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/metrics"
	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/severity"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// ErrProfilesUnavailable is returned when profiles are required but could not
// be loaded, whether the file is missing or malformed.
var ErrProfilesUnavailable = errors.New("source profiles unavailable")

// Options controls a Runner.
type Options struct {
	ProfilesPath       string
	ProfilesRequired   bool
	ClassifyAllSources bool
	OutputDir          string
	Indent             bool
}

// OptionsFromConfig extracts runner options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProfilesPath:       cfg.Profiles.Path,
		ProfilesRequired:   cfg.Profiles.Required,
		ClassifyAllSources: cfg.Detection.ClassifyAllSources,
		OutputDir:          cfg.Output.Dir,
		Indent:             cfg.Output.Indent,
	}
}

// Report is the outcome of one pipeline run.
type Report struct {
	RunID          string                    `json:"run_id"`
	Date           string                    `json:"date"`
	Sources        int                       `json:"sources"`
	Records        int                       `json:"records"`
	Incidents      []detection.Incident      `json:"incidents"`
	Classification severity.Classification   `json:"classification"`
	Summary        severity.Summary          `json:"summary"`
	Errors         []detection.DetectorError `json:"errors,omitempty"`
	Files          ResultFiles               `json:"files"`
	Duration       time.Duration             `json:"duration_ns"`
}

// Runner executes detection runs for a date.
type Runner struct {
	loader *telemetry.Loader
	engine *detection.Engine
	writer *ResultWriter
	opts   Options

	// loadProfiles is swapped in tests.
	loadProfiles func(path string) (*profile.Set, error)

	mu sync.Mutex
}

// NewRunner creates a runner over the given loader and engine.
func NewRunner(loader *telemetry.Loader, engine *detection.Engine, opts Options) *Runner {
	return &Runner{
		loader:       loader,
		engine:       engine,
		writer:       NewResultWriter(opts.OutputDir, opts.Indent),
		opts:         opts,
		loadProfiles: newProfileCache(profile.LoadFile).Load,
	}
}

// Engine returns the runner's detection engine.
func (r *Runner) Engine() *detection.Engine {
	return r.engine
}

// Run evaluates the given operation date and writes the result files.
func (r *Runner) Run(ctx context.Context, date time.Time) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	date = telemetry.DateOf(date)
	dateStr := date.Format(telemetry.DateLayout)

	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	ctx = logging.ContextWithOperationDate(ctx, dateStr)
	log := logging.Ctx(ctx)

	log.Info().Msg("detection run started")

	profiles, err := r.profiles(ctx)
	if err != nil {
		metrics.RecordRun(time.Since(start), metrics.RunResultError)
		return nil, err
	}

	snap := r.loader.LoadDay(ctx, date)

	res, err := r.engine.Run(ctx, detection.RunInput{
		Date:     date,
		Snapshot: snap,
		Profiles: profiles,
	})
	if err != nil {
		if errors.Is(err, detection.ErrNoSources) {
			metrics.RecordRun(time.Since(start), metrics.RunResultNoSources)
			log.Warn().Msg("no telemetry and no profiles for date, nothing to evaluate")
		} else {
			metrics.RecordRun(time.Since(start), metrics.RunResultError)
			log.Error().Err(err).Msg("detection run failed")
		}
		return nil, fmt.Errorf("run %s: %w", dateStr, err)
	}

	var classification severity.Classification
	if r.opts.ClassifyAllSources {
		classification = severity.ClassifyAll(res.Incidents, res.SourceIDs)
	} else {
		classification = severity.Classify(res.Incidents)
	}
	summary := classification.Summarize()

	files, err := r.writer.Write(dateStr, res.Incidents, classification)
	if err != nil {
		metrics.RecordRun(time.Since(start), metrics.RunResultError)
		log.Error().Err(err).Msg("failed to write run results")
		return nil, err
	}

	report := &Report{
		RunID:          logging.CorrelationIDFromContext(ctx),
		Date:           dateStr,
		Sources:        len(res.SourceIDs),
		Records:        snap.Len(),
		Incidents:      res.Incidents,
		Classification: classification,
		Summary:        summary,
		Errors:         res.Errors,
		Files:          files,
		Duration:       time.Since(start),
	}

	metrics.RecordSeverityCounts(summary.Counts)
	metrics.RecordRun(report.Duration, metrics.RunResultOK)

	log.Info().
		Int("sources", report.Sources).
		Int("incidents", len(report.Incidents)).
		Int("urgent", summary.Counts[severity.Urgent.String()]).
		Int("warning", summary.Counts[severity.Warning.String()]).
		Str("incidents_file", files.Incidents).
		Dur("duration", report.Duration).
		Msg("detection run finished")

	return report, nil
}

// profiles loads the profile collection, degrading to an empty set unless
// profiles are required.
func (r *Runner) profiles(ctx context.Context) (*profile.Set, error) {
	set, err := r.loadProfiles(r.opts.ProfilesPath)
	if err == nil {
		return set, nil
	}
	if r.opts.ProfilesRequired {
		return nil, fmt.Errorf("load profiles: %w: %w", ErrProfilesUnavailable, err)
	}
	logging.Ctx(ctx).Warn().Err(err).Str("path", r.opts.ProfilesPath).
		Msg("profiles unavailable, continuing without profiles")
	return profile.NewSet(), nil
}
