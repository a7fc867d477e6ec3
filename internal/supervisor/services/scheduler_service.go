// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// PipelineRunner runs detection for one operation date.
type PipelineRunner interface {
	Run(ctx context.Context, date time.Time) (*pipeline.Report, error)
}

// SchedulerConfig configures DailyScheduler.
type SchedulerConfig struct {
	// Hour is the UTC hour (0-23) of the daily run.
	Hour int

	// RunTimeout bounds each run. Zero means no bound beyond the service
	// context.
	RunTimeout time.Duration

	// RunOnStart also evaluates the previous day as soon as the service starts.
	RunOnStart bool
}

// DailyScheduler runs the pipeline every day at SchedulerConfig.Hour UTC for
// the previous UTC calendar day. Run failures are logged and the schedule
// continues; only cancellation ends Serve.
type DailyScheduler struct {
	runner   PipelineRunner
	cfg      SchedulerConfig
	onReport func(*pipeline.Report)
	name     string

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewDailyScheduler creates a scheduler for runner.
func NewDailyScheduler(runner PipelineRunner, cfg SchedulerConfig) *DailyScheduler {
	return &DailyScheduler{
		runner: runner,
		cfg:    cfg,
		name:   "daily-scheduler",
		now:    time.Now,
		after:  time.After,
	}
}

// OnReport registers fn to receive every successful report.
func (s *DailyScheduler) OnReport(fn func(*pipeline.Report)) {
	s.onReport = fn
}

// NextRun returns the first instant strictly after now at hour:00 UTC.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PreviousDay returns the UTC calendar day before t.
func PreviousDay(t time.Time) time.Time {
	return telemetry.DateOf(t.UTC()).AddDate(0, 0, -1)
}

// Serve implements suture.Service.
func (s *DailyScheduler) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)

	if s.cfg.RunOnStart {
		s.runOnce(ctx, s.now())
	}

	for {
		now := s.now()
		next := NextRun(now, s.cfg.Hour)
		log.Info().
			Time("next_run", next).
			Str("operation_date", PreviousDay(next).Format(telemetry.DateLayout)).
			Msg("next scheduled detection run")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(now)):
			s.runOnce(ctx, next)
		}
	}
}

// runOnce evaluates the day before at.
func (s *DailyScheduler) runOnce(ctx context.Context, at time.Time) {
	date := PreviousDay(at)

	runCtx := logging.ContextWithNewCorrelationID(ctx)
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.cfg.RunTimeout)
		defer cancel()
	}

	report, err := s.runner.Run(runCtx, date)
	switch {
	case err == nil:
		if s.onReport != nil {
			s.onReport(report)
		}
	case errors.Is(err, detection.ErrNoSources):
		logging.Ctx(runCtx).Warn().Str("service", s.name).Msg("scheduled run found nothing to evaluate")
	default:
		logging.Ctx(runCtx).Error().Err(err).Str("service", s.name).Msg("scheduled run failed")
	}
}

func (s *DailyScheduler) String() string {
	return s.name
}
