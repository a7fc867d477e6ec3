// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
)

// fakeRunner records run dates and signals each call.
type fakeRunner struct {
	mu     sync.Mutex
	dates  []time.Time
	ids    []string
	err    error
	called chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{called: make(chan struct{}, 8)}
}

func (f *fakeRunner) Run(ctx context.Context, date time.Time) (*pipeline.Report, error) {
	f.mu.Lock()
	f.dates = append(f.dates, date)
	f.ids = append(f.ids, logging.CorrelationIDFromContext(ctx))
	f.mu.Unlock()
	f.called <- struct{}{}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Report{Date: date.Format("2006-01-02")}, nil
}

func (f *fakeRunner) Dates() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.dates...)
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		now  string
		hour int
		want string
	}{
		{"2025-09-09T05:30:00Z", 6, "2025-09-09T06:00:00Z"},
		{"2025-09-09T06:00:00Z", 6, "2025-09-10T06:00:00Z"},
		{"2025-09-09T23:59:59Z", 0, "2025-09-10T00:00:00Z"},
		{"2025-12-31T07:00:00Z", 6, "2026-01-01T06:00:00Z"},
		{"2025-09-09T03:30:00-05:00", 6, "2025-09-10T06:00:00Z"},
		{"2025-09-09T03:30:00+05:00", 6, "2025-09-09T06:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			if got := NextRun(utc(tt.now), tt.hour); !got.Equal(utc(tt.want)) {
				t.Errorf("NextRun() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestPreviousDay(t *testing.T) {
	tests := []struct {
		at, want string
	}{
		{"2025-09-09T06:00:00Z", "2025-09-08"},
		{"2025-03-01T00:00:00Z", "2025-02-28"},
		{"2025-01-01T06:00:00Z", "2024-12-31"},
		{"2025-09-09T01:00:00+03:00", "2025-09-07"},
	}
	for _, tt := range tests {
		if got := PreviousDay(utc(tt.at)).Format("2006-01-02"); got != tt.want {
			t.Errorf("PreviousDay(%s) = %s, want %s", tt.at, got, tt.want)
		}
	}
}

// manualTimer fires the first wait immediately and blocks every later one.
func manualTimer() func(time.Duration) <-chan time.Time {
	var mu sync.Mutex
	calls := 0
	return func(time.Duration) <-chan time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		ch := make(chan time.Time, 1)
		if calls == 1 {
			ch <- time.Time{}
		}
		return ch
	}
}

func TestDailyScheduler_RunsPreviousDay(t *testing.T) {
	runner := newFakeRunner()
	s := NewDailyScheduler(runner, SchedulerConfig{Hour: 6, RunTimeout: time.Minute})
	s.now = func() time.Time { return utc("2025-09-09T05:30:00Z") }
	s.after = manualTimer()

	var reports []*pipeline.Report
	var mu sync.Mutex
	s.OnReport(func(r *pipeline.Report) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	select {
	case <-runner.called:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run did not happen")
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	dates := runner.Dates()
	if len(dates) != 1 || dates[0].Format("2006-01-02") != "2025-09-08" {
		t.Errorf("run dates = %v, want [2025-09-08]", dates)
	}
	if runner.ids[0] == "" {
		t.Error("scheduled run should carry a correlation id")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Errorf("OnReport called %d times, want 1", len(reports))
	}
}

func TestDailyScheduler_RunOnStart(t *testing.T) {
	runner := newFakeRunner()
	s := NewDailyScheduler(runner, SchedulerConfig{Hour: 6, RunOnStart: true})
	s.now = func() time.Time { return utc("2025-09-09T12:00:00Z") }
	s.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	<-runner.called
	cancel()
	<-errCh

	if dates := runner.Dates(); len(dates) != 1 || dates[0].Format("2006-01-02") != "2025-09-08" {
		t.Errorf("run dates = %v, want [2025-09-08]", dates)
	}
}

func TestDailyScheduler_FailuresDoNotStopSchedule(t *testing.T) {
	for _, runErr := range []error{
		fmt.Errorf("run: %w", detection.ErrNoSources),
		errors.New("disk full"),
	} {
		t.Run(runErr.Error(), func(t *testing.T) {
			runner := newFakeRunner()
			runner.err = runErr
			s := NewDailyScheduler(runner, SchedulerConfig{Hour: 6, RunOnStart: true})
			s.now = func() time.Time { return utc("2025-09-09T12:00:00Z") }
			s.after = manualTimer()

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- s.Serve(ctx) }()

			// RunOnStart plus the first timer tick.
			<-runner.called
			<-runner.called
			cancel()

			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		})
	}
}
