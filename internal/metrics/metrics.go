// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Snapshot Loading Metrics
	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_snapshot_loads_total",
			Help: "Total number of daily snapshot loads by outcome",
		},
		[]string{"result"}, // "ok", "missing", "malformed", "error"
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "uploadwatch_snapshot_records",
			Help: "Number of file records in the most recently loaded snapshot",
		},
	)

	// Detector Metrics
	DetectorEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_detector_evaluations_total",
			Help: "Total number of detector evaluations (one per source per run)",
		},
		[]string{"detector"},
	)

	DetectorIncidents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_detector_incidents_total",
			Help: "Total number of incidents emitted by each detector",
		},
		[]string{"detector"},
	)

	DetectorSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_detector_skips_total",
			Help: "Evaluations skipped because required inputs were unavailable",
		},
		[]string{"detector", "reason"}, // "no_profile", "no_records"
	)

	DetectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_detector_errors_total",
			Help: "Detector evaluations that failed (recovered panics)",
		},
		[]string{"detector"},
	)

	// Run Metrics
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "uploadwatch_run_duration_seconds",
			Help:    "Duration of a full load, detect and classify run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"result"}, // "ok", "no_sources", "error"
	)

	RunLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "uploadwatch_run_last_success_timestamp",
			Help: "Unix timestamp of the last successful run",
		},
	)

	SourcesBySeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "uploadwatch_sources_by_severity",
			Help: "Number of sources in each severity tier after the last run",
		},
		[]string{"severity"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploadwatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uploadwatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// Run outcomes used as the result label of RunsTotal.
const (
	RunResultOK        = "ok"
	RunResultNoSources = "no_sources"
	RunResultError     = "error"
)

// RecordRun records the outcome and duration of a pipeline run.
func RecordRun(duration time.Duration, result string) {
	RunDuration.Observe(duration.Seconds())
	RunsTotal.WithLabelValues(result).Inc()
	if result == RunResultOK {
		RunLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordSeverityCounts replaces the per-tier source gauges.
func RecordSeverityCounts(counts map[string]int) {
	SourcesBySeverity.Reset()
	for severity, n := range counts {
		SourcesBySeverity.WithLabelValues(severity).Set(float64(n))
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
