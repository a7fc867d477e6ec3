// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package metrics provides Prometheus metrics for the detection pipeline.

Metrics are registered on the default registry and exposed at /metrics when
running in serve mode:

	curl http://localhost:9310/metrics

# Available Metrics

Snapshot Loading:
  - uploadwatch_snapshot_loads_total: Snapshot loads (counter), label result
  - uploadwatch_snapshot_records: Records in the last snapshot (gauge)

Detectors:
  - uploadwatch_detector_evaluations_total: Evaluations (counter), label detector
  - uploadwatch_detector_incidents_total: Incidents emitted (counter), label detector
  - uploadwatch_detector_skips_total: Skipped evaluations (counter), labels detector, reason
  - uploadwatch_detector_errors_total: Recovered detector failures (counter), label detector

Runs:
  - uploadwatch_run_duration_seconds: Run latency (histogram)
  - uploadwatch_runs_total: Runs by outcome (counter), label result
  - uploadwatch_run_last_success_timestamp: Unix time of last good run (gauge)
  - uploadwatch_sources_by_severity: Sources per tier after last run (gauge), label severity

API:
  - uploadwatch_api_requests_total, uploadwatch_api_request_duration_seconds
*/
package metrics
