// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package api exposes the serve-mode HTTP API with chi.

Routes:

	GET  /healthz                  liveness and last run
	GET  /metrics                  Prometheus exposition
	GET  /api/v1/detectors         registered detectors with their counters
	POST /api/v1/runs/{date}       run detection for YYYY-MM-DD, returns the classification

On-demand runs are rate limited per client IP with httprate and bounded by
the configured run timeout. Responses use the models.APIResponse envelope.
*/
package api
