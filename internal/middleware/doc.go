// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package middleware provides HTTP middleware for the uploadwatch API.

All middleware has the chi signature func(http.Handler) http.Handler:

  - RequestID: X-Request-ID propagation and a logging correlation id
  - Metrics: Prometheus request counters and latency, labelled by route pattern
  - AccessLog: one zerolog line per request, warning on slow requests
  - Compression: gzip for clients that accept it

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(time.Second))
	r.Use(middleware.Metrics)
	r.Use(middleware.Compression)
*/
package middleware
