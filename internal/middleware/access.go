// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/uploadwatch/internal/logging"
)

// AccessLog logs each request at debug level, or at warn level when it takes
// longer than slow. A zero slow disables the warning.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			log := logging.Ctx(r.Context())
			event := log.Debug()
			msg := "request"
			if slow > 0 && duration > slow {
				event = log.Warn()
				msg = "slow request"
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapper.statusCode).
				Dur("duration", duration).
				Msg(msg)
		})
	}
}
