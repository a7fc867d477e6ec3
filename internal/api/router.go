// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/uploadwatch/internal/config"
	"github.com/tomtom215/uploadwatch/internal/middleware"
)

// RouterConfig holds HTTP-layer settings.
type RouterConfig struct {
	CORSOrigins []string

	// RunRateLimit is the number of on-demand runs per IP per RunRateWindow.
	// Zero disables the limit.
	RunRateLimit  int
	RunRateWindow time.Duration

	// SlowRequest marks requests logged at warn level.
	SlowRequest time.Duration
}

// RouterConfigFromServer extracts router settings from the server config.
func RouterConfigFromServer(cfg *config.ServerConfig) RouterConfig {
	return RouterConfig{
		CORSOrigins:   cfg.CORSOrigins,
		RunRateLimit:  cfg.RunRateLimit,
		RunRateWindow: time.Minute,
		SlowRequest:   5 * time.Second,
	}
}

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(cfg.SlowRequest))
	r.Use(middleware.Metrics)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compression)

		r.Get("/detectors", h.Detectors)

		runs := r.With()
		if cfg.RunRateLimit > 0 {
			runs = r.With(httprate.LimitByIP(cfg.RunRateLimit, cfg.RunRateWindow))
		}
		runs.Post("/runs/{date}", h.TriggerRun)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
