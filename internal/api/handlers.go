// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/models"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// Version is reported by /healthz; set by the binary at build time.
var Version = "dev"

// RunService runs the detection pipeline for one date.
type RunService interface {
	Run(ctx context.Context, date time.Time) (*pipeline.Report, error)
}

// DetectorRegistry exposes registered detectors and their counters.
type DetectorRegistry interface {
	Detectors() []detection.Detector
	Metrics() detection.EngineMetrics
}

// RunRequest is the validated input of TriggerRun.
type RunRequest struct {
	Date string `json:"date" validate:"required,opdate"`
}

// Handler serves the API.
type Handler struct {
	runs       RunService
	detectors  DetectorRegistry
	runTimeout time.Duration
	startTime  time.Time

	mu          sync.RWMutex
	lastRunDate string
	lastRunAt   *time.Time
}

// NewHandler creates a handler. runTimeout bounds each on-demand run; zero
// leaves runs bounded only by the request context.
func NewHandler(runs RunService, detectors DetectorRegistry, runTimeout time.Duration) *Handler {
	return &Handler{
		runs:       runs,
		detectors:  detectors,
		runTimeout: runTimeout,
		startTime:  time.Now(),
	}
}

// RecordRun notes a finished run for /healthz. The scheduler calls it too.
func (h *Handler) RecordRun(report *pipeline.Report) {
	if report == nil {
		return
	}
	now := time.Now().UTC()
	h.mu.Lock()
	h.lastRunDate = report.Date
	h.lastRunAt = &now
	h.mu.Unlock()
}

// Health reports liveness and the last completed run.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	status := models.HealthStatus{
		Status:      "healthy",
		Version:     Version,
		Uptime:      time.Since(h.startTime).Seconds(),
		LastRunDate: h.lastRunDate,
		LastRunAt:   h.lastRunAt,
	}
	h.mu.RUnlock()

	if h.detectors != nil {
		status.RunsCompleted = h.detectors.Metrics().RunsCompleted
	}
	respondSuccess(w, r, status, 0)
}

// Detectors lists the registered detectors in registration order.
func (h *Handler) Detectors(w http.ResponseWriter, r *http.Request) {
	if h.detectors == nil {
		respondSuccess(w, r, []models.DetectorStatus{}, 0)
		return
	}
	m := h.detectors.Metrics()
	detectors := h.detectors.Detectors()

	out := make([]models.DetectorStatus, 0, len(detectors))
	for _, d := range detectors {
		desc := d.Descriptor()
		st := models.DetectorStatus{
			Type:         d.Type(),
			Enabled:      d.Enabled(),
			NeedsProfile: desc.NeedsProfile,
			Advisory:     desc.Advisory,
		}
		if dm, ok := m.DetectorMetrics[d.Type()]; ok && dm != nil {
			st.Evaluations = dm.Evaluations
			st.Incidents = dm.Incidents
			st.Skipped = dm.Skipped
			st.Errors = dm.Errors
			st.LastTriggeredAt = dm.LastTriggeredAt
		}
		out = append(out, st)
	}
	respondSuccess(w, r, out, 0)
}

// TriggerRun runs detection for the date in the path and returns the
// classification.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	req := RunRequest{Date: chi.URLParam(r, "date")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: metadata(r),
			Error:    apiErr,
		})
		return
	}
	date, err := telemetry.ParseOperationDate(req.Date)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "date must be a YYYY-MM-DD date", nil)
		return
	}

	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	start := time.Now()
	report, err := h.runs.Run(ctx, date)
	if err != nil {
		status, code, msg := runErrorStatus(err)
		respondError(w, r, status, code, msg, err)
		return
	}
	h.RecordRun(report)

	respondSuccess(w, r, models.RunResponse{
		RunID:          report.RunID,
		Date:           report.Date,
		Sources:        report.Sources,
		Records:        report.Records,
		TotalIncidents: len(report.Incidents),
		Summary:        report.Summary,
		Classification: report.Classification,
		Errors:         report.Errors,
	}, time.Since(start))
}

// runErrorStatus maps pipeline errors to HTTP responses.
func runErrorStatus(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, detection.ErrNoSources):
		return http.StatusNotFound, "NO_SOURCES", "no telemetry or profiles for this date"
	case errors.Is(err, pipeline.ErrProfilesUnavailable), errors.Is(err, profile.ErrNoProfiles):
		return http.StatusServiceUnavailable, "PROFILES_UNAVAILABLE", "source profiles are not available"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "RUN_TIMEOUT", "detection run timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "RUN_CANCELED", "detection run was canceled"
	default:
		return http.StatusInternalServerError, "RUN_FAILED", "detection run failed"
	}
}
