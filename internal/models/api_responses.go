// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package models

import (
	"time"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/severity"
)

// APIResponse is the envelope of every JSON API response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes the response itself.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error code with a human message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by /healthz.
type HealthStatus struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Uptime        float64    `json:"uptime_seconds"`
	LastRunDate   string     `json:"last_run_date,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	RunsCompleted int64      `json:"runs_completed"`
}

// RunResponse is the result of an on-demand detection run.
type RunResponse struct {
	RunID          string                    `json:"run_id"`
	Date           string                    `json:"date"`
	Sources        int                       `json:"sources"`
	Records        int                       `json:"records"`
	TotalIncidents int                       `json:"total_incidents"`
	Summary        severity.Summary          `json:"summary"`
	Classification severity.Classification   `json:"classification"`
	Errors         []detection.DetectorError `json:"errors,omitempty"`
}

// DetectorStatus describes one registered detector.
type DetectorStatus struct {
	Type            detection.IncidentType `json:"type"`
	Enabled         bool                   `json:"enabled"`
	NeedsProfile    bool                   `json:"needs_profile"`
	Advisory        bool                   `json:"advisory"`
	Evaluations     int64                  `json:"evaluations"`
	Incidents       int64                  `json:"incidents"`
	Skipped         int64                  `json:"skipped"`
	Errors          int64                  `json:"errors"`
	LastTriggeredAt *time.Time             `json:"last_triggered_at,omitempty"`
}
