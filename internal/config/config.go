// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Profiles  ProfilesConfig  `koanf:"profiles"`
	Detection DetectionConfig `koanf:"detection"`
	Output    OutputConfig    `koanf:"output"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// Telemetry source kinds.
const (
	SourceFS = "fs"
	SourceS3 = "s3"
)

// TelemetryConfig locates daily snapshot documents.
type TelemetryConfig struct {
	// Source selects the backend: fs or s3.
	Source string `koanf:"source" validate:"oneof=fs s3"`

	// BasePath is the snapshot root directory for the fs source.
	BasePath string `koanf:"base_path" validate:"required_if=Source fs"`

	// Layout names the document for a date; "{date}" becomes YYYY-MM-DD.
	Layout string `koanf:"layout" validate:"required,layout"`

	S3Bucket string `koanf:"s3_bucket" validate:"required_if=Source s3"`
	S3Prefix string `koanf:"s3_prefix"`
	S3Region string `koanf:"s3_region"`

	// S3Endpoint points at an S3-compatible store (MinIO, Ceph) and
	// switches to path-style addressing.
	S3Endpoint string `koanf:"s3_endpoint" validate:"omitempty,url"`
}

// ProfilesConfig locates the source profile collection.
type ProfilesConfig struct {
	Path string `koanf:"path" validate:"required"`

	// Required makes a missing collection a run failure instead of an
	// empty profile set.
	Required bool `koanf:"required"`
}

// DetectionConfig selects and tunes detectors.
type DetectionConfig struct {
	// Enabled lists the incident types to run. Empty means all.
	Enabled []string `koanf:"enabled"`

	// Disabled lists incident types to skip; applied after Enabled.
	Disabled []string `koanf:"disabled"`

	// Rules holds per-detector settings keyed by incident type, passed to
	// the detector's Configure as JSON.
	Rules map[string]map[string]interface{} `koanf:"rules"`

	// ClassifyAllSources emits an explicit OK entry for sources without
	// incidents.
	ClassifyAllSources bool `koanf:"classify_all_sources"`
}

// OutputConfig controls where run results are written.
type OutputConfig struct {
	Dir    string `koanf:"dir" validate:"required"`
	Indent bool   `koanf:"indent"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	Listen string `koanf:"listen" validate:"required,hostname_port"`

	// ScheduleEnabled runs the pipeline daily for the previous UTC day.
	ScheduleEnabled bool `koanf:"schedule_enabled"`

	// ScheduleHour is the UTC hour of the daily run.
	ScheduleHour int `koanf:"schedule_hour" validate:"gte=0,lte=23"`

	// RunTimeout bounds one pipeline run, scheduled or on demand.
	RunTimeout time.Duration `koanf:"run_timeout" validate:"gt=0"`

	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	// Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	// RunRateLimit caps on-demand runs per client IP per minute. Zero
	// disables the limit.
	RunRateLimit int `koanf:"run_rate_limit" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}
