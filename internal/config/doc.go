// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package config loads uploadwatch configuration.

# Configuration Sources

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: the --config flag, else CONFIG_PATH, else the first of
    DefaultConfigPaths that exists
 3. Mapped environment variables

Unmapped environment variables are ignored.

# Sections

  - telemetry: where daily snapshots live (local directory or S3) and how
    snapshot documents are named
  - profiles: the source profile collection
  - detection: enabled detectors and per-detector thresholds
  - output: where run results are written
  - server: HTTP listen address and the daily schedule for serve mode
  - logging: zerolog level and format

# Environment Variables

Telemetry:
  - TELEMETRY_SOURCE: fs or s3 (default: fs)
  - TELEMETRY_BASE_PATH: snapshot root for fs (default: data)
  - TELEMETRY_LAYOUT: document name pattern (default: {date}_20_00_UTC/files.json)
  - TELEMETRY_S3_BUCKET, TELEMETRY_S3_PREFIX, TELEMETRY_S3_REGION (AWS_REGION also accepted)
  - TELEMETRY_S3_ENDPOINT: S3-compatible endpoint URL, path-style addressing

Profiles:
  - PROFILES_PATH: profile collection (default: outputs/cv_data.json)
  - PROFILES_REQUIRED: fail runs when the collection is missing (default: false)

Detection:
  - DETECTION_ENABLED: comma-separated incident types to run (default: all)
  - DETECTION_DISABLED: comma-separated incident types to skip
  - DETECTION_CLASSIFY_ALL_SOURCES: emit explicit OK entries (default: true)

Output:
  - OUTPUT_DIR: result directory (default: outputs)
  - OUTPUT_INDENT: pretty-print JSON results (default: true)

Server:
  - HTTP_LISTEN: listen address (default: 127.0.0.1:8089)
  - SCHEDULE_ENABLED, SCHEDULE_HOUR: daily run of the previous UTC day (default: true, 6)
  - RUN_TIMEOUT, READ_TIMEOUT, WRITE_TIMEOUT, SHUTDOWN_TIMEOUT: durations such as 5m or 10s
  - HTTP_CORS_ORIGINS: comma-separated browser origins allowed to call the API
  - RUN_RATE_LIMIT: on-demand runs per client IP per minute (default: 10, 0 disables)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example

	telemetry:
	  source: s3
	  s3_bucket: upload-telemetry
	  s3_prefix: exports
	detection:
	  disabled: [LateUpload]
	  rules:
	    UnexpectedVolumeVariation:
	      sigma: 2.5
*/
package config
