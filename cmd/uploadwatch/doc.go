// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Command uploadwatch detects incidents in daily file-upload telemetry.

Each data source uploads files every day. uploadwatch compares one day of
uploads per source against the source's historical profile, reports
incidents (duplicated or failed files, unexpected empty files, missing
files, row-volume outliers, late uploads, stale coverage) and classifies
every source as OK, WARNING or URGENT.

# Commands

	uploadwatch detect --date 2025-09-08   evaluate one day and write results
	uploadwatch serve                      daily schedule plus HTTP API
	uploadwatch summary                    per-day, per-source upload statistics

# Configuration

Configuration is layered: built-in defaults, then a YAML file (--config,
CONFIG_PATH or ./uploadwatch.yaml), then environment variables. See
package internal/config for every key.

	TELEMETRY_BASE_PATH=/srv/telemetry PROFILES_PATH=/srv/cv_data.json \
	    uploadwatch detect --date 2025-09-08

# Results

detect and every scheduled or on-demand run write, into output.dir:

	<date>_incidents_report.json
	<date>_classification.json

# Signals

serve shuts down gracefully on SIGINT and SIGTERM.
*/
package main
