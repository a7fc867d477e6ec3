// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package pipeline runs one day of incident detection end to end.

A run loads the source profiles, loads the day's telemetry snapshot, runs
the detection engine, classifies sources by severity and writes two result
files into the output directory:

	<date>_incidents_report.json   flat incident list ([] when empty)
	<date>_classification.json     per-source classification

Runs are serialized per Runner; the CLI, the daily scheduler and the HTTP
API share one Runner in serve mode.

Missing or malformed input degrades to "no data" with a logged warning.
The only run-aborting outcomes are detection.ErrNoSources, a missing
profile collection when profiles are required, and write failures.
*/
package pipeline
