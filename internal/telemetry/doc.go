// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package telemetry loads daily file-upload snapshots.
//
// A snapshot document is a JSON object keyed by source id, each value being
// the list of files that source uploaded:
//
//	{"999": [{"filename": "sales_20250908.csv", "uploaded_at": "2025-09-08T10:12:00", "rows": 512, ...}]}
//
// The Loader flattens that document into FileRecord values with the source id
// attached and keeps only the records uploaded on the operation date. A
// missing or malformed document never fails the caller: it produces an empty
// Snapshot and an error log line.
//
// Documents are read through a Source. FSSource reads the on-disk layout
// (<date>_20_00_UTC/files.json), S3Source reads the same keys from a bucket.
// Either may hold gzip (.gz) or zstd (.zst) compressed copies.
//
// Summarize builds the per-day, per-source historical aggregates used to
// derive source profiles offline.
package telemetry
