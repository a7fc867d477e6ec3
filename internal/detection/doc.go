// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package detection runs a bank of rule-based detectors over one day of file
// upload telemetry and produces incidents per data source.
//
// Detection Architecture:
//
//	Snapshot + Profiles -> Engine -> goroutine per source -> Detectors -> []Incident
//
// Each detector is independent and pure: it reads the source's records for
// the operation date, optionally the source's historical profile, and returns
// at most one aggregated Incident. Detectors declare statically, through a
// Descriptor, which inputs they need so the engine can skip them (and count
// the skip) instead of failing when a profile is absent.
//
// Supported Detectors:
//   - DuplicateOrFailedFile: files flagged as duplicated or with status "stopped"
//   - UnexpectedEmptyFile: more zero-row files than the weekday history allows
//   - MissingFiles: fewer files than the weekday mean
//   - UnexpectedVolumeVariation: files whose row count is outside two standard deviations
//   - LateUpload (advisory): files uploaded well after the expected window
//   - StaleCoverageUpload (advisory): files whose embedded coverage date is old
//
// Missing or malformed profile data never produces an error; the affected
// detector simply cannot evaluate and returns no incident.
package detection
