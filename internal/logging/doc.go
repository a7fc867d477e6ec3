// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package logging provides centralized zerolog-based structured logging for Uploadwatch.
//
// JSON output is the default (machine-parseable, suitable for the daily batch
// job's log shipping); console output is available for local runs.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("source_id", id).Int("files", n).Msg("snapshot loaded")
//	logging.Error().Err(err).Msg("profile store unavailable")
//
// # Run Correlation
//
// Every detection run carries a short correlation ID and its operation date on
// the context. Use Ctx to pick both up:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithOperationDate(ctx, "2025-09-08")
//	logging.Ctx(ctx).Info().Msg("detectors finished")
//
// # slog Adapter
//
// NewSlogLogger returns an *slog.Logger that writes through zerolog. The
// supervisor tree hands it to sutureslog so restarts land in the same stream.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never emitted.
package logging
