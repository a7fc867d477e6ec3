// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package services adapts serve-mode components to suture.Service.

  - HTTPServerService turns http.Server's blocking ListenAndServe into a
    context-aware Serve with graceful Shutdown.
  - DailyScheduler runs the detection pipeline once a day, at a fixed UTC
    hour, for the previous UTC calendar day.

Both implement fmt.Stringer so supervisor events name them.
*/
package services
