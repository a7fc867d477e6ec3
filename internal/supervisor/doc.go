// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package supervisor runs serve mode under a suture supervisor tree.

	uploadwatch (root)
	├── pipeline-layer
	│   └── daily-scheduler
	└── api-layer
	    └── http-server

A crashing service is restarted with backoff without taking down its
sibling layer: a failing scheduled run never stops the HTTP API, and an
HTTP listener failure never stops the daily schedule.

Supervisor events are logged through sutureslog into the zerolog stream:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewDailyScheduler(runner, services.SchedulerConfig{Hour: 6}))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
