// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/uploadwatch/internal/api"
	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
	"github.com/tomtom215/uploadwatch/internal/supervisor"
	"github.com/tomtom215/uploadwatch/internal/supervisor/services"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var runOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily schedule and the HTTP API under a supervisor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, err := pipeline.New(ctx, cfg)
			if err != nil {
				return err
			}

			tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
			if err != nil {
				return err
			}

			api.Version = version
			handler := api.NewHandler(runner, runner.Engine(), cfg.Server.RunTimeout)
			server := &http.Server{
				Addr:              cfg.Server.Listen,
				Handler:           api.NewRouter(handler, api.RouterConfigFromServer(&cfg.Server)),
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
			}
			tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

			if cfg.Server.ScheduleEnabled {
				scheduler := services.NewDailyScheduler(runner, services.SchedulerConfig{
					Hour:       cfg.Server.ScheduleHour,
					RunTimeout: cfg.Server.RunTimeout,
					RunOnStart: runOnStart,
				})
				scheduler.OnReport(handler.RecordRun)
				tree.AddPipelineService(scheduler)
			}

			logging.Info().
				Str("listen", cfg.Server.Listen).
				Bool("schedule", cfg.Server.ScheduleEnabled).
				Int("schedule_hour_utc", cfg.Server.ScheduleHour).
				Str("version", version).
				Msg("starting uploadwatch")

			err = <-tree.ServeBackground(ctx)

			if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
				for _, svc := range unstopped {
					logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
				}
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logging.Info().Msg("uploadwatch stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "evaluate the previous day immediately on startup")
	return cmd
}
