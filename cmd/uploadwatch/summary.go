// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

func newSummaryCmd(opts *cliOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate every stored snapshot into per-day, per-source statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			ctx := logging.ContextWithNewCorrelationID(cmd.Context())

			src, err := pipeline.NewSource(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			records, err := telemetry.NewLoader(src, cfg.Telemetry.Layout).LoadAll(ctx)
			if err != nil {
				return err
			}
			summaries := telemetry.Summarize(records)

			path, err := pipeline.NewResultWriter(cfg.Output.Dir, cfg.Output.Indent).WriteJSON(name, summaries)
			if err != nil {
				return err
			}
			logging.Ctx(ctx).Info().
				Int("records", len(records)).
				Int("rows", len(summaries)).
				Str("path", path).
				Msg("daily summary written")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "daily_summary.json", "file name inside output.dir")
	return cmd
}
