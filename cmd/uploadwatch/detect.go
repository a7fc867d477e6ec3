// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/pipeline"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

func newDetectCmd(opts *cliOptions) *cobra.Command {
	var (
		date        string
		outputDir   string
		printReport bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Evaluate one operation date and write the result files",
		Example: `  uploadwatch detect --date 2025-09-08
  uploadwatch detect --date 2025-09-08 --print --output-dir /tmp/out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := telemetry.ParseOperationDate(date)
			if err != nil {
				return err
			}
			cfg := opts.cfg
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}

			ctx := logging.ContextWithNewCorrelationID(cmd.Context())
			runner, err := pipeline.New(ctx, cfg)
			if err != nil {
				return err
			}

			report, err := runner.Run(ctx, day)
			if errors.Is(err, detection.ErrNoSources) {
				logging.Ctx(ctx).Warn().Str("date", date).Msg("no telemetry or profiles for date, nothing written")
				return nil
			}
			if err != nil {
				return err
			}

			if printReport {
				data, err := pipeline.NewResultWriter(cfg.Output.Dir, true).Encode(report)
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "operation date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "override output.dir")
	cmd.Flags().BoolVar(&printReport, "print", false, "also print the run report to stdout")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
