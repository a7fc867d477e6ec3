// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/uploadwatch/internal/config"
	"github.com/tomtom215/uploadwatch/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliOptions are flags shared by every subcommand.
type cliOptions struct {
	configPath string
	logLevel   string
	verbose    bool

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "uploadwatch",
		Short:         "Detect incidents in daily file-upload telemetry",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: CONFIG_PATH or ./uploadwatch.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDetectCmd(opts),
		newServeCmd(opts),
		newSummaryCmd(opts),
	)
	return root
}

// setup loads configuration and initializes logging.
func (o *cliOptions) setup() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Debug().
		Str("telemetry_source", cfg.Telemetry.Source).
		Str("profiles", cfg.Profiles.Path).
		Str("output_dir", cfg.Output.Dir).
		Msg("configuration loaded")

	o.cfg = cfg
	return nil
}
