// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/config"
	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// NewSource opens the configured telemetry backend.
func NewSource(ctx context.Context, cfg config.TelemetryConfig) (telemetry.Source, error) {
	switch cfg.Source {
	case config.SourceS3:
		src, err := telemetry.NewS3Source(ctx, telemetry.S3Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 telemetry source: %w", err)
		}
		return src, nil
	case config.SourceFS, "":
		return telemetry.NewFSSource(cfg.BasePath), nil
	default:
		return nil, fmt.Errorf("unknown telemetry source %q", cfg.Source)
	}
}

// ConfigureEngine applies detector selection and per-detector rules.
func ConfigureEngine(engine *detection.Engine, cfg config.DetectionConfig) error {
	enabled := make(map[detection.IncidentType]bool)
	for _, t := range cfg.EnabledTypes() {
		enabled[t] = true
	}
	for _, d := range engine.Detectors() {
		if err := engine.SetDetectorEnabled(d.Type(), enabled[d.Type()]); err != nil {
			return err
		}
	}

	for name, rule := range cfg.Rules {
		t, ok := detection.ParseIncidentType(name)
		if !ok {
			return fmt.Errorf("unknown incident type %q", name)
		}
		raw, err := json.Marshal(rule)
		if err != nil {
			return fmt.Errorf("encode %s rules: %w", name, err)
		}
		if err := engine.ConfigureDetector(t, raw); err != nil {
			return err
		}
	}
	return nil
}

// New builds a Runner from the application config.
func New(ctx context.Context, cfg *config.Config) (*Runner, error) {
	src, err := NewSource(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	engine := detection.NewDefaultEngine()
	if err := ConfigureEngine(engine, cfg.Detection); err != nil {
		return nil, err
	}
	loader := telemetry.NewLoader(src, cfg.Telemetry.Layout)
	return NewRunner(loader, engine, OptionsFromConfig(cfg)), nil
}
