// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"uploadwatch.yaml",
	"uploadwatch.yml",
	"config.yaml",
	"/etc/uploadwatch/config.yaml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before file and env.
func defaultConfig() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			Source:   SourceFS,
			BasePath: "data",
			Layout:   telemetry.DefaultLayout,
		},
		Profiles: ProfilesConfig{
			Path:     "outputs/cv_data.json",
			Required: false,
		},
		Detection: DetectionConfig{
			ClassifyAllSources: true,
		},
		Output: OutputConfig{
			Dir:    "outputs",
			Indent: true,
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8089",
			ScheduleEnabled: true,
			ScheduleHour:    6,
			RunTimeout:      5 * time.Minute,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			RunRateLimit:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// sliceConfigPaths are keys that env vars supply as comma-separated lists.
var sliceConfigPaths = []string{
	"detection.enabled",
	"detection.disabled",
	"server.cors_origins",
}

// envMappings maps environment variable names (lower-cased) to koanf keys.
var envMappings = map[string]string{
	"telemetry_source":      "telemetry.source",
	"telemetry_base_path":   "telemetry.base_path",
	"telemetry_layout":      "telemetry.layout",
	"telemetry_s3_bucket":   "telemetry.s3_bucket",
	"telemetry_s3_prefix":   "telemetry.s3_prefix",
	"telemetry_s3_region":   "telemetry.s3_region",
	"telemetry_s3_endpoint": "telemetry.s3_endpoint",

	"profiles_path":     "profiles.path",
	"profiles_required": "profiles.required",

	"detection_enabled":              "detection.enabled",
	"detection_disabled":             "detection.disabled",
	"detection_classify_all_sources": "detection.classify_all_sources",

	"output_dir":    "output.dir",
	"output_indent": "output.indent",

	"http_listen":       "server.listen",
	"schedule_enabled":  "server.schedule_enabled",
	"schedule_hour":     "server.schedule_hour",
	"run_timeout":       "server.run_timeout",
	"read_timeout":      "server.read_timeout",
	"write_timeout":     "server.write_timeout",
	"shutdown_timeout":  "server.shutdown_timeout",
	"http_cors_origins": "server.cors_origins",
	"run_rate_limit":    "server.run_rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it. A non-empty path must exist; an empty path
// falls back to CONFIG_PATH and DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// AWS_REGION is honoured as a fallback for the S3 region only.
	if region := os.Getenv("AWS_REGION"); region != "" && k.String("telemetry.s3_region") == "" {
		if err := k.Set("telemetry.s3_region", region); err != nil {
			return nil, fmt.Errorf("failed to set telemetry.s3_region: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to a koanf key.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
