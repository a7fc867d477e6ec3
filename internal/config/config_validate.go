// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package config

import (
	"fmt"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/validation"
)

// Validate checks struct tags first, then rules that span fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	return c.validateDetection()
}

// validateDetection rejects unknown incident types and an empty selection.
func (c *Config) validateDetection() error {
	for _, name := range c.Detection.Enabled {
		if _, ok := detection.ParseIncidentType(name); !ok {
			return fmt.Errorf("detection.enabled: unknown incident type %q", name)
		}
	}
	for _, name := range c.Detection.Disabled {
		if _, ok := detection.ParseIncidentType(name); !ok {
			return fmt.Errorf("detection.disabled: unknown incident type %q", name)
		}
	}
	for name := range c.Detection.Rules {
		if _, ok := detection.ParseIncidentType(name); !ok {
			return fmt.Errorf("detection.rules: unknown incident type %q", name)
		}
	}
	if len(c.Detection.EnabledTypes()) == 0 {
		return fmt.Errorf("detection: every detector is disabled")
	}
	return nil
}

// EnabledTypes resolves Enabled and Disabled into the incident types to run,
// in registration order.
func (d *DetectionConfig) EnabledTypes() []detection.IncidentType {
	enabled := make(map[string]bool)
	for _, name := range d.Enabled {
		enabled[name] = true
	}
	disabled := make(map[string]bool)
	for _, name := range d.Disabled {
		disabled[name] = true
	}

	out := make([]detection.IncidentType, 0, len(detection.AllIncidentTypes))
	for _, t := range detection.AllIncidentTypes {
		if len(enabled) > 0 && !enabled[string(t)] {
			continue
		}
		if disabled[string(t)] {
			continue
		}
		out = append(out, t)
	}
	return out
}
