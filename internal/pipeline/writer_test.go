// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/severity"
)

func TestResultWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "outputs")
	w := NewResultWriter(dir, false)

	files, err := w.Write("2025-09-08", nil, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := strings.TrimSpace(string(readBytes(t, files.Incidents))); got != "[]" {
		t.Errorf("incidents = %s, want []", got)
	}
	if got := strings.TrimSpace(string(readBytes(t, files.Classification))); got != "{}" {
		t.Errorf("classification = %s, want {}", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestResultWriter_Encoding(t *testing.T) {
	incidents := []detection.Incident{{
		SourceID:       "101",
		Type:           detection.IncidentMissingFiles,
		Details:        "Expected <3> files & received 1",
		TotalIncidents: 2,
		FilesToReview:  []string{"ventas_20250908.csv"},
	}}
	c := severity.Classify(incidents)

	plain, err := NewResultWriter(t.TempDir(), false).Encode(c)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plain), "<3> files & received") {
		t.Errorf("HTML characters should not be escaped: %s", plain)
	}
	if !strings.Contains(string(plain), `"status_emoji":"🟡"`) {
		t.Errorf("emoji should be written verbatim: %s", plain)
	}

	indented, err := NewResultWriter(t.TempDir(), true).Encode(incidents)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(indented), "\n  {") {
		t.Errorf("expected two-space indentation: %s", indented)
	}
	for _, key := range []string{`"source_id"`, `"incident_type"`, `"incident_details"`, `"total_incidentes"`, `"files_to_review"`} {
		if !strings.Contains(string(indented), key) {
			t.Errorf("missing key %s", key)
		}
	}
}

func TestResultWriter_WriteJSON(t *testing.T) {
	w := NewResultWriter(t.TempDir(), true)
	path, err := w.WriteJSON("daily_summary.json", []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "daily_summary.json" {
		t.Errorf("path = %s", path)
	}
}
