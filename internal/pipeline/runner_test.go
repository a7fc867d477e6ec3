// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/config"
	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/severity"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

const mondaySnapshot = `{
  "101": [
    {"filename": "ventas_20250908.csv", "uploaded_at": "2025-09-08T11:10:00", "rows": 480, "file_size": 2048, "status": "processed", "is_duplicated": false}
  ],
  "202": [
    {"filename": "stock.csv", "uploaded_at": "2025-09-08T06:00:00", "rows": 0, "file_size": 0, "status": "stopped", "is_duplicated": true}
  ]
}`

const profilesDoc = `[
  {
    "source_id": "101",
    "general_volume_stats": {"mean_rows": 500, "median_rows": 490, "stdev_rows": 50},
    "file_processing_daily_stats": [{"day": "Mon", "mean_files": 3, "median_files": 3}],
    "upload_schedule_daily_stats": [{"day": "Mon", "upload_window_expected_utc": "11:00:00–11:30:00 UTC"}],
    "day_of_week_row_stats": [{"day": "Mon", "rows_mean": 500, "rows_median": 490, "empty_files_mean": 0}]
  },
  {
    "source_id": "303",
    "file_processing_daily_stats": [{"day": "Tue", "mean_files": 1, "median_files": 1}]
  }
]`

var monday = time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)

type fixture struct {
	dataDir      string
	profilesPath string
	outDir       string
}

func newFixture(t *testing.T, withProfiles bool) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		dataDir:      filepath.Join(root, "data"),
		profilesPath: filepath.Join(root, "cv_data.json"),
		outDir:       filepath.Join(root, "outputs"),
	}
	doc := filepath.Join(f.dataDir, "2025-09-08_20_00_UTC", "files.json")
	if err := os.MkdirAll(filepath.Dir(doc), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(doc, []byte(mondaySnapshot), 0o600); err != nil {
		t.Fatal(err)
	}
	if withProfiles {
		if err := os.WriteFile(f.profilesPath, []byte(profilesDoc), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func (f fixture) runner(opts Options) *Runner {
	opts.ProfilesPath = f.profilesPath
	opts.OutputDir = f.outDir
	loader := telemetry.NewLoader(telemetry.NewFSSource(f.dataDir), telemetry.DefaultLayout)
	return NewRunner(loader, detection.NewDefaultEngine(), opts)
}

func TestRunner_Run(t *testing.T) {
	f := newFixture(t, true)
	r := f.runner(Options{ClassifyAllSources: true, Indent: true})

	report, err := r.Run(context.Background(), monday.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Date != "2025-09-08" {
		t.Errorf("Date = %q", report.Date)
	}
	if report.RunID == "" {
		t.Error("RunID should be set")
	}
	if report.Sources != 3 || report.Records != 2 {
		t.Errorf("Sources/Records = %d/%d, want 3/2", report.Sources, report.Records)
	}

	want := []struct {
		source string
		typ    detection.IncidentType
	}{
		{"101", detection.IncidentMissingFiles},
		{"202", detection.IncidentDuplicateOrFailed},
		{"202", detection.IncidentUnexpectedEmpty},
	}
	if len(report.Incidents) != len(want) {
		t.Fatalf("got %d incidents, want %d: %+v", len(report.Incidents), len(want), report.Incidents)
	}
	for i, w := range want {
		if report.Incidents[i].SourceID != w.source || report.Incidents[i].Type != w.typ {
			t.Errorf("incident %d = %s/%s, want %s/%s", i,
				report.Incidents[i].SourceID, report.Incidents[i].Type, w.source, w.typ)
		}
	}
	if report.Incidents[0].TotalIncidents != 2 {
		t.Errorf("missing files shortfall = %d, want 2", report.Incidents[0].TotalIncidents)
	}

	if got := report.Classification["303"].Severity; got != severity.OK {
		t.Errorf("303 severity = %v, want OK", got)
	}
	if got := report.Classification["202"].Severity; got != severity.Warning {
		t.Errorf("202 severity = %v, want WARNING", got)
	}
	if report.Summary.Counts["WARNING"] != 2 || report.Summary.Counts["OK"] != 1 {
		t.Errorf("Summary.Counts = %v", report.Summary.Counts)
	}

	var incidents []detection.Incident
	readJSON(t, report.Files.Incidents, &incidents)
	if len(incidents) != 3 {
		t.Errorf("incidents file has %d entries, want 3", len(incidents))
	}
	if filepath.Base(report.Files.Incidents) != "2025-09-08_incidents_report.json" {
		t.Errorf("incidents file = %s", report.Files.Incidents)
	}

	var classification severity.Classification
	readJSON(t, report.Files.Classification, &classification)
	if len(classification) != 3 {
		t.Errorf("classification file has %d sources, want 3", len(classification))
	}
}

func TestRunner_Idempotent(t *testing.T) {
	f := newFixture(t, true)
	r := f.runner(Options{ClassifyAllSources: true, Indent: true})

	first, err := r.Run(context.Background(), monday)
	if err != nil {
		t.Fatal(err)
	}
	a := readBytes(t, first.Files.Incidents)
	b := readBytes(t, first.Files.Classification)

	second, err := r.Run(context.Background(), monday)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, readBytes(t, second.Files.Incidents)) {
		t.Error("incident report differs between identical runs")
	}
	if !bytes.Equal(b, readBytes(t, second.Files.Classification)) {
		t.Error("classification differs between identical runs")
	}
}

func TestRunner_AbsenceClassification(t *testing.T) {
	f := newFixture(t, true)
	r := f.runner(Options{ClassifyAllSources: false})

	report, err := r.Run(context.Background(), monday)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Classification["303"]; ok {
		t.Error("source without incidents should be absent")
	}
	if len(report.Classification) != 2 {
		t.Errorf("classification has %d sources, want 2", len(report.Classification))
	}
}

func TestRunner_MissingProfiles(t *testing.T) {
	t.Run("degrades", func(t *testing.T) {
		f := newFixture(t, false)
		report, err := f.runner(Options{}).Run(context.Background(), monday)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		// Only 202 misbehaves without profiles: duplicate and empty.
		if len(report.Incidents) != 2 {
			t.Errorf("got %d incidents, want 2: %+v", len(report.Incidents), report.Incidents)
		}
	})

	t.Run("required", func(t *testing.T) {
		f := newFixture(t, false)
		_, err := f.runner(Options{ProfilesRequired: true}).Run(context.Background(), monday)
		if !errors.Is(err, profile.ErrNoProfiles) || !errors.Is(err, ErrProfilesUnavailable) {
			t.Errorf("err = %v, want ErrNoProfiles and ErrProfilesUnavailable", err)
		}
	})

	t.Run("required but malformed", func(t *testing.T) {
		f := newFixture(t, false)
		if err := os.WriteFile(f.profilesPath, []byte(`{"not": "an array"}`), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := f.runner(Options{ProfilesRequired: true}).Run(context.Background(), monday)
		if !errors.Is(err, ErrProfilesUnavailable) {
			t.Errorf("err = %v, want ErrProfilesUnavailable", err)
		}
	})
}

func TestRunner_NoSources(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.runner(Options{}).Run(context.Background(), monday.AddDate(0, 0, 1))
	if !errors.Is(err, detection.ErrNoSources) {
		t.Fatalf("err = %v, want ErrNoSources", err)
	}
	if _, statErr := os.Stat(filepath.Join(f.outDir, "2025-09-09"+IncidentsSuffix)); !os.IsNotExist(statErr) {
		t.Error("no result files should be written when there is nothing to evaluate")
	}
}

func TestRunner_EmptyIncidentList(t *testing.T) {
	f := newFixture(t, false)
	r := f.runner(Options{ClassifyAllSources: true})
	r.loadProfiles = func(string) (*profile.Set, error) {
		return profile.NewSet(&profile.SourceProfile{SourceID: "quiet"}), nil
	}

	report, err := r.Run(context.Background(), monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := string(bytes.TrimSpace(readBytes(t, report.Files.Incidents))); got != "[]" {
		t.Errorf("incidents file = %s, want []", got)
	}
	if report.Classification["quiet"].Severity != severity.OK {
		t.Error("quiet source should be OK")
	}
}

func TestConfigureEngine(t *testing.T) {
	engine := detection.NewDefaultEngine()
	err := ConfigureEngine(engine, config.DetectionConfig{
		Disabled: []string{"LateUpload"},
		Rules: map[string]map[string]interface{}{
			"UnexpectedVolumeVariation": {"sigma": 3.0, "min_rows_mean": 10},
		},
	})
	if err != nil {
		t.Fatalf("ConfigureEngine: %v", err)
	}

	late, _ := engine.GetDetector(detection.IncidentLateUpload)
	if late.Enabled() {
		t.Error("LateUpload should be disabled")
	}
	missing, _ := engine.GetDetector(detection.IncidentMissingFiles)
	if !missing.Enabled() {
		t.Error("MissingFiles should stay enabled")
	}

	d, _ := engine.GetDetector(detection.IncidentVolumeVariation)
	cfg := d.(*detection.VolumeVariationDetector).Config()
	if cfg.Sigma != 3.0 || cfg.MinRowsMean != 10 {
		t.Errorf("volume config = %+v", cfg)
	}

	bad := ConfigureEngine(engine, config.DetectionConfig{
		Rules: map[string]map[string]interface{}{"MissingFiles": {"tolerance": -1}},
	})
	if bad == nil {
		t.Error("expected error for negative tolerance")
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(context.Background(), config.TelemetryConfig{Source: config.SourceFS, BasePath: "data"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*telemetry.FSSource); !ok {
		t.Errorf("got %T, want *telemetry.FSSource", src)
	}
	if _, err := NewSource(context.Background(), config.TelemetryConfig{Source: "ftp"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(readBytes(t, path), v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
