// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

const snapshot = `{
  "101": [
    {"filename": "ventas_20250908.csv", "uploaded_at": "2025-09-08T11:10:00", "rows": 480, "file_size": 2048, "status": "processed", "is_duplicated": false},
    {"filename": "ventas_b.csv", "uploaded_at": "2025-09-08T11:12:00", "rows": 0, "file_size": 0, "status": "stopped", "is_duplicated": false}
  ]
}`

const profiles = `[
  {
    "source_id": "101",
    "file_processing_daily_stats": [{"day": "Mon", "mean_files": 2, "median_files": 2}]
  }
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// setupWorkspace writes telemetry, profiles and a config file and returns
// the config path and output directory.
func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := t.TempDir()
	data := filepath.Join(root, "data")
	out := filepath.Join(root, "out")

	writeFile(t, filepath.Join(data, "2025-09-08_20_00_UTC", "files.json"), snapshot)
	writeFile(t, filepath.Join(root, "cv_data.json"), profiles)

	cfgPath := filepath.Join(root, "uploadwatch.yaml")
	writeFile(t, cfgPath, strings.Join([]string{
		"telemetry:",
		"  base_path: " + data,
		"profiles:",
		"  path: " + filepath.Join(root, "cv_data.json"),
		"output:",
		"  dir: " + out,
		"logging:",
		"  level: error",
	}, "\n"))
	return cfgPath, out
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	_, err := executeOutput(t, args...)
	return err
}

// executeOutput runs the CLI and returns what it wrote to stdout.
func executeOutput(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out strings.Builder
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&strings.Builder{})
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"detect": false, "serve": false, "summary": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag missing")
	}
}

func TestDetect_WritesResults(t *testing.T) {
	cfgPath, out := setupWorkspace(t)

	if err := execute(t, "--config", cfgPath, "detect", "--date", "2025-09-08"); err != nil {
		t.Fatalf("detect: %v", err)
	}

	for _, name := range []string{"2025-09-08_incidents_report.json", "2025-09-08_classification.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(out, "2025-09-08_classification.json"))
	if err != nil {
		t.Fatal(err)
	}
	var classification map[string]map[string]interface{}
	if err := json.Unmarshal(raw, &classification); err != nil {
		t.Fatal(err)
	}
	if _, ok := classification["101"]; !ok {
		t.Errorf("source 101 missing from classification: %s", raw)
	}
}

func TestDetect_PrintReport(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := executeOutput(t, "--config", cfgPath, "detect", "--date", "2025-09-08", "--print")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var report struct {
		Date           string                            `json:"date"`
		Classification map[string]map[string]interface{} `json:"classification"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("stdout is not a JSON report: %v\n%s", err, out)
	}
	if report.Date != "2025-09-08" {
		t.Errorf("report date = %q, want 2025-09-08", report.Date)
	}
	if _, ok := report.Classification["101"]; !ok {
		t.Errorf("source 101 missing from printed classification: %s", out)
	}

	quiet, err := executeOutput(t, "--config", cfgPath, "detect", "--date", "2025-09-08")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if quiet != "" {
		t.Errorf("stdout without --print = %q, want empty", quiet)
	}
}

func TestDetect_OutputDirOverride(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)
	override := t.TempDir()

	if err := execute(t, "--config", cfgPath, "detect", "--date", "2025-09-08", "--output-dir", override); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if _, err := os.Stat(filepath.Join(override, "2025-09-08_incidents_report.json")); err != nil {
		t.Errorf("override dir not used: %v", err)
	}
}

func TestDetect_NoSourcesIsNotAnError(t *testing.T) {
	cfgPath, out := setupWorkspace(t)

	// Profiles name source 101 on every date, so remove them.
	if err := os.Remove(filepath.Join(filepath.Dir(cfgPath), "cv_data.json")); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "--config", cfgPath, "detect", "--date", "2025-09-09"); err != nil {
		t.Fatalf("detect: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "2025-09-09_incidents_report.json")); !os.IsNotExist(err) {
		t.Errorf("no files expected for a date without sources, stat err = %v", err)
	}
}

func TestDetect_Errors(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing date", []string{"--config", cfgPath, "detect"}},
		{"bad date", []string{"--config", cfgPath, "detect", "--date", "08/09/2025"}},
		{"missing config file", []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "detect", "--date", "2025-09-08"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSummary_WritesDailySummary(t *testing.T) {
	cfgPath, out := setupWorkspace(t)

	if err := execute(t, "--config", cfgPath, "summary"); err != nil {
		t.Fatalf("summary: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(out, "daily_summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d summary rows, want 1: %s", len(rows), raw)
	}
}
