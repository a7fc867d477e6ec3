// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/detection"
	"github.com/tomtom215/uploadwatch/internal/severity"
)

// Result file name suffixes, prefixed by the operation date.
const (
	IncidentsSuffix      = "_incidents_report.json"
	ClassificationSuffix = "_classification.json"
)

// ResultFiles holds the paths written by one run.
type ResultFiles struct {
	Incidents      string `json:"incidents"`
	Classification string `json:"classification"`
}

// ResultWriter writes run results as JSON files.
type ResultWriter struct {
	dir    string
	indent bool
}

// NewResultWriter creates a writer rooted at dir.
func NewResultWriter(dir string, indent bool) *ResultWriter {
	return &ResultWriter{dir: dir, indent: indent}
}

// Write stores the incident list and classification for date.
func (w *ResultWriter) Write(date string, incidents []detection.Incident, c severity.Classification) (ResultFiles, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return ResultFiles{}, fmt.Errorf("create output dir: %w", err)
	}
	if incidents == nil {
		incidents = []detection.Incident{}
	}
	if c == nil {
		c = severity.Classification{}
	}

	files := ResultFiles{
		Incidents:      filepath.Join(w.dir, date+IncidentsSuffix),
		Classification: filepath.Join(w.dir, date+ClassificationSuffix),
	}
	if err := w.writeJSON(files.Incidents, incidents); err != nil {
		return ResultFiles{}, err
	}
	if err := w.writeJSON(files.Classification, c); err != nil {
		return ResultFiles{}, err
	}
	return files, nil
}

// WriteJSON stores v as name inside the output directory and returns the path.
func (w *ResultWriter) WriteJSON(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := w.writeJSON(path, v); err != nil {
		return "", err
	}
	return path, nil
}

// Encode renders v the way result files are written.
func (w *ResultWriter) Encode(v interface{}) ([]byte, error) {
	return encode(v, w.indent)
}

func encode(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeJSON replaces path atomically through a temp file in the same dir.
func (w *ResultWriter) writeJSON(path string, v interface{}) error {
	data, err := encode(v, w.indent)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
