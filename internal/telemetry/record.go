// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package telemetry

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Status values with meaning to the detectors. Any other string is accepted.
const (
	StatusProcessed = "processed"
	StatusStopped   = "stopped"
)

// FileRecord is one uploaded file observed in a daily snapshot.
// Records are immutable for the duration of a detection run.
type FileRecord struct {
	SourceID string `json:"source_id"`
	Filename string `json:"filename"`

	// UploadedAt is UTC-naive: offsets present in the document are converted
	// to UTC and the location is always time.UTC.
	UploadedAt time.Time `json:"uploaded_at"`

	// Rows is the row count. RowsKnown is false when the document carried
	// null or no value; such records are never treated as empty.
	Rows      int64 `json:"rows"`
	RowsKnown bool  `json:"-"`

	FileSize     *int64 `json:"file_size"`
	Status       string `json:"status"`
	IsDuplicated bool   `json:"is_duplicated"`
}

// IsEmpty reports whether the file carried zero rows.
func (r *FileRecord) IsEmpty() bool {
	return r.RowsKnown && r.Rows == 0
}

// IsStopped reports whether the upstream status is "stopped" (case-insensitive).
func (r *FileRecord) IsStopped() bool {
	return strings.EqualFold(r.Status, StatusStopped)
}

// wireRecord mirrors the snapshot document. Numbers are decoded as floats
// because exports from the upstream tooling write "512.0" as often as "512".
type wireRecord struct {
	Filename     string   `json:"filename"`
	UploadedAt   string   `json:"uploaded_at"`
	Rows         *float64 `json:"rows"`
	FileSize     *float64 `json:"file_size"`
	Status       *string  `json:"status"`
	IsDuplicated flexBool `json:"is_duplicated"`
}

// flexBool decodes true, 1 and "true"/"1" as set. Any other value, including
// undecodable ones, is unset so the record itself still decodes.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	*b = false
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		*b = flexBool(v)
	case float64:
		*b = v == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			*b = true
		}
	}
	return nil
}

// timestampLayouts are tried in order when parsing uploaded_at.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp parses an uploaded_at value into a UTC-naive time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (w *wireRecord) toRecord(sourceID string) (FileRecord, error) {
	uploadedAt, err := ParseTimestamp(w.UploadedAt)
	if err != nil {
		return FileRecord{}, err
	}

	rec := FileRecord{
		SourceID:   sourceID,
		Filename:   w.Filename,
		UploadedAt: uploadedAt,
	}
	if w.Rows != nil && !math.IsNaN(*w.Rows) {
		if *w.Rows < 0 {
			return FileRecord{}, fmt.Errorf("negative row count %v", *w.Rows)
		}
		rec.Rows = int64(*w.Rows)
		rec.RowsKnown = true
	}
	if w.FileSize != nil && !math.IsNaN(*w.FileSize) {
		size := int64(*w.FileSize)
		rec.FileSize = &size
	}
	if w.Status != nil {
		rec.Status = *w.Status
	}
	rec.IsDuplicated = bool(w.IsDuplicated)
	return rec, nil
}

// decodeResult is the outcome of flattening one snapshot document.
type decodeResult struct {
	records  []FileRecord
	dropped  int
	filtered int
}

// decodeDocument flattens a {source_id: [record, ...]} document. When day is
// non-zero only records uploaded on that calendar date are kept. Records that
// fail to decode are dropped individually; only a malformed top level fails
// the whole document.
func decodeDocument(data []byte, day time.Time) (decodeResult, error) {
	var doc map[string][]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return decodeResult{}, fmt.Errorf("malformed snapshot document: %w", err)
	}

	sourceIDs := make([]string, 0, len(doc))
	for id := range doc {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	var res decodeResult
	for _, id := range sourceIDs {
		for _, raw := range doc[id] {
			var w wireRecord
			if err := json.Unmarshal(raw, &w); err != nil {
				res.dropped++
				continue
			}
			rec, err := w.toRecord(id)
			if err != nil {
				res.dropped++
				continue
			}
			if !day.IsZero() && !SameDay(rec.UploadedAt, day) {
				res.filtered++
				continue
			}
			res.records = append(res.records, rec)
		}
	}
	return res, nil
}
