// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/uploadwatch/internal/logging"
	"github.com/tomtom215/uploadwatch/internal/metrics"
)

// DefaultLayout is the snapshot document name for an operation date.
// "{date}" is replaced with the YYYY-MM-DD date.
const DefaultLayout = "{date}_20_00_UTC/files.json"

// maxDocumentBytes bounds a single snapshot document read into memory.
const maxDocumentBytes = 512 << 20

// Snapshot is the set of records uploaded on one operation date.
type Snapshot struct {
	Date    time.Time
	Records []FileRecord

	// Document is the name the snapshot was read from; empty when no
	// document was found.
	Document string
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// BySource groups records by source id, preserving document order within a source.
func (s *Snapshot) BySource() map[string][]FileRecord {
	grouped := make(map[string][]FileRecord)
	for i := range s.Records {
		id := s.Records[i].SourceID
		grouped[id] = append(grouped[id], s.Records[i])
	}
	return grouped
}

// SourceIDs returns the sorted ids of every source present in the snapshot.
func (s *Snapshot) SourceIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for i := range s.Records {
		id := s.Records[i].SourceID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Loader reads daily snapshots from a Source.
type Loader struct {
	source Source
	layout string
}

// NewLoader creates a loader. An empty layout selects DefaultLayout.
func NewLoader(source Source, layout string) *Loader {
	if layout == "" {
		layout = DefaultLayout
	}
	return &Loader{source: source, layout: layout}
}

// DocumentName returns the snapshot document name for a date.
func (l *Loader) DocumentName(date time.Time) string {
	return strings.ReplaceAll(l.layout, "{date}", date.Format(DateLayout))
}

// LoadDay returns the records uploaded on date. It never fails: an absent or
// malformed document yields an empty snapshot and an error log line, so the
// detectors still run (and can report missing files).
func (l *Loader) LoadDay(ctx context.Context, date time.Time) *Snapshot {
	date = DateOf(date)
	snap := &Snapshot{Date: date}
	logger := logging.Ctx(ctx).With().Str("component", "telemetry").Str("source", l.source.String()).Logger()

	name := l.DocumentName(date)
	data, docName, err := l.readFirst(ctx, name)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrNotFound) {
			result = "missing"
		}
		metrics.SnapshotLoads.WithLabelValues(result).Inc()
		metrics.SnapshotRecords.Set(0)
		logger.Error().Err(err).Str("document", name).Msg("snapshot unavailable, continuing with no records")
		return snap
	}

	res, err := decodeDocument(data, date)
	if err != nil {
		metrics.SnapshotLoads.WithLabelValues("malformed").Inc()
		metrics.SnapshotRecords.Set(0)
		logger.Error().Err(err).Str("document", docName).Msg("snapshot unreadable, continuing with no records")
		return snap
	}

	snap.Records = res.records
	snap.Document = docName
	metrics.SnapshotLoads.WithLabelValues("ok").Inc()
	metrics.SnapshotRecords.Set(float64(len(res.records)))

	if res.dropped > 0 {
		logger.Warn().Int("dropped", res.dropped).Str("document", docName).Msg("dropped undecodable records")
	}
	logger.Info().
		Str("document", docName).
		Int("records", len(res.records)).
		Int("other_dates", res.filtered).
		Msg("snapshot loaded")

	return snap
}

// LoadAll reads every snapshot document the source holds, without date
// filtering. Exact duplicate records (the same file present in both a
// snapshot and a later files_last_weekday copy) are collapsed. Unreadable
// documents are skipped with a warning.
func (l *Loader) LoadAll(ctx context.Context) ([]FileRecord, error) {
	logger := logging.Ctx(ctx).With().Str("component", "telemetry").Logger()

	names, err := l.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	seen := make(map[string]bool)
	var all []FileRecord
	for _, name := range names {
		data, err := l.read(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("document", name).Msg("skipping snapshot")
			continue
		}
		res, err := decodeDocument(data, time.Time{})
		if err != nil {
			logger.Warn().Err(err).Str("document", name).Msg("skipping snapshot")
			continue
		}
		for _, rec := range res.records {
			key := recordKey(&rec)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, rec)
		}
	}

	logger.Info().Int("documents", len(names)).Int("records", len(all)).Msg("historical snapshots loaded")
	return all, nil
}

// readFirst reads name or, failing that, one of its compressed variants.
func (l *Loader) readFirst(ctx context.Context, name string) ([]byte, string, error) {
	candidates := append([]string{name}, withExts(name)...)
	var lastErr error
	for _, c := range candidates {
		data, err := l.read(ctx, c)
		if err == nil {
			return data, c, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotFound) {
			return nil, c, err
		}
	}
	return nil, name, lastErr
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	body, err := decompress(rc, name)
	if err != nil {
		rc.Close()
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func withExts(name string) []string {
	out := make([]string, 0, len(compressionExts))
	for _, ext := range compressionExts {
		out = append(out, name+ext)
	}
	return out
}

func recordKey(r *FileRecord) string {
	size := "null"
	if r.FileSize != nil {
		size = fmt.Sprint(*r.FileSize)
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d/%t\x00%s\x00%s\x00%t",
		r.SourceID, r.Filename, r.UploadedAt.Format(time.RFC3339Nano),
		r.Rows, r.RowsKnown, size, r.Status, r.IsDuplicated)
}
