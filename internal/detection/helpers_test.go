// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"time"

	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// monday is 2025-09-08, the operation date used throughout these tests.
var monday = time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func rec(name string, rows int64) telemetry.FileRecord {
	return telemetry.FileRecord{
		SourceID:   "999",
		Filename:   name,
		UploadedAt: monday.Add(11 * time.Hour),
		Rows:       rows,
		RowsKnown:  true,
		Status:     telemetry.StatusProcessed,
	}
}

func recs(n int) []telemetry.FileRecord {
	out := make([]telemetry.FileRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rec("file_"+string(rune('a'+i))+".csv", 500))
	}
	return out
}

// profileBuilder assembles a SourceProfile field by field.
type profileBuilder struct {
	p *profile.SourceProfile
}

func newProfile() *profileBuilder {
	return &profileBuilder{p: &profile.SourceProfile{SourceID: "999"}}
}

func (b *profileBuilder) meanFiles(wd time.Weekday, v float64) *profileBuilder {
	b.p.FileCounts[wd] = &profile.FileCountStats{MeanFiles: f64(v)}
	return b
}

func (b *profileBuilder) rows(wd time.Weekday, rowsMean, emptyMean *float64) *profileBuilder {
	b.p.Rows[wd] = &profile.RowStats{RowsMean: rowsMean, EmptyFilesMean: emptyMean}
	return b
}

func (b *profileBuilder) window(wd time.Weekday, w string) *profileBuilder {
	b.p.Schedule[wd] = &profile.UploadSchedule{WindowExpectedUTC: w}
	return b
}

func (b *profileBuilder) median(v float64) *profileBuilder {
	b.p.GeneralVolume.MedianRows = f64(v)
	return b
}

func (b *profileBuilder) stdev(v float64) *profileBuilder {
	b.p.GeneralVolume.StdevRows = f64(v)
	return b
}

func (b *profileBuilder) build() *profile.SourceProfile {
	return b.p
}
