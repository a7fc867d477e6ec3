// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package telemetry

import (
	"sort"
)

// DailySummary aggregates one source's uploads for one calendar date.
// It is the raw material from which source profiles are derived offline.
type DailySummary struct {
	Date     string `json:"uploaded_at_date"`
	SourceID string `json:"source_id"`

	TotalFiles             int `json:"total_files"`
	DuplicatedStoppedFiles int `json:"total_files_duplicated_stopped"`
	DuplicatedFiles        int `json:"total_files_duplicated"`
	ProcessedFiles         int `json:"total_files_processed"`
	OtherStatusFiles       int `json:"total_files_other_status"`

	SumFileSize int64 `json:"sum_file_size"`
	SumRows     int64 `json:"sum_rows"`

	FileSizeNullFiles     int `json:"total_files_filesize_null"`
	FileSizeZeroFiles     int `json:"total_files_filesize_zero"`
	FileSizePositiveFiles int `json:"total_files_filesize_positive"`

	// FilenameDuplicatedInSource counts files whose filename appears more
	// than once for the source anywhere in the history, not only that day.
	FilenameDuplicatedInSource int `json:"total_filename_duplicated_in_source"`

	FilesByHour    [24]int   `json:"total_files_by_hour"`
	RowsByHour     [24]int64 `json:"sum_rows_by_hour"`
	FileSizeByHour [24]int64 `json:"sum_filesize_by_hour"`
}

type summaryKey struct {
	date     string
	sourceID string
}

type filenameKey struct {
	sourceID string
	filename string
}

// Summarize aggregates records into per-(date, source) summaries sorted by
// date then source id. Status comparisons are exact here: the historical
// export only ever wrote lower-case statuses.
func Summarize(records []FileRecord) []DailySummary {
	nameCounts := make(map[filenameKey]int)
	for i := range records {
		nameCounts[filenameKey{records[i].SourceID, records[i].Filename}]++
	}

	byKey := make(map[summaryKey]*DailySummary)
	for i := range records {
		r := &records[i]
		k := summaryKey{date: r.UploadedAt.Format(DateLayout), sourceID: r.SourceID}
		s, ok := byKey[k]
		if !ok {
			s = &DailySummary{Date: k.date, SourceID: k.sourceID}
			byKey[k] = s
		}

		hour := r.UploadedAt.Hour()
		s.TotalFiles++
		s.FilesByHour[hour]++

		if r.IsDuplicated {
			s.DuplicatedFiles++
			if r.Status == StatusStopped {
				s.DuplicatedStoppedFiles++
			}
		}
		switch r.Status {
		case StatusProcessed:
			s.ProcessedFiles++
		case StatusStopped:
		default:
			s.OtherStatusFiles++
		}

		if r.RowsKnown {
			s.SumRows += r.Rows
			s.RowsByHour[hour] += r.Rows
		}

		switch {
		case r.FileSize == nil:
			s.FileSizeNullFiles++
		case *r.FileSize == 0:
			s.FileSizeZeroFiles++
		default:
			if *r.FileSize > 0 {
				s.FileSizePositiveFiles++
			}
			s.SumFileSize += *r.FileSize
			s.FileSizeByHour[hour] += *r.FileSize
		}

		if nameCounts[filenameKey{r.SourceID, r.Filename}] > 1 {
			s.FilenameDuplicatedInSource++
		}
	}

	out := make([]DailySummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}
