// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package profile models the precomputed historical behaviour of each data
// source (its "CV"): expected volumes, file counts, upload windows and empty
// file rates, broken out by weekday.
//
// Profiles are produced offline and read once per run. Every numeric field is
// optional; a missing or non-numeric value means "cannot evaluate", never an
// error.
package profile

import (
	"time"
)

// Daily holds one optional entry per weekday, indexed by time.Weekday.
type Daily[T any] [7]*T

// On returns the entry for the weekday, if the profile has one.
func (d *Daily[T]) On(wd time.Weekday) (T, bool) {
	var zero T
	if wd < time.Sunday || wd > time.Saturday {
		return zero, false
	}
	if e := d[wd]; e != nil {
		return *e, true
	}
	return zero, false
}

// VolumeStats are all-time row statistics for a source.
type VolumeStats struct {
	MeanRows      *float64 `json:"mean_rows"`
	MedianRows    *float64 `json:"median_rows"`
	StdevRows     *float64 `json:"stdev_rows"`
	PctEmptyFiles *float64 `json:"pct_empty_files"`
}

// FileCountStats are the files-per-day statistics for one weekday.
type FileCountStats struct {
	MeanFiles   *float64 `json:"mean_files"`
	MedianFiles *float64 `json:"median_files"`
}

// UploadSchedule is the expected upload window for one weekday,
// e.g. "11:00:00–11:30:00 UTC".
type UploadSchedule struct {
	WindowExpectedUTC string `json:"upload_window_expected_utc"`
}

// RowStats are the per-file row statistics for one weekday.
type RowStats struct {
	RowsMean       *float64 `json:"rows_mean"`
	RowsMedian     *float64 `json:"rows_median"`
	EmptyFilesMean *float64 `json:"empty_files_mean"`
}

// SourceProfile is the historical baseline for one source.
type SourceProfile struct {
	SourceID string

	GeneralVolume VolumeStats
	FileCounts    Daily[FileCountStats]
	Schedule      Daily[UploadSchedule]
	Rows          Daily[RowStats]

	// Insights are free-text hints carried for downstream advisory tooling.
	Insights []string
}

// MeanFilesOn returns the historical mean file count for the weekday.
func (p *SourceProfile) MeanFilesOn(wd time.Weekday) (float64, bool) {
	s, ok := p.FileCounts.On(wd)
	if !ok || s.MeanFiles == nil {
		return 0, false
	}
	return *s.MeanFiles, true
}

// RowsMeanOn returns the historical mean row count per file for the weekday.
func (p *SourceProfile) RowsMeanOn(wd time.Weekday) (float64, bool) {
	s, ok := p.Rows.On(wd)
	if !ok || s.RowsMean == nil {
		return 0, false
	}
	return *s.RowsMean, true
}

// EmptyFilesMeanOn returns the historical mean number of empty files for the weekday.
func (p *SourceProfile) EmptyFilesMeanOn(wd time.Weekday) (float64, bool) {
	s, ok := p.Rows.On(wd)
	if !ok || s.EmptyFilesMean == nil {
		return 0, false
	}
	return *s.EmptyFilesMean, true
}

// UploadWindowOn returns the expected upload window string for the weekday.
func (p *SourceProfile) UploadWindowOn(wd time.Weekday) (string, bool) {
	s, ok := p.Schedule.On(wd)
	if !ok || s.WindowExpectedUTC == "" {
		return "", false
	}
	return s.WindowExpectedUTC, true
}

// MedianRows returns the all-time median rows per file.
func (p *SourceProfile) MedianRows() (float64, bool) {
	if p.GeneralVolume.MedianRows == nil {
		return 0, false
	}
	return *p.GeneralVolume.MedianRows, true
}

// StdevRows returns the all-time standard deviation of rows per file.
func (p *SourceProfile) StdevRows() (float64, bool) {
	if p.GeneralVolume.StdevRows == nil {
		return 0, false
	}
	return *p.GeneralVolume.StdevRows, true
}
