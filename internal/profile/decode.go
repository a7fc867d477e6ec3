// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package profile

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// weekdayAbbr maps the three-letter English abbreviations used by profile
// documents to time.Weekday.
var weekdayAbbr = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday resolves a weekday label such as "Mon" or "monday".
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	wd, ok := weekdayAbbr[s[:3]]
	return wd, ok
}

// optFloat is a lenient nullable number. Numbers and numeric strings decode to
// a value; null, empty strings and anything non-numeric decode to "absent".
type optFloat struct {
	v *float64
}

func (o *optFloat) UnmarshalJSON(data []byte) error {
	o.v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var f float64
	switch t := raw.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	o.v = &f
	return nil
}

// flexID accepts either a JSON string or number for source identifiers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("source id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// dayLabel is a weekday label that decodes any non-string value to "", so
// one bad entry cannot fail the surrounding profile.
type dayLabel string

func (d *dayLabel) UnmarshalJSON(data []byte) error {
	*d = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = dayLabel(s)
	}
	return nil
}

// lenientList decodes a JSON array element by element. Elements that do not
// decode are dropped, and a non-array value decodes to an empty list.
type lenientList[T any] []T

func (l *lenientList[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

type wireVolume struct {
	MeanRows      optFloat `json:"mean_rows"`
	MedianRows    optFloat `json:"median_rows"`
	StdevRows     optFloat `json:"stdev_rows"`
	PctEmptyFiles optFloat `json:"pct_empty_files"`
}

type wireFileCount struct {
	Day         dayLabel `json:"day"`
	MeanFiles   optFloat `json:"mean_files"`
	MedianFiles optFloat `json:"median_files"`
}

type wireSchedule struct {
	Day    dayLabel `json:"day"`
	Window any      `json:"upload_window_expected_utc"`
}

type wireRowStats struct {
	Day            dayLabel `json:"day"`
	RowsMean       optFloat `json:"rows_mean"`
	RowsMedian     optFloat `json:"rows_median"`
	EmptyFilesMean optFloat `json:"empty_files_mean"`
}

type wireProfile struct {
	SourceID   flexID                     `json:"source_id"`
	ResourceID flexID                     `json:"resource_id"`
	Volume     wireVolume                 `json:"general_volume_stats"`
	FileCounts lenientList[wireFileCount] `json:"file_processing_daily_stats"`
	Schedule   lenientList[wireSchedule]  `json:"upload_schedule_daily_stats"`
	Rows       lenientList[wireRowStats]  `json:"day_of_week_row_stats"`
	Insights   lenientList[any]           `json:"insights_for_incidences"`
}

// toProfile converts the wire form. It returns false when no id is present.
// Entries with unknown weekday labels are ignored; the first entry for a
// weekday wins.
func (w *wireProfile) toProfile() (*SourceProfile, bool) {
	id := string(w.SourceID)
	if id == "" {
		id = string(w.ResourceID)
	}
	if id == "" {
		return nil, false
	}

	p := &SourceProfile{
		SourceID: id,
		GeneralVolume: VolumeStats{
			MeanRows:      w.Volume.MeanRows.v,
			MedianRows:    w.Volume.MedianRows.v,
			StdevRows:     w.Volume.StdevRows.v,
			PctEmptyFiles: w.Volume.PctEmptyFiles.v,
		},
	}

	for _, fc := range w.FileCounts {
		wd, ok := ParseWeekday(string(fc.Day))
		if !ok || p.FileCounts[wd] != nil {
			continue
		}
		p.FileCounts[wd] = &FileCountStats{MeanFiles: fc.MeanFiles.v, MedianFiles: fc.MedianFiles.v}
	}
	for _, s := range w.Schedule {
		wd, ok := ParseWeekday(string(s.Day))
		if !ok || p.Schedule[wd] != nil {
			continue
		}
		window, _ := s.Window.(string)
		p.Schedule[wd] = &UploadSchedule{WindowExpectedUTC: window}
	}
	for _, r := range w.Rows {
		wd, ok := ParseWeekday(string(r.Day))
		if !ok || p.Rows[wd] != nil {
			continue
		}
		p.Rows[wd] = &RowStats{
			RowsMean:       r.RowsMean.v,
			RowsMedian:     r.RowsMedian.v,
			EmptyFilesMean: r.EmptyFilesMean.v,
		}
	}
	for _, in := range w.Insights {
		if s, ok := in.(string); ok && s != "" {
			p.Insights = append(p.Insights, s)
		}
	}
	return p, true
}
