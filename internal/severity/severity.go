// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package severity groups a run's incidents by source and assigns each
// source a severity tier.
package severity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/detection"
)

// Level is a source's severity tier.
type Level int

const (
	OK Level = iota
	Warning
	Urgent
)

// Tier thresholds on the number of incidents for one source.
const (
	// UrgentAbove is the incident count above which a source is urgent.
	UrgentAbove = 3
	// WarningFrom is the smallest incident count that raises a warning.
	WarningFrom = 1
)

// Levels lists every level from least to most severe.
var Levels = []Level{OK, Warning, Urgent}

// String returns the level name as written in output documents.
func (l Level) String() string {
	switch l {
	case Urgent:
		return "URGENT"
	case Warning:
		return "WARNING"
	default:
		return "OK"
	}
}

// Emoji returns the status marker for the level.
func (l Level) Emoji() string {
	switch l {
	case Urgent:
		return "🔴"
	case Warning:
		return "🟡"
	default:
		return "🟢"
	}
}

// MarshalJSON encodes the level as its name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK":
		return OK, nil
	case "WARNING":
		return Warning, nil
	case "URGENT":
		return Urgent, nil
	default:
		return OK, fmt.Errorf("unknown severity %q", s)
	}
}

// ForCount maps an incident count to a level.
func ForCount(n int) Level {
	switch {
	case n > UrgentAbove:
		return Urgent
	case n >= WarningFrom:
		return Warning
	default:
		return OK
	}
}

// ClassifiedSource is the triage outcome for one source.
type ClassifiedSource struct {
	Severity       Level                `json:"severity"`
	StatusEmoji    string               `json:"status_emoji"`
	TotalIncidents int                  `json:"total_incidents"`
	Incidents      []detection.Incident `json:"incidents"`
}

// Classification maps source ids to their triage outcome.
type Classification map[string]ClassifiedSource

// Classify groups incidents by source and assigns a level from the count.
// Sources without incidents are absent from the result. Incident order
// within a source follows the input order.
func Classify(incidents []detection.Incident) Classification {
	out := make(Classification)
	for _, inc := range incidents {
		cs := out[inc.SourceID]
		cs.Incidents = append(cs.Incidents, inc)
		out[inc.SourceID] = cs
	}
	for id, cs := range out {
		out[id] = finish(cs)
	}
	return out
}

// ClassifyAll is Classify with an explicit OK entry for every listed source
// that had no incident.
func ClassifyAll(incidents []detection.Incident, sourceIDs []string) Classification {
	out := Classify(incidents)
	for _, id := range sourceIDs {
		if _, ok := out[id]; !ok {
			out[id] = finish(ClassifiedSource{Incidents: []detection.Incident{}})
		}
	}
	return out
}

func finish(cs ClassifiedSource) ClassifiedSource {
	cs.TotalIncidents = len(cs.Incidents)
	cs.Severity = ForCount(cs.TotalIncidents)
	cs.StatusEmoji = cs.Severity.Emoji()
	return cs
}

// SourceIDs returns the classified source ids in ascending order.
func (c Classification) SourceIDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary counts sources per tier.
type Summary struct {
	Counts  map[string]int      `json:"counts"`
	Sources map[string][]string `json:"sources"`
}

// Summarize returns per-tier counts and sorted source lists. Every tier is
// present, possibly with a zero count.
func (c Classification) Summarize() Summary {
	s := Summary{
		Counts:  make(map[string]int, len(Levels)),
		Sources: make(map[string][]string, len(Levels)),
	}
	for _, l := range Levels {
		s.Counts[l.String()] = 0
		s.Sources[l.String()] = []string{}
	}
	for _, id := range c.SourceIDs() {
		name := c[id].Severity.String()
		s.Counts[name]++
		s.Sources[name] = append(s.Sources[name], id)
	}
	return s
}
