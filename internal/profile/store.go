// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/logging"
)

// ErrNoProfiles is returned by LoadFile when the profile document does not exist.
var ErrNoProfiles = errors.New("profile document not found")

// Set is an immutable collection of profiles addressable by source id.
// It is safe for concurrent readers once built.
type Set struct {
	byID map[string]*SourceProfile
	ids  []string
}

// NewSet builds a Set. Later profiles with a duplicate id are ignored.
func NewSet(profiles ...*SourceProfile) *Set {
	s := &Set{byID: make(map[string]*SourceProfile, len(profiles))}
	for _, p := range profiles {
		if p == nil || p.SourceID == "" {
			continue
		}
		if _, dup := s.byID[p.SourceID]; dup {
			continue
		}
		s.byID[p.SourceID] = p
		s.ids = append(s.ids, p.SourceID)
	}
	sort.Strings(s.ids)
	return s
}

// Get returns the profile for a source, or nil when the source is unknown.
func (s *Set) Get(id string) *SourceProfile {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// IDs returns the known source ids in ascending order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of profiles in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Decode parses a JSON array of profile documents. Entries that cannot be
// decoded or carry no source id are skipped and counted in the returned total.
func Decode(data []byte) (*Set, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode profile collection: %w", err)
	}

	profiles := make([]*SourceProfile, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var w wireProfile
		if err := json.Unmarshal(item, &w); err != nil {
			skipped++
			continue
		}
		p, ok := w.toProfile()
		if !ok {
			skipped++
			continue
		}
		profiles = append(profiles, p)
	}
	return NewSet(profiles...), skipped, nil
}

// LoadFile reads a profile collection from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoProfiles, path)
		}
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	set, skipped, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if skipped > 0 {
		logging.Warn().Str("path", path).Int("skipped", skipped).Msg("skipped undecodable profile entries")
	}
	logging.Debug().Str("path", path).Int("profiles", set.Len()).Msg("loaded source profiles")
	return set, nil
}
