// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/tomtom215/uploadwatch/internal/cache"
	"github.com/tomtom215/uploadwatch/internal/profile"
)

const (
	profileCacheSize = 4
	profileCacheTTL  = 24 * time.Hour
)

// profileCache memoizes decoded profile collections by file identity
// (path, size, modification time). A rewritten file gets a new key.
type profileCache struct {
	sets *cache.LRU[string, *profile.Set]
	load func(path string) (*profile.Set, error)
}

func newProfileCache(load func(path string) (*profile.Set, error)) *profileCache {
	return &profileCache{
		sets: cache.NewLRU[string, *profile.Set](profileCacheSize, profileCacheTTL),
		load: load,
	}
}

// Load returns the profile set at path, decoding it only when the file changed.
func (c *profileCache) Load(path string) (*profile.Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", profile.ErrNoProfiles, path)
		}
		return nil, fmt.Errorf("stat profiles %s: %w", path, err)
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if set, ok := c.sets.Get(key); ok {
		return set, nil
	}

	set, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.sets.Add(key, set)
	return set, nil
}
