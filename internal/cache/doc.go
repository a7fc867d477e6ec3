// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

/*
Package cache provides a small thread-safe LRU cache with per-entry TTL.

Serve mode evaluates a new operation date every day against a profile
collection that rarely changes. The pipeline keeps decoded profile sets
in an LRU keyed by file identity so repeated runs skip the decode:

	profiles := cache.NewLRU[string, *profile.Set](4, time.Hour)
	if set, ok := profiles.Get(key); ok {
	    return set, nil
	}

Entries expire after the TTL and the least recently used entry is evicted
once capacity is exceeded. Stats reports hits, misses and evictions.
*/
package cache
