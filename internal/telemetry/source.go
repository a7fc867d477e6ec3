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
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound is returned by a Source when the requested document does not exist.
var ErrNotFound = errors.New("snapshot document not found")

// Source provides raw snapshot documents addressed by slash-separated names
// such as "2025-09-08_20_00_UTC/files.json".
type Source interface {
	// Open returns the document body. Implementations return an error
	// wrapping ErrNotFound when the name does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns the names of every snapshot document the source holds,
	// sorted lexically.
	List(ctx context.Context) ([]string, error)

	// String identifies the source in log lines.
	String() string
}

// snapshotBaseNames are the document names produced by the upstream export.
// files_last_weekday.json holds the previous same-weekday snapshot.
var snapshotBaseNames = map[string]bool{
	"files.json":              true,
	"files_last_weekday.json": true,
}

// compressionExts are tried, in order, after the uncompressed name.
var compressionExts = []string{".zst", ".gz"}

// isSnapshotName reports whether the base name of p is a snapshot document,
// optionally compressed.
func isSnapshotName(p string) bool {
	base := path.Base(p)
	for _, ext := range compressionExts {
		base = strings.TrimSuffix(base, ext)
	}
	return snapshotBaseNames[base]
}

// decompress wraps r according to the name's extension.
func decompress(r io.ReadCloser, name string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader for %s: %w", name, err)
		}
		return &stackedCloser{ReadCloser: dec.IOReadCloser(), under: r}, nil
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader for %s: %w", name, err)
		}
		return &stackedCloser{ReadCloser: gz, under: r}, nil
	default:
		return r, nil
	}
}

// stackedCloser closes a decompressor and the reader beneath it.
type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedCloser) Close() error {
	err := s.ReadCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}

// FSSource reads snapshot documents from a local directory tree.
type FSSource struct {
	root string
}

// NewFSSource creates a source rooted at dir.
func NewFSSource(dir string) *FSSource {
	return &FSSource{root: dir}
}

// Open implements Source.
func (s *FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// List implements Source. Only one directory level is scanned, matching the
// <date>_20_00_UTC/ layout.
func (s *FSSource) List(_ context.Context) ([]string, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	var names []string
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, d.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && isSnapshotName(e.Name()) {
				names = append(names, d.Name()+"/"+e.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// String implements Source.
func (s *FSSource) String() string {
	return "fs:" + s.root
}
