// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

//go:build integration

package telemetry

import (
	"context"
	"testing"

	"github.com/tomtom215/uploadwatch/internal/testinfra"
)

func TestS3Source_MinIO(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	minio, err := testinfra.NewMinIOContainer(ctx)
	if err != nil {
		t.Fatalf("NewMinIOContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, minio.Container)

	err = minio.Seed(ctx, "telemetry", map[string][]byte{
		"exports/2025-09-08_20_00_UTC/files.json":              []byte(daySnapshot),
		"exports/2025-09-08_20_00_UTC/files_last_weekday.json": []byte(daySnapshot),
		"exports/2025-09-08_20_00_UTC/notes.txt":               []byte("ignored"),
	})
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", minio.AccessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minio.SecretKey)

	src, err := NewS3Source(ctx, S3Options{
		Bucket:   "telemetry",
		Prefix:   "exports",
		Region:   testinfra.MinIORegion,
		Endpoint: minio.Endpoint,
	})
	if err != nil {
		t.Fatalf("NewS3Source() error = %v", err)
	}

	names, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("List() = %v, want the two snapshot documents", names)
	}

	snap := NewLoader(src, "").LoadDay(ctx, opDate)
	if snap.Len() != 2 {
		t.Errorf("LoadDay() Len() = %d, want 2", snap.Len())
	}

	if _, err := src.Open(ctx, "2025-09-09_20_00_UTC/files.json"); err == nil {
		t.Error("Open() of a missing key should fail")
	}
}
