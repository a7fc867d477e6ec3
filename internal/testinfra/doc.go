// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

// Package testinfra provides container-backed infrastructure for integration tests.
//
// The package is only compiled with the integration build tag:
//
//	go test -tags integration ./internal/telemetry/...
//
// # MinIO Container
//
// MinIOContainer runs an S3-compatible store so the S3 telemetry source can be
// exercised against a real ListObjectsV2/GetObject implementation:
//
//	func TestS3Source_MinIO(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    minio, err := testinfra.NewMinIOContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, minio)
//
//	    err = minio.Seed(ctx, "telemetry", map[string][]byte{
//	        "exports/2025-09-08_20_00_UTC/files.json": doc,
//	    })
//	    // ...
//	}
//
// Tests skip when no Docker daemon is reachable.
package testinfra
