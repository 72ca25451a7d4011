// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package download implements the V1 parallel-range blob fetcher and the
// V2 content-addressed chunk fetcher/assembler, including the small-files
// container extraction and raw-chunk round trip.
package download

import (
	"context"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
)

// ProgressFunc reports bytes completed / total across a bulk operation.
type ProgressFunc func(done, total int64)

// ChunkSource resolves a chunk to candidate CDN URLs in priority order,
// with the "{GALAXY_PATH}" placeholder already substituted per chunk. CDN
// priority and secure-link materialization belong to pkg/contentsystem;
// this package only consumes the resulting URL list.
type ChunkSource func(ctx context.Context, c manifest.Chunk) ([]string, error)
