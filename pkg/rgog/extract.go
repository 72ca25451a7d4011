// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ExtractOptions controls what an Extract run writes.
type ExtractOptions struct {
	// FilterBuildID, when non-nil, restricts extraction to the single
	// matching build.
	FilterBuildID *uint64
	// ChunksOnly skips build files (repository/manifest bytes) and
	// writes only chunk payloads.
	ChunksOnly bool
}

// ExtractStats summarizes one Extract run.
type ExtractStats struct {
	BuildFiles int
	Chunks     int
}

// Extract lays out an archive's build files and chunks as loose,
// content-addressed files under outDir (meta/<hash> and chunks/<hash>),
// for inspection or reuse outside a MirrorTree. Unlike Unpack, which
// restores a byte-exact v2/ mirror layout, Extract writes a flat,
// review-oriented tree and can be scoped to one build or to chunks
// alone.
func Extract(ctx context.Context, anyPartPath, outDir string, opts ExtractOptions) (ExtractStats, error) {
	var stats ExtractStats

	dir, stem, err := partStem(anyPartPath)
	if err != nil {
		return stats, err
	}
	part0 := partPath(dir, stem, 1)

	h0, err := readHeader(part0)
	if err != nil {
		return stats, errors.Wrap(err, "reading part 0 header")
	}

	buildData, err := readSection(part0, h0.BuildMeta)
	if err != nil {
		return stats, err
	}
	builds, err := parseBuildRecords(buildData, h0.TotalBuilds)
	if err != nil {
		return stats, err
	}
	buildFiles, err := readSection(part0, h0.BuildFiles)
	if err != nil {
		return stats, err
	}

	metaDir := filepath.Join(outDir, "meta")
	chunksDir := filepath.Join(outDir, "chunks")
	if !opts.ChunksOnly {
		if err := os.MkdirAll(metaDir, 0o755); err != nil {
			return stats, errors.Wrap(err, "creating meta directory")
		}
	}
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return stats, errors.Wrap(err, "creating chunks directory")
	}

	for _, b := range builds {
		if opts.FilterBuildID != nil && b.BuildID != *opts.FilterBuildID {
			continue
		}
		if !opts.ChunksOnly {
			repoBytes := sliceAt(buildFiles, b.RepoOffset, b.RepoSize)
			if err := writeLoose(metaDir, hex.EncodeToString(b.RepositoryID[:]), repoBytes); err != nil {
				return stats, err
			}
			stats.BuildFiles++
			for _, m := range b.Manifests {
				mBytes := sliceAt(buildFiles, m.Offset, m.Size)
				if err := writeLoose(metaDir, hex.EncodeToString(m.DepotID[:]), mBytes); err != nil {
					return stats, err
				}
				stats.BuildFiles++
			}
		}
	}
	// ChunkMetadata carries no depot linkage, so an exact per-build
	// chunk subset isn't recoverable without re-parsing manifest JSON
	// (see Scan); a build filter narrows build files only, and chunks
	// are always extracted archive-wide.

	for partNum := uint32(1); partNum <= h0.TotalParts; partNum++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		path := partPath(dir, stem, int(partNum))
		h, err := readHeader(path)
		if err != nil {
			return stats, errors.Wrapf(err, "reading header of part %d", partNum)
		}
		chunkMetaData, err := readSection(path, h.ChunkMeta)
		if err != nil {
			return stats, err
		}
		chunkFiles, err := readSection(path, h.ChunkFiles)
		if err != nil {
			return stats, err
		}
		n, err := writeLooseChunksConcurrently(ctx, chunksDir, chunkFiles, parseChunkRecords(chunkMetaData))
		if err != nil {
			return stats, errors.Wrapf(err, "extracting chunks from part %d", partNum)
		}
		stats.Chunks += n
	}

	return stats, nil
}

// writeLooseChunksConcurrently writes one loose file per chunk record
// using a bounded errgroup worker pool (default one worker per CPU),
// the same shape as verify.go's chunk-hashing pool. Each worker slices
// its own chunk's bytes out of chunkFiles at that record's absolute
// offset, so workers never contend on shared state beyond the
// destination directory.
func writeLooseChunksConcurrently(ctx context.Context, chunksDir string, chunkFiles []byte, records []chunkRecord) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	results := make([]bool, len(records))
	for i, c := range records {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body := sliceAt(chunkFiles, c.Offset, c.Size)
			if err := writeLoose(chunksDir, hex.EncodeToString(c.CompressedMD5[:]), body); err != nil {
				return err
			}
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n, nil
}

// writeLoose writes body under root/<hash[:2]>/<hash>, the same
// two-level sharding convention galaxypath uses for the mirror tree,
// so an extracted directory tree stays navigable at scale.
func writeLoose(root, hash string, body []byte) error {
	dir := filepath.Join(root, hash[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	return os.WriteFile(filepath.Join(dir, hash), body, 0o644)
}
