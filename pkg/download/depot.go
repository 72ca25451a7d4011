// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"os"
	"path/filepath"

	"github.com/galaxy-archive/galaxydl/internal/syncx"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DepotDownloadOptions configures a bulk depot download.
type DepotDownloadOptions struct {
	Workers       int
	DeleteSFC     bool
	Progress      ProgressFunc
}

// DownloadDepot executes the documented ordering for a bulk depot
// download: (a) download all SFC items, (b) extract every sfcRef-bearing
// item, (c) optionally delete the SFC files, (d) download remaining
// regular items. Chunk dedup is by compressed MD5 within this call via a
// syncx.Map, so two files sharing a chunk fetch it only once.
func DownloadDepot(ctx context.Context, sess *transport.Session, m *manifest.Manifest, source ChunkSource, outDir string, opts DepotDownloadOptions) error {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	sfcPaths, sfcBytes, err := downloadSFC(ctx, sess, m, source, outDir, opts)
	if err != nil {
		return err
	}

	var sfcItems, regularItems []manifest.FileEntry
	for _, f := range m.Files {
		if f.SFCRef != nil {
			sfcItems = append(sfcItems, f)
		} else {
			regularItems = append(regularItems, f)
		}
	}

	for _, item := range sfcItems {
		outPath := filepath.Join(outDir, item.Path)
		if err := ExtractSFCItem(*item.SFCRef, sfcBytes, outPath); err != nil {
			return err
		}
	}

	if opts.DeleteSFC {
		for _, p := range sfcPaths {
			os.Remove(p)
		}
	}

	seen := &syncx.Map[string, bool]{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, item := range regularItems {
		item := item
		key := chunkDedupKey(item.Chunks)
		if key != "" {
			if _, loaded := seen.Load(key); loaded {
				continue
			}
			seen.Store(key, true)
		}
		g.Go(func() error {
			outPath := filepath.Join(outDir, item.Path)
			return AssembleV2File(gctx, sess, item.Chunks, source, outPath, item.MD5)
		})
	}
	return g.Wait()
}

func chunkDedupKey(chunks []manifest.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var key string
	for _, c := range chunks {
		key += c.CompressedMD5 + ","
	}
	return key
}

func downloadSFC(ctx context.Context, sess *transport.Session, m *manifest.Manifest, source ChunkSource, outDir string, opts DepotDownloadOptions) ([]string, []byte, error) {
	if len(m.SFC) == 0 {
		return nil, nil, nil
	}
	results := make([][]byte, len(m.SFC))
	var paths []string
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range m.SFC {
		i, c := i, c
		g.Go(func() error {
			urls, err := source(gctx, c)
			if err != nil {
				return err
			}
			body, err := FetchChunk(gctx, sess, c, urls)
			if err != nil {
				return err
			}
			results[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	var combined []byte
	for _, r := range results {
		combined = append(combined, r...)
	}
	sfcDir := filepath.Join(outDir, ".sfc")
	if err := os.MkdirAll(sfcDir, 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "creating sfc directory")
	}
	for i, c := range m.SFC {
		p := filepath.Join(sfcDir, c.CompressedMD5)
		if err := os.WriteFile(p, results[i], 0o644); err != nil {
			return nil, nil, errors.Wrap(err, "writing sfc chunk")
		}
		paths = append(paths, p)
	}
	return paths, combined, nil
}
