// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/pkg/errors"
)

// rawChunkManifest is the chunks.json sidecar written alongside a raw
// (unassembled) chunk directory, recording the chunk order needed to
// reassemble the original file.
type rawChunkManifest struct {
	CompressedMD5s []string `json:"compressed_md5s"`
	FinalMD5       string   `json:"final_md5,omitempty"`
}

// FetchRawChunkSet downloads each of a file's chunks as a separate
// compressed file under chunksDir, without inflating or concatenating
// them, and writes a chunks.json sidecar recording chunk order. A later
// call to Assemble turns the directory into the final file.
func FetchRawChunkSet(ctx context.Context, sess *transport.Session, chunks []manifest.Chunk, source ChunkSource, chunksDir, finalMD5 string) error {
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return errors.Wrap(err, "creating raw chunk directory")
	}
	sidecar := rawChunkManifest{FinalMD5: finalMD5}
	for _, c := range chunks {
		urls, err := source(ctx, c)
		if err != nil {
			return err
		}
		raw, err := fetchRawCompressed(ctx, sess, c, urls)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(chunksDir, c.CompressedMD5), raw, 0o644); err != nil {
			return errors.Wrap(err, "writing raw chunk")
		}
		sidecar.CompressedMD5s = append(sidecar.CompressedMD5s, c.CompressedMD5)
	}
	return writeSidecar(chunksDir, sidecar)
}

func fetchRawCompressed(ctx context.Context, sess *transport.Session, c manifest.Chunk, urls []string) ([]byte, error) {
	var lastErr error
	for _, url := range urls {
		resp, err := sess.Get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		got, err := galaxypathMD5(body)
		if err != nil {
			return nil, err
		}
		if got != c.CompressedMD5 {
			lastErr = errors.Errorf("chunk %s: md5 mismatch got %s", c.CompressedMD5, got)
			continue
		}
		return body, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no CDN urls provided")
	}
	return nil, galaxyerr.New(galaxyerr.IoError, c.CompressedMD5, lastErr)
}

func writeSidecar(chunksDir string, m rawChunkManifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling chunks.json")
	}
	return os.WriteFile(filepath.Join(chunksDir, "chunks.json"), b, 0o644)
}

// Assemble turns a raw chunk directory (produced by FetchRawChunkSet) into
// the final decompressed file at outPath, inflating each chunk in the
// order recorded by chunks.json.
func Assemble(chunksDir, outPath string) error {
	b, err := os.ReadFile(filepath.Join(chunksDir, "chunks.json"))
	if err != nil {
		return errors.Wrap(err, "reading chunks.json")
	}
	var sidecar rawChunkManifest
	if err := json.Unmarshal(b, &sidecar); err != nil {
		return errors.Wrap(err, "parsing chunks.json")
	}
	f, err := createWithParents(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, md5 := range sidecar.CompressedMD5s {
		raw, err := os.ReadFile(filepath.Join(chunksDir, md5))
		if err != nil {
			return errors.Wrapf(err, "reading raw chunk %s", md5)
		}
		inflated, err := inflateIfNeeded(raw)
		if err != nil {
			return galaxyerr.New(galaxyerr.DecompressionFailed, md5, err)
		}
		if _, err := f.Write(inflated); err != nil {
			return errors.Wrap(err, "writing assembled output")
		}
	}
	if sidecar.FinalMD5 != "" {
		f.Close()
		got, err := md5File(outPath)
		if err != nil {
			return err
		}
		if got != sidecar.FinalMD5 {
			return galaxyerr.New(galaxyerr.HashMismatch, outPath, errors.Errorf("got %s, want %s", got, sidecar.FinalMD5))
		}
	}
	return nil
}

func inflateIfNeeded(raw []byte) ([]byte, error) {
	plain, err := inflateChunk(raw)
	if err != nil {
		// Not every raw chunk is zlib-wrapped (e.g. compressed_size ==
		// uncompressed_size); fall back to the bytes as-is.
		return raw, nil
	}
	return plain, nil
}
