// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"bytes"
	"context"
	"io"

	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// FetchChunk downloads and verifies one V2 chunk, trying each URL in
// order until one succeeds. It returns the decompressed bytes.
func FetchChunk(ctx context.Context, sess *transport.Session, c manifest.Chunk, urls []string) ([]byte, error) {
	var lastErr error
	for _, url := range urls {
		body, err := fetchAndVerifyChunk(ctx, sess, c, url)
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no CDN urls provided")
	}
	return nil, galaxyerr.New(galaxyerr.IoError, c.CompressedMD5, errors.Wrap(lastErr, "chunk fetch failed on all CDNs"))
}

func fetchAndVerifyChunk(ctx context.Context, sess *transport.Session, c manifest.Chunk, url string) ([]byte, error) {
	resp, err := sess.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	compressed, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading chunk body")
	}
	if int64(len(compressed)) != c.CompressedSize {
		return nil, errors.Errorf("chunk %s: got %d bytes, want %d", c.CompressedMD5, len(compressed), c.CompressedSize)
	}
	got, err := galaxypathMD5(compressed)
	if err != nil {
		return nil, err
	}
	if got != c.CompressedMD5 {
		return nil, errors.Errorf("chunk %s: compressed md5 mismatch, got %s", c.CompressedMD5, got)
	}
	if c.CompressedSize == c.UncompressedSize {
		return compressed, nil
	}
	uncompressed, err := inflateChunk(compressed)
	if err != nil {
		return nil, galaxyerr.New(galaxyerr.DecompressionFailed, c.CompressedMD5, err)
	}
	return uncompressed, nil
}

func inflateChunk(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// AssembleV2File fetches every chunk of a file (in order) via source,
// preserving order via indexed result slots, and concatenates them to
// outPath. If expectedMD5 is non-empty, the assembled file's MD5 must
// match.
func AssembleV2File(ctx context.Context, sess *transport.Session, chunks []manifest.Chunk, source ChunkSource, outPath string, expectedMD5 string) error {
	results := make([][]byte, len(chunks))
	for i, c := range chunks {
		urls, err := source(ctx, c)
		if err != nil {
			return err
		}
		body, err := FetchChunk(ctx, sess, c, urls)
		if err != nil {
			return err
		}
		results[i] = body
	}
	if err := writeAll(outPath, results); err != nil {
		return err
	}
	if expectedMD5 != "" {
		got, err := md5File(outPath)
		if err != nil {
			return err
		}
		if got != expectedMD5 {
			return galaxyerr.New(galaxyerr.HashMismatch, outPath, errors.Errorf("got %s, want %s", got, expectedMD5))
		}
	}
	return nil
}

func writeAll(outPath string, chunks [][]byte) error {
	f, err := createWithParents(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, c := range chunks {
		if _, err := f.Write(c); err != nil {
			return errors.Wrap(err, "writing assembled output")
		}
	}
	return nil
}
