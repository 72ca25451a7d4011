// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CheckResult is one verified object's pass/fail outcome.
type CheckResult struct {
	Kind  string // "repository", "manifest", or "chunk"
	ID    string // hex hash identifying the object
	OK    bool
	Error string
}

// Report aggregates a verify run's per-object results.
type Report struct {
	Checks []CheckResult
	Passed int
	Failed int
}

func (r *Report) record(kind, id string, err error) {
	c := CheckResult{Kind: kind, ID: id, OK: err == nil}
	if err != nil {
		c.Error = err.Error()
		r.Failed++
	} else {
		r.Passed++
	}
	r.Checks = append(r.Checks, c)
}

func (r *Report) append(checks []CheckResult) {
	for _, c := range checks {
		if c.OK {
			r.Passed++
		} else {
			r.Failed++
		}
	}
	r.Checks = append(r.Checks, checks...)
}

// VerifyOptions controls the depth and scope of a Verify run.
type VerifyOptions struct {
	// Quick skips chunk payload hashing and only validates headers and
	// repository/manifest hashes.
	Quick bool
	// Full additionally inflates every chunk and checks the result
	// against the uncompressed_md5 recorded in whichever depot
	// manifest (found in BuildFiles) references it. Chunks not
	// referenced by any decodable manifest in this part set are
	// skipped (their compressed-md5 check still runs).
	Full bool
	// BuildID, when non-nil, restricts repository/manifest checks to
	// the matching build; chunk checks are always archive-wide, since
	// ChunkMetadata carries no depot linkage (see Extract).
	BuildID *uint64
	// Threads bounds concurrent chunk-hashing workers; zero selects a
	// modest default.
	Threads int
}

func (o VerifyOptions) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return 4
}

// Verify opens the part whose path is given (any part redirects to
// part 0 by filename convention), validates every part's header, then
// checks every repository and manifest's bytes against its recorded
// hash and, unless Quick, every chunk's bytes against its recorded
// compressed MD5.
func Verify(ctx context.Context, anyPartPath string, opts VerifyOptions) (Report, error) {
	var report Report

	dir, stem, err := partStem(anyPartPath)
	if err != nil {
		return report, err
	}
	part0 := partPath(dir, stem, 1)

	h0, err := readHeader(part0)
	if err != nil {
		return report, errors.Wrap(err, "reading part 0 header")
	}

	productData, err := readSection(part0, h0.ProductMeta)
	if err != nil {
		return report, err
	}
	if _, err := parseProductRecords(productData); err != nil {
		return report, errors.Wrap(err, "parsing product metadata")
	}

	buildData, err := readSection(part0, h0.BuildMeta)
	if err != nil {
		return report, err
	}
	builds, err := parseBuildRecords(buildData, h0.TotalBuilds)
	if err != nil {
		return report, errors.Wrap(err, "parsing build metadata")
	}
	buildFiles, err := readSection(part0, h0.BuildFiles)
	if err != nil {
		return report, err
	}

	uncompressedIndex := make(map[string]manifest.Chunk)
	for _, b := range builds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		for _, m := range b.Manifests {
			mBytes := sliceAt(buildFiles, m.Offset, m.Size)
			indexManifestChunks(uncompressedIndex, mBytes)
		}
		if opts.BuildID != nil && b.BuildID != *opts.BuildID {
			continue
		}
		repoBytes := sliceAt(buildFiles, b.RepoOffset, b.RepoSize)
		id := hex.EncodeToString(b.RepositoryID[:])
		report.record("repository", id, checkMD5(repoBytes, b.RepositoryID))
		for _, m := range b.Manifests {
			mBytes := sliceAt(buildFiles, m.Offset, m.Size)
			mid := hex.EncodeToString(m.DepotID[:])
			report.record("manifest", mid, checkMD5(mBytes, m.DepotID))
		}
	}

	for partNum := uint32(1); partNum <= h0.TotalParts; partNum++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := partPath(dir, stem, int(partNum))
		h, err := readHeader(path)
		if err != nil {
			return report, errors.Wrapf(err, "reading header of part %d", partNum)
		}
		if h.PartNumber != partNum-1 {
			return report, errors.Errorf("part %d declares part_number %d", partNum, h.PartNumber)
		}
		if opts.Quick {
			continue
		}
		chunkMetaData, err := readSection(path, h.ChunkMeta)
		if err != nil {
			return report, err
		}
		chunkFiles, err := readSection(path, h.ChunkFiles)
		if err != nil {
			return report, err
		}
		checks, err := verifyChunksConcurrently(ctx, parseChunkRecords(chunkMetaData), chunkFiles, opts.threads(), opts.Full, uncompressedIndex)
		if err != nil {
			return report, err
		}
		report.append(checks)
	}

	return report, nil
}

// verifyChunksConcurrently hashes each chunk's stored bytes against its
// recorded compressed MD5 using a bounded errgroup worker pool, the
// same shape as the download engine's parallel chunk fetcher. When full
// is set, a chunk whose compressed MD5 is present in index is also
// inflated and checked against the manifest's uncompressed_md5.
func verifyChunksConcurrently(ctx context.Context, records []chunkRecord, chunkFiles []byte, threads int, full bool, index map[string]manifest.Chunk) ([]CheckResult, error) {
	results := make([]CheckResult, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, c := range records {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body := sliceAt(chunkFiles, c.Offset, c.Size)
			id := hex.EncodeToString(c.CompressedMD5[:])
			err := checkMD5(body, c.CompressedMD5)
			if err == nil && full {
				err = checkUncompressed(id, body, index)
			}
			res := CheckResult{Kind: "chunk", ID: id, OK: err == nil}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// indexManifestChunks decompresses a depot manifest's raw bytes and
// records every chunk it references by compressed MD5, so a later full
// verify pass can check each chunk's inflated contents without needing
// a second pass over the manifests.
func indexManifestChunks(index map[string]manifest.Chunk, raw []byte) {
	plain, err := decompressIfZlib(raw)
	if err != nil {
		return
	}
	m, err := manifest.ParseV2(plain)
	if err != nil {
		return
	}
	add := func(c manifest.Chunk) {
		if c.CompressedMD5 != "" {
			index[c.CompressedMD5] = c
		}
	}
	for _, c := range m.SFC {
		add(c)
	}
	for _, f := range m.Files {
		for _, c := range f.Chunks {
			add(c)
		}
	}
	for _, p := range m.Patches {
		for _, c := range p.Chunks {
			add(c)
		}
	}
}

// checkUncompressed inflates a chunk's compressed bytes (a no-op when
// compressed_size == uncompressed_size is indistinguishable here from
// "no zlib header", so a non-zlib body is accepted verbatim) and checks
// the result against the manifest-recorded uncompressed_md5. A chunk
// absent from index (referenced by no manifest in this part set) is
// skipped rather than failed.
func checkUncompressed(compressedMD5Hex string, body []byte, index map[string]manifest.Chunk) error {
	c, ok := index[compressedMD5Hex]
	if !ok {
		return nil
	}
	plain := body
	if galaxypath.HasZlibPrefix(body) {
		r, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return errors.Wrapf(err, "chunk %s: zlib open", compressedMD5Hex)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return errors.Wrapf(err, "chunk %s: inflate", compressedMD5Hex)
		}
		plain = out
	}
	if c.UncompressedSize > 0 && int64(len(plain)) != c.UncompressedSize {
		return fmt.Errorf("chunk %s: uncompressed size mismatch: got %d, want %d", compressedMD5Hex, len(plain), c.UncompressedSize)
	}
	got := md5.Sum(plain)
	want := strings.ToLower(c.UncompressedMD5)
	if want != "" && hex.EncodeToString(got[:]) != want {
		return fmt.Errorf("chunk %s: uncompressed md5 mismatch: got %s, want %s", compressedMD5Hex, hex.EncodeToString(got[:]), want)
	}
	return nil
}

func decompressIfZlib(b []byte) ([]byte, error) {
	if !galaxypath.HasZlibPrefix(b) {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func sliceAt(data []byte, offset, size uint64) []byte {
	if offset+size > uint64(len(data)) {
		return nil
	}
	return data[offset : offset+size]
}

func checkMD5(body []byte, want [16]byte) error {
	got := md5.Sum(body)
	if got != want {
		return fmt.Errorf("md5 mismatch: got %s, want %s", hex.EncodeToString(got[:]), hex.EncodeToString(want[:]))
	}
	return nil
}
