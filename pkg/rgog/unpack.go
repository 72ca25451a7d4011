// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"runtime"
	"sync/atomic"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// UnpackStats summarizes what an Unpack run restored.
type UnpackStats struct {
	Builds    int
	Manifests int
	Chunks    int
}

// Unpack restores an RGOG archive's content into target, reproducing
// the v2 meta/store/debug layout a live archiver would have produced:
// each build's repository and manifest bytes are written content-
// addressed under v2/meta (with a decompressed debug copy under
// v2/debug), and every chunk they reference is written under
// v2/store/<productId>, the product id recovered by re-parsing each
// restored manifest rather than carried in the wire format. Builds
// whose original form was a V1 monolithic blob are out of scope: RGOG
// only archives content-addressed V2-style builds.
func Unpack(ctx context.Context, anyPartPath string, target *mirror.Tree, opts VerifyOptions) (UnpackStats, error) {
	var stats UnpackStats

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

	chunks := make(map[string][]byte)
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
		for _, c := range parseChunkRecords(chunkMetaData) {
			id := hex.EncodeToString(c.CompressedMD5[:])
			chunks[id] = sliceAt(chunkFiles, c.Offset, c.Size)
		}
	}

	for _, b := range builds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		repoBytes := sliceAt(buildFiles, b.RepoOffset, b.RepoSize)
		repoID := hex.EncodeToString(b.RepositoryID[:])
		if err := checkMD5(repoBytes, b.RepositoryID); err != nil {
			return stats, errors.Wrapf(err, "build %d repository", b.BuildID)
		}
		if err := writeMetaAndDebug(target, repoID, "depot", repoBytes); err != nil {
			return stats, err
		}
		stats.Builds++

		for _, mRec := range b.Manifests {
			mBytes := sliceAt(buildFiles, mRec.Offset, mRec.Size)
			mID := hex.EncodeToString(mRec.DepotID[:])
			if err := checkMD5(mBytes, mRec.DepotID); err != nil {
				return stats, errors.Wrapf(err, "build %d manifest %s", b.BuildID, mID)
			}
			if err := writeMetaAndDebug(target, mID, "manifest", mBytes); err != nil {
				return stats, err
			}
			stats.Manifests++

			mPlain, err := mirror.DecompressMeta(mBytes)
			if err != nil {
				return stats, errors.Wrapf(err, "decompressing restored manifest %s", mID)
			}
			m, err := manifest.ParseV2(mPlain)
			if err != nil {
				return stats, errors.Wrapf(err, "parsing restored manifest %s", mID)
			}
			var refs []manifest.Chunk
			refs = append(refs, m.SFC...)
			for _, f := range m.Files {
				refs = append(refs, f.Chunks...)
			}
			n, err := writeChunksConcurrently(ctx, target, m.ProductID, refs, chunks)
			if err != nil {
				return stats, errors.Wrapf(err, "manifest %s", mID)
			}
			stats.Chunks += n
		}
	}

	return stats, nil
}

// writeChunksConcurrently writes every chunk a manifest references to
// target's content store, using a bounded errgroup worker pool (default
// one worker per CPU) the same shape as verify.go's chunk-hashing pool.
// Each worker looks its chunk up by the compressed MD5 that chunks was
// keyed with when its bytes were sliced out of a part's ChunkFiles
// section at that chunk's absolute offset.
func writeChunksConcurrently(ctx context.Context, target *mirror.Tree, productID string, refs []manifest.Chunk, chunks map[string][]byte) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	var written int32
	for _, c := range refs {
		c := c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body, ok := chunks[c.CompressedMD5]
			if !ok {
				return errors.Errorf("references unknown chunk %s", c.CompressedMD5)
			}
			storePath := target.V2StorePath(productID, c.CompressedMD5)
			if target.Exists(storePath) {
				return nil
			}
			if err := target.WriteBytes(storePath, body); err != nil {
				return err
			}
			atomic.AddInt32(&written, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(written), err
	}
	return int(written), nil
}

// writeMetaAndDebug writes body verbatim (still zlib-wrapped, as packed)
// to its content-addressed meta path, plus a pretty-printed decompressed
// copy under debug/, mirroring ArchiveBuild's own writeMetaWithDebug.
func writeMetaAndDebug(target *mirror.Tree, hash, kind string, body []byte) error {
	if err := target.WriteBytes(target.V2MetaPath(hash), body); err != nil {
		return err
	}
	plain, err := mirror.DecompressMeta(body)
	if err != nil {
		plain = body
	}
	var pretty bytes.Buffer
	if json.Valid(plain) {
		if err := json.Indent(&pretty, plain, "", "  "); err == nil {
			return target.WriteBytes(target.V2DebugPath(hash, kind), pretty.Bytes())
		}
	}
	return target.WriteBytes(target.V2DebugPath(hash, kind), plain)
}
