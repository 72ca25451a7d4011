// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/galaxy-archive/galaxydl/internal/ratex"
	"github.com/galaxy-archive/galaxydl/pkg/contentsystem"
	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// ArchiveStats summarizes one ArchiveBuild run's chunk outcomes.
type ArchiveStats struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// chunkInfo tracks one unique chunk discovered while walking a build's
// depot manifests.
type chunkInfo struct {
	chunk          manifest.Chunk
	productID      string
	isSFC          bool
	hasSFCFallback bool
}

// Archiver downloads a build's V1 or V2 content into a Tree.
type Archiver struct {
	Sess   *transport.Session
	CS     *contentsystem.Client
	Tree   *Tree
	Retry  ratex.RetryPolicy
}

// NewArchiver constructs an Archiver with the default 3-attempt
// 1s/2s/4s retry policy for chunk downloads.
func NewArchiver(sess *transport.Session, cs *contentsystem.Client, tree *Tree) *Archiver {
	return &Archiver{Sess: sess, CS: cs, Tree: tree, Retry: ratex.RetryPolicy{Attempts: 3, Base: time.Second}}
}

// ArchiveBuild downloads a build's content-system metadata and chunks
// into the MirrorTree. For V2, platform is unused (depots are
// product-scoped); for V1, an empty platform triggers auto-detection by
// attempting each of windows/mac/linux in turn.
func (a *Archiver) ArchiveBuild(ctx context.Context, productID, buildIdentifier, platform string, generation int) (ArchiveStats, error) {
	if generation == 2 {
		return a.archiveV2(ctx, productID, buildIdentifier)
	}
	return a.archiveV1(ctx, productID, buildIdentifier, platform)
}

func (a *Archiver) archiveV2(ctx context.Context, productID, depotHash string) (ArchiveStats, error) {
	var stats ArchiveStats

	rawDepot, err := a.CS.GetManifest(ctx, productID, "", depotHash, 2)
	if err != nil {
		return stats, errors.Wrap(err, "fetching depot descriptor")
	}
	if err := a.writeMetaWithDebug(depotHash, rawDepot, "depot"); err != nil {
		return stats, err
	}

	depots, err := manifest.ParseV2DepotDescriptor(rawDepot)
	if err != nil {
		return stats, errors.Wrap(err, "parsing depot descriptor")
	}

	chunksByHash := make(map[string]chunkInfo)
	var manifests []*manifest.Manifest
	for _, d := range depots {
		rawManifest, err := a.CS.GetManifest(ctx, productID, "", d.ManifestID, 2)
		if err != nil {
			return stats, errors.Wrapf(err, "fetching manifest %s", d.ManifestID)
		}
		if err := a.writeMetaWithDebug(d.ManifestID, rawManifest, "manifest"); err != nil {
			return stats, err
		}
		m, err := manifest.ParseV2(rawManifest)
		if err != nil {
			return stats, errors.Wrapf(err, "parsing manifest %s", d.ManifestID)
		}
		manifests = append(manifests, m)
		if d.Offline {
			continue
		}
		collectChunks(chunksByHash, productID, m)
	}

	for _, ci := range chunksByHash {
		if err := a.downloadChunk(ctx, ci); err != nil {
			if ci.hasSFCFallback {
				stats.Skipped++
				continue
			}
			stats.Failed++
			continue
		}
		if ci.isSFC {
			stats.Skipped++
		} else {
			stats.Downloaded++
		}
	}
	return stats, nil
}

func collectChunks(into map[string]chunkInfo, productID string, m *manifest.Manifest) {
	for _, c := range m.SFC {
		into[c.CompressedMD5] = chunkInfo{chunk: c, productID: productID, isSFC: true}
	}
	for _, f := range m.Files {
		if f.SFCRef != nil {
			continue
		}
		for _, c := range f.Chunks {
			if existing, ok := into[c.CompressedMD5]; ok && existing.isSFC {
				continue
			}
			into[c.CompressedMD5] = chunkInfo{chunk: c, productID: productID}
		}
	}
}

func (a *Archiver) downloadChunk(ctx context.Context, ci chunkInfo) error {
	path := a.Tree.V2StorePath(ci.productID, ci.chunk.CompressedMD5)
	if a.Tree.Exists(path) {
		return nil
	}
	return ratex.Retry(ctx, a.Retry, isTransient, func() error {
		link, err := a.CS.SecureLink(ctx, ci.productID, galaxypath.Galaxy(ci.chunk.CompressedMD5), 2, nil)
		if err != nil {
			return err
		}
		resp, err := a.Sess.Get(ctx, link)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return err
		}
		return a.Tree.WriteBytes(path, buf.Bytes())
	})
}

// isTransient treats any failure that isn't already classified as
// permanent (not-found, hash mismatch) as worth retrying: the mirror
// archiver's retry budget covers secure-link expiry and CDN hiccups above
// the transport layer's own per-request retry.
func isTransient(err error) bool {
	return !galaxyerr.Is(err, galaxyerr.NotFound) && !galaxyerr.Is(err, galaxyerr.HashMismatch)
}

func (a *Archiver) writeMetaWithDebug(hash string, raw []byte, kind string) error {
	if err := a.Tree.WriteBytes(a.Tree.V2MetaPath(hash), raw); err != nil {
		return err
	}
	plain, err := decompressIfWrapped(raw)
	if err != nil {
		return err
	}
	pretty, err := prettyJSON(plain)
	if err != nil {
		pretty = plain
	}
	return a.Tree.WriteBytes(a.Tree.V2DebugPath(hash, kind), pretty)
}

// DecompressMeta inflates b if it carries a zlib header, per the
// decompress-before-parse rule every v2/meta/ reader follows; bytes
// without a recognized header are returned unchanged.
func DecompressMeta(b []byte) ([]byte, error) {
	return decompressIfWrapped(b)
}

func decompressIfWrapped(b []byte) ([]byte, error) {
	if len(b) < 2 || !galaxypath.HasZlibPrefix(b) {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return b, nil
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return b, nil
	}
	return out.Bytes(), nil
}

func prettyJSON(b []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, "", "  ")
}

// archiveV1 downloads a V1 build: repository.json, each per-language
// manifest, then main.bin via the parallel-range primitive.
func (a *Archiver) archiveV1(ctx context.Context, productID, timestamp, platform string) (ArchiveStats, error) {
	var stats ArchiveStats
	platforms := []string{platform}
	if platform == "" {
		platforms = []string{"windows", "mac", "linux"}
	}
	var repoBody []byte
	var usedPlatform string
	var err error
	for _, p := range platforms {
		repoBody, err = a.CS.GetRepository(ctx, productID, p, timestamp)
		if err == nil {
			usedPlatform = p
			break
		}
	}
	if err != nil {
		return stats, errors.Wrap(err, "fetching repository.json on all candidate platforms")
	}

	if err := a.Tree.WriteBytes(a.Tree.V1ManifestPath(productID, usedPlatform, timestamp, "repository.json"), repoBody); err != nil {
		return stats, err
	}

	depots, err := manifest.ParseV1Repository(repoBody)
	if err != nil {
		return stats, err
	}
	for _, d := range depots {
		body, err := a.CS.GetV1Manifest(ctx, productID, usedPlatform, timestamp, d.ManifestID)
		if err != nil {
			return stats, errors.Wrapf(err, "fetching v1 manifest %s", d.ManifestID)
		}
		if err := a.Tree.WriteBytes(a.Tree.V1ManifestPath(productID, usedPlatform, timestamp, d.ManifestID), body); err != nil {
			return stats, err
		}
	}

	link, err := a.CS.SecureLink(ctx, productID, fmt.Sprintf("/%s/%s/", usedPlatform, timestamp), 1, nil)
	if err != nil {
		return stats, err
	}
	outPath := a.Tree.V1DepotPath(productID, usedPlatform, timestamp)
	stats.Downloaded++
	return stats, a.downloadV1Blob(ctx, link+"main.bin", outPath)
}
