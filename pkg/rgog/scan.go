// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/pkg/errors"
)

// Scan walks a MirrorTree's v2/meta/ directory (V2 only, per the packer's
// scope) and resolves every build descriptor it finds into Pack inputs:
// one BuildInput per build_id, its depot manifests in repository-declared
// order, and every chunk each manifest references, read raw from
// v2/store/ and deduplicated per depot. Offline-depot chunks are skipped
// (preserved in metadata, never collected), matching ArchiveBuild's own
// rule. A file that fails to decompress, parse, or resolve is recorded as
// a warning and excluded rather than aborting the whole scan, per the
// packer's "missing chunks produce warnings but never silent omissions"
// rule in spec.
func Scan(tree *mirror.Tree) (products []ProductInput, builds []BuildInput, warnings []string, err error) {
	type repoFile struct {
		repo manifest.V2Repository
		raw  []byte
	}
	var repos []repoFile

	walkErr := tree.WalkV2Meta(func(path string) error {
		raw, err := tree.ReadBytes(path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		plain, err := mirror.DecompressMeta(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if !manifest.IsV2Repository(plain) {
			return nil // depot manifest document; the packer's scan step ignores these
		}
		repo, err := manifest.ParseV2Repository(plain)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		repos = append(repos, repoFile{repo: *repo, raw: raw})
		return nil
	})
	if walkErr != nil {
		return nil, nil, nil, errors.Wrap(walkErr, "scanning v2/meta")
	}

	seenProducts := make(map[uint64]bool)
	for _, rf := range repos {
		b := BuildInput{
			BuildID:         rf.repo.BuildID,
			OS:              OSCode(rf.repo.Platform),
			ProductID:       rf.repo.ProductID,
			RepositoryBytes: rf.raw,
		}
		for _, d := range rf.repo.Depots {
			mi, w := scanDepotManifest(tree, rf.repo.ProductID, d)
			warnings = append(warnings, w...)
			if mi == nil {
				continue
			}
			b.Manifests = append(b.Manifests, *mi)
		}
		builds = append(builds, b)
		seenProducts[rf.repo.ProductID] = true
	}

	for id := range seenProducts {
		products = append(products, ProductInput{ProductID: id, Name: strconv.FormatUint(id, 10)})
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })
	sort.Slice(builds, func(i, j int) bool { return builds[i].BuildID < builds[j].BuildID })
	return products, builds, warnings, nil
}

// scanDepotManifest resolves one depot's manifest document and, unless the
// depot is offline, every chunk it (or its small-files container)
// references. It returns nil with no warning if the depot names no
// manifest at all (a malformed descriptor entry).
func scanDepotManifest(tree *mirror.Tree, productID uint64, d manifest.DepotDescriptor) (*ManifestInput, []string) {
	if d.ManifestID == "" {
		return nil, nil
	}
	var warnings []string
	raw, err := tree.ReadBytes(tree.V2MetaPath(d.ManifestID))
	if err != nil {
		return nil, []string{fmt.Sprintf("manifest %s: %v", d.ManifestID, err)}
	}
	plain, err := mirror.DecompressMeta(raw)
	if err != nil {
		return nil, []string{fmt.Sprintf("manifest %s: %v", d.ManifestID, err)}
	}
	m, err := manifest.ParseV2(plain)
	if err != nil {
		return nil, []string{fmt.Sprintf("manifest %s: %v", d.ManifestID, err)}
	}
	mi := &ManifestInput{Bytes: raw, Languages: d.Languages}
	if d.Offline {
		return mi, nil
	}
	seen := make(map[string]bool)
	addChunk := func(c manifest.Chunk) {
		if seen[c.CompressedMD5] {
			return
		}
		seen[c.CompressedMD5] = true
		path := tree.V2StorePath(strconv.FormatUint(productID, 10), c.CompressedMD5)
		body, err := tree.ReadBytes(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk %s: %v", c.CompressedMD5, err))
			return
		}
		mi.Chunks = append(mi.Chunks, ChunkSource{CompressedMD5: c.CompressedMD5, Bytes: body})
	}
	for _, c := range m.SFC {
		addChunk(c)
	}
	for _, f := range m.Files {
		if f.SFCRef != nil {
			continue
		}
		for _, c := range f.Chunks {
			addChunk(c)
		}
	}
	sort.Slice(mi.Chunks, func(i, j int) bool { return mi.Chunks[i].CompressedMD5 < mi.Chunks[j].CompressedMD5 })
	return mi, warnings
}
