// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/pkg/errors"
)

// buildPlan is one build's fully resolved packing material: metadata
// record plus the raw BuildFiles bytes it indexes into, and its
// deduplicated, MD5-sorted chunk list.
type buildPlan struct {
	record  buildRecord
	files   []byte
	chunks  []ChunkSource
}

// planBuild lays out one build's BuildFiles bytes (repository bytes
// followed by each manifest's bytes, in the given order) and dedupes
// its chunks by compressed MD5, sorted lexicographically.
func planBuild(b BuildInput) buildPlan {
	var p buildPlan
	repoID := md5.Sum(b.RepositoryBytes)
	p.record = buildRecord{
		BuildID:      b.BuildID,
		OS:           b.OS,
		RepositoryID: repoID,
		RepoOffset:   0,
		RepoSize:     uint64(len(b.RepositoryBytes)),
	}
	p.files = append(p.files, b.RepositoryBytes...)

	seen := make(map[string]ChunkSource)
	var order []string
	for _, mIn := range b.Manifests {
		depotID := md5.Sum(mIn.Bytes)
		lo, hi := manifest.EncodeLanguages(mIn.Languages)
		p.record.Manifests = append(p.record.Manifests, manifestRecord{
			DepotID: depotID,
			Offset:  uint64(len(p.files)),
			Size:    uint64(len(mIn.Bytes)),
			LangLo:  lo,
			LangHi:  hi,
		})
		p.files = append(p.files, mIn.Bytes...)
		for _, c := range mIn.Chunks {
			if _, ok := seen[c.CompressedMD5]; ok {
				continue
			}
			seen[c.CompressedMD5] = c
			order = append(order, c.CompressedMD5)
		}
	}
	sort.Strings(order)
	for _, md5hex := range order {
		p.chunks = append(p.chunks, seen[md5hex])
	}
	return p
}

// partPlan is the fully resolved content of one output part.
type partPlan struct {
	products    []ProductInput // part 0 only
	builds      []buildPlan    // part 0 only
	chunks      []ChunkSource
}

// Pack lays out products, builds, and their chunks into one or more
// deterministic RGOG parts, written under outDir as "<stem>_N.rgog"
// (1-indexed), and returns the written paths in order. Two packs of
// the same input always produce byte-identical files.
func Pack(ctx context.Context, outDir, stem string, products []ProductInput, builds []BuildInput, opts Options) ([]string, error) {
	sortedProducts := append([]ProductInput(nil), products...)
	sort.Slice(sortedProducts, func(i, j int) bool { return sortedProducts[i].ProductID < sortedProducts[j].ProductID })

	sortedBuilds := append([]BuildInput(nil), builds...)
	sort.Slice(sortedBuilds, func(i, j int) bool { return sortedBuilds[i].BuildID < sortedBuilds[j].BuildID })

	var plans []buildPlan
	for _, b := range sortedBuilds {
		plans = append(plans, planBuild(b))
	}

	productMetaSize := int64(0)
	for _, p := range sortedProducts {
		productMetaSize += int64(len(productRecord{ProductID: p.ProductID, Name: p.Name}.marshal()))
	}
	buildMetaSize := int64(0)
	buildFilesSize := int64(0)
	for _, p := range plans {
		buildMetaSize += int64(len(p.record.marshal()))
		buildFilesSize += int64(len(p.files))
	}

	fixedOverhead := int64(HeaderSize) + productMetaSize + buildMetaSize + buildFilesSize
	maxPart := opts.maxPartBytes()

	var parts []partPlan
	cur := partPlan{products: sortedProducts, builds: plans}
	budget := fixedOverhead
	for _, p := range plans {
		for _, c := range p.chunks {
			cost := perChunkOverhead + int64(len(c.Bytes))
			if len(cur.chunks) > 0 && budget+cost > maxPart {
				parts = append(parts, cur)
				cur = partPlan{}
				budget = int64(HeaderSize)
			}
			cur.chunks = append(cur.chunks, c)
			budget += cost
		}
	}
	parts = append(parts, cur)

	totalParts := uint32(len(parts))
	totalChunks := uint32(0)
	for _, p := range parts {
		totalChunks += uint32(len(p.chunks))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	var paths []string
	for i, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%d.rgog", stem, i+1))
		if err := writePart(path, i, totalParts, uint16(len(sortedBuilds)), totalChunks, p, opts); err != nil {
			return nil, errors.Wrapf(err, "writing part %d", i+1)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePart(path string, partNumber int, totalParts uint32, totalBuilds uint16, totalChunks uint32, p partPlan, opts Options) error {
	var productMeta, buildMeta, buildFiles, chunkMeta, chunkFiles []byte

	for _, prod := range p.products {
		productMeta = append(productMeta, productRecord{ProductID: prod.ProductID, Name: prod.Name}.marshal()...)
	}

	for _, b := range p.builds {
		rec := b.record
		baseOffset := uint64(len(buildFiles))
		rec.RepoOffset += baseOffset
		for i := range rec.Manifests {
			rec.Manifests[i].Offset += baseOffset
		}
		buildMeta = append(buildMeta, rec.marshal()...)
		buildFiles = append(buildFiles, b.files...)
	}

	for _, c := range p.chunks {
		id, err := md5ToBytes(c.CompressedMD5)
		if err != nil {
			return err
		}
		chunkMeta = append(chunkMeta, chunkRecord{
			CompressedMD5: id,
			Offset:        uint64(len(chunkFiles)),
			Size:          uint64(len(c.Bytes)),
		}.marshal()...)
		chunkFiles = append(chunkFiles, c.Bytes...)
	}

	h := &Header{
		Version:     FormatVersion,
		ArchiveType: opts.archiveType(),
		PartNumber:  uint32(partNumber),
		TotalParts:  totalParts,
		TotalBuilds: totalBuilds,
		TotalChunks: totalChunks,
		LocalChunks: uint32(len(p.chunks)),
	}

	var body []byte
	offset := int64(HeaderSize)

	place := func(data []byte) section {
		aligned := align64(offset)
		pad := aligned - offset
		body = append(body, make([]byte, pad)...)
		offset = aligned
		s := section{Offset: uint64(offset), Size: uint64(len(data))}
		body = append(body, data...)
		offset += int64(len(data))
		return s
	}

	h.ProductMeta = place(productMeta)
	h.BuildMeta = place(buildMeta)
	h.BuildFiles = place(buildFiles)
	h.ChunkMeta = place(chunkMeta)
	h.ChunkFiles = place(chunkFiles)

	out := append(h.marshal(), body...)
	return os.WriteFile(path, out, 0o644)
}
