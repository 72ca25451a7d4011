// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"
)

// BuildSummary is one build's info-command summary.
type BuildSummary struct {
	BuildID       uint64
	OS            uint8
	RepositoryID  string
	ManifestCount int
}

// ArchiveInfo is the aggregate result of the rgog info command.
type ArchiveInfo struct {
	Products        []ProductInput
	TotalParts      uint32
	TotalBuilds     uint16
	TotalChunks     uint32
	TotalChunkBytes int64
	Builds          []BuildSummary
}

// Info reads part 0's metadata sections and, when withChunkStats is
// true, every part's ChunkMetadata section to total the archive's
// chunk payload bytes. Per-build chunk attribution is not available
// from the header alone (ChunkMetadata carries no depot linkage); a
// caller needing that breakdown should use Unpack's manifest re-parse
// path instead.
func Info(ctx context.Context, anyPartPath string, withChunkStats bool) (ArchiveInfo, error) {
	var info ArchiveInfo

	dir, stem, err := partStem(anyPartPath)
	if err != nil {
		return info, err
	}
	part0 := partPath(dir, stem, 1)

	h0, err := readHeader(part0)
	if err != nil {
		return info, errors.Wrap(err, "reading part 0 header")
	}
	info.TotalParts = h0.TotalParts
	info.TotalBuilds = h0.TotalBuilds
	info.TotalChunks = h0.TotalChunks

	productData, err := readSection(part0, h0.ProductMeta)
	if err != nil {
		return info, err
	}
	products, err := parseProductRecords(productData)
	if err != nil {
		return info, errors.Wrap(err, "parsing product metadata")
	}
	for _, p := range products {
		info.Products = append(info.Products, ProductInput{ProductID: p.ProductID, Name: p.Name})
	}

	buildData, err := readSection(part0, h0.BuildMeta)
	if err != nil {
		return info, err
	}
	builds, err := parseBuildRecords(buildData, h0.TotalBuilds)
	if err != nil {
		return info, err
	}
	for _, b := range builds {
		info.Builds = append(info.Builds, BuildSummary{
			BuildID:       b.BuildID,
			OS:            b.OS,
			RepositoryID:  hex.EncodeToString(b.RepositoryID[:]),
			ManifestCount: len(b.Manifests),
		})
	}

	if !withChunkStats {
		return info, nil
	}

	for partNum := uint32(1); partNum <= h0.TotalParts; partNum++ {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		path := partPath(dir, stem, int(partNum))
		h, err := readHeader(path)
		if err != nil {
			return info, errors.Wrapf(err, "reading header of part %d", partNum)
		}
		chunkMetaData, err := readSection(path, h.ChunkMeta)
		if err != nil {
			return info, err
		}
		for _, c := range parseChunkRecords(chunkMetaData) {
			info.TotalChunkBytes += int64(c.Size)
		}
	}

	return info, nil
}
