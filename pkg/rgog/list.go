// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"context"
	"encoding/hex"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/pkg/errors"
)

// ManifestDetail is one depot manifest's listing detail within a build.
type ManifestDetail struct {
	DepotID   string
	Size      uint64
	Languages []string
}

// BuildDetail is one build's full listing detail, as shown by the
// `list --detailed` command.
type BuildDetail struct {
	BuildID        uint64
	OS             uint8
	RepositoryID   string
	RepositorySize uint64
	Manifests      []ManifestDetail
}

// List reads part 0's build metadata and returns one BuildDetail per
// build. When filterBuildID is non-nil, only the matching build is
// returned (an empty, non-error result if no build carries that id).
func List(ctx context.Context, anyPartPath string, filterBuildID *uint64) ([]BuildDetail, error) {
	dir, stem, err := partStem(anyPartPath)
	if err != nil {
		return nil, err
	}
	part0 := partPath(dir, stem, 1)

	h0, err := readHeader(part0)
	if err != nil {
		return nil, errors.Wrap(err, "reading part 0 header")
	}
	buildData, err := readSection(part0, h0.BuildMeta)
	if err != nil {
		return nil, err
	}
	builds, err := parseBuildRecords(buildData, h0.TotalBuilds)
	if err != nil {
		return nil, errors.Wrap(err, "parsing build metadata")
	}

	var out []BuildDetail
	for _, b := range builds {
		if filterBuildID != nil && b.BuildID != *filterBuildID {
			continue
		}
		d := BuildDetail{
			BuildID:        b.BuildID,
			OS:             b.OS,
			RepositoryID:   hex.EncodeToString(b.RepositoryID[:]),
			RepositorySize: b.RepoSize,
		}
		for _, m := range b.Manifests {
			d.Manifests = append(d.Manifests, ManifestDetail{
				DepotID:   hex.EncodeToString(m.DepotID[:]),
				Size:      m.Size,
				Languages: manifest.DecodeLanguages(m.LangLo, m.LangHi),
			})
		}
		out = append(out, d)
	}
	return out, nil
}

// OSName renders an RGOG OS code the way the list/info commands do.
func OSName(os uint8) string {
	switch os {
	case OSOSX:
		return "Mac"
	case OSLinux:
		return "Linux"
	default:
		return "Windows"
	}
}
