// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// v1Repository mirrors the wire shape of a V1 repository.json.
type v1Repository struct {
	Depots []v1DepotRef `json:"depots"`
}

type v1DepotRef struct {
	Languages  []string `json:"languages"`
	Bitness    string    `json:"bitness"`
	ManifestID string    `json:"manifest"`
}

type v1ManifestWire struct {
	Depot struct {
		Files []v1FileWire `json:"files"`
	} `json:"depot"`
}

type v1FileWire struct {
	Path   string `json:"path"`
	Offset *int64 `json:"offset"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
}

// ParseV1 parses a V1 manifest's decompressed JSON bytes. Only records
// with size > 0 and a present offset become file entries; zero-size
// records are directories and are dropped.
func ParseV1(body []byte, productID string) (*Manifest, error) {
	var wire v1ManifestWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.Wrap(err, "parsing v1 manifest")
	}
	m := &Manifest{Generation: GenV1, ProductID: productID}
	for _, f := range wire.Depot.Files {
		if f.Size <= 0 || f.Offset == nil {
			continue
		}
		m.Files = append(m.Files, FileEntry{
			Path:   normalizePath(f.Path),
			Size:   f.Size,
			MD5:    strings.ToLower(f.MD5),
			Offset: *f.Offset,
		})
	}
	return m, nil
}

// ParseV1Repository parses repository.json into depot descriptors.
func ParseV1Repository(body []byte) ([]DepotDescriptor, error) {
	var repo v1Repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return nil, errors.Wrap(err, "parsing v1 repository")
	}
	out := make([]DepotDescriptor, 0, len(repo.Depots))
	for _, d := range repo.Depots {
		out = append(out, DepotDescriptor{
			Languages:  d.Languages,
			Bitness:    d.Bitness,
			ManifestID: d.ManifestID,
		})
	}
	return out, nil
}

// v2DepotDescriptorWire mirrors v2/meta/aa/bb/<depot_hash>: the top-level
// build descriptor naming a product's depots for one build.
type v2DepotDescriptorWire struct {
	BuildID       json.Number        `json:"buildId"`
	BaseProductID json.Number        `json:"baseProductId"`
	Platform      string             `json:"platform"`
	Depots        []v2DepotManifestRef `json:"depots"`
}

type v2DepotManifestRef struct {
	ProductID string   `json:"productId"`
	Languages []string `json:"languages"`
	Manifest  string   `json:"manifest"`
	Offline   bool     `json:"offlineDepot"`
}

// ParseV2DepotDescriptor parses a V2 depot descriptor response.
func ParseV2DepotDescriptor(body []byte) ([]DepotDescriptor, error) {
	wire, err := parseV2DepotDescriptorWire(body)
	if err != nil {
		return nil, err
	}
	return depotDescriptorsFromWire(wire), nil
}

func parseV2DepotDescriptorWire(body []byte) (v2DepotDescriptorWire, error) {
	var wire v2DepotDescriptorWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return wire, errors.Wrap(err, "parsing v2 depot descriptor")
	}
	return wire, nil
}

func depotDescriptorsFromWire(wire v2DepotDescriptorWire) []DepotDescriptor {
	out := make([]DepotDescriptor, 0, len(wire.Depots))
	for _, d := range wire.Depots {
		out = append(out, DepotDescriptor{
			Languages:  d.Languages,
			ProductIDs: []string{d.ProductID},
			ManifestID: d.Manifest,
			Offline:    d.Offline,
		})
	}
	return out
}

// V2Repository is the fully parsed top-level build descriptor: the numeric
// build and product identity plus its depots, as consumed by the RGOG
// packer's scan step (it needs BuildMetadata's build_id/product_id, which
// ParseV2DepotDescriptor's caller-facing shape otherwise discards).
type V2Repository struct {
	BuildID   uint64
	ProductID uint64
	Platform  string
	Depots    []DepotDescriptor
}

// IsV2Repository reports whether decompressed meta bytes look like a
// top-level build descriptor (has "buildId" and "depots") as opposed to a
// per-depot manifest document (has "depot.items"). Parse failures and
// manifest documents both report false without error, since a scan walks
// every file under v2/meta/ and must silently skip non-repository ones.
func IsV2Repository(body []byte) bool {
	var probe struct {
		BuildID json.RawMessage `json:"buildId"`
		Depots  json.RawMessage `json:"depots"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.BuildID != nil && probe.Depots != nil
}

// ParseV2Repository parses a top-level build descriptor. Use IsV2Repository
// first to distinguish it from a per-depot manifest document.
func ParseV2Repository(body []byte) (*V2Repository, error) {
	wire, err := parseV2DepotDescriptorWire(body)
	if err != nil {
		return nil, err
	}
	buildID, err := wire.BuildID.Int64()
	if err != nil {
		return nil, errors.Wrap(err, "parsing buildId")
	}
	productID, err := wire.BaseProductID.Int64()
	if err != nil {
		return nil, errors.Wrap(err, "parsing baseProductId")
	}
	return &V2Repository{
		BuildID:   uint64(buildID),
		ProductID: uint64(productID),
		Platform:  wire.Platform,
		Depots:    depotDescriptorsFromWire(wire),
	}, nil
}

// v2ManifestWire mirrors a V2 depot manifest document.
type v2ManifestWire struct {
	BuildID             string        `json:"buildId"`
	ProductID           string        `json:"productId"`
	Depot               v2DepotWire   `json:"depot"`
	SmallFilesContainer *v2ChunksWire `json:"smallFilesContainer"`
}

type v2DepotWire struct {
	Items []v2ItemWire `json:"items"`
}

type v2ItemWire struct {
	Type   string        `json:"type"`
	Path   string        `json:"path"`
	MD5    string        `json:"md5"`
	Chunks []v2ChunkWire `json:"chunks"`
	SFCRef *struct {
		Offset int64 `json:"offset"`
		Size   int64 `json:"size"`
	} `json:"sfcRef"`
	// DepotDiff fields.
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
	MD5Source  string `json:"md5Source"`
	MD5Target  string `json:"md5Target"`
}

type v2ChunksWire struct {
	Chunks []v2ChunkWire `json:"chunks"`
}

type v2ChunkWire struct {
	CompressedMD5    string `json:"compressedMd5"`
	CompressedSize   int64  `json:"compressedSize"`
	UncompressedMD5  string `json:"md5"`
	UncompressedSize int64  `json:"size"`
}

func convertChunks(wire []v2ChunkWire) []Chunk {
	out := make([]Chunk, 0, len(wire))
	for _, c := range wire {
		out = append(out, Chunk{
			CompressedMD5:    strings.ToLower(c.CompressedMD5),
			CompressedSize:   c.CompressedSize,
			UncompressedMD5:  strings.ToLower(c.UncompressedMD5),
			UncompressedSize: c.UncompressedSize,
		})
	}
	return out
}

// ParseV2 parses a V2 depot manifest's decompressed JSON bytes.
func ParseV2(body []byte) (*Manifest, error) {
	var wire v2ManifestWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.Wrap(err, "parsing v2 manifest")
	}
	m := &Manifest{Generation: GenV2, BuildID: wire.BuildID, ProductID: wire.ProductID}
	if wire.SmallFilesContainer != nil {
		m.SFC = convertChunks(wire.SmallFilesContainer.Chunks)
	}
	for _, item := range wire.Depot.Items {
		switch item.Type {
		case "DepotFile":
			fe := FileEntry{
				Path: normalizePath(item.Path),
				MD5:  strings.ToLower(item.MD5),
			}
			if item.SFCRef != nil {
				fe.SFCRef = &SFCRef{Offset: item.SFCRef.Offset, Size: item.SFCRef.Size}
			} else {
				fe.Chunks = convertChunks(item.Chunks)
				if len(fe.Chunks) == 1 {
					fe.Size = fe.Chunks[0].UncompressedSize
					if fe.MD5 == "" {
						fe.MD5 = fe.Chunks[0].UncompressedMD5
					}
				} else {
					for _, c := range fe.Chunks {
						fe.Size += c.UncompressedSize
					}
				}
			}
			m.Files = append(m.Files, fe)
		case "DepotDiff":
			m.Patches = append(m.Patches, PatchEntry{
				SourcePath: normalizePath(item.SourcePath),
				TargetPath: normalizePath(item.TargetPath),
				MD5Source:  strings.ToLower(item.MD5Source),
				MD5Target:  strings.ToLower(item.MD5Target),
				MD5:        strings.ToLower(item.MD5),
				Chunks:     convertChunks(item.Chunks),
			})
		}
	}
	return m, nil
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimLeft(p, "/")
}
