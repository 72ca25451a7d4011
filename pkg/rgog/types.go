// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

// OS codes used in BuildMetadata records.
const (
	OSWindows uint8 = 0
	OSOSX     uint8 = 1
	OSLinux   uint8 = 2
)

// OSCode maps a platform string as used elsewhere in this module to its
// RGOG wire code. Unknown platforms map to OSWindows.
func OSCode(platform string) uint8 {
	switch platform {
	case "osx", "mac":
		return OSOSX
	case "linux":
		return OSLinux
	default:
		return OSWindows
	}
}

// ManifestInput is one depot manifest contributing to a BuildInput,
// named by the raw bytes that hash to its depot_id and the ordered set
// of content-addressed chunks it references.
type ManifestInput struct {
	// Bytes is the manifest exactly as mirrored under v2/meta/
	// (zlib-wrapped); its MD5 becomes the record's depot_id, matching
	// the hash the mirror used to name the file.
	Bytes []byte
	// Languages is the depot's language list, encoded into the
	// record's 128-bit bitset.
	Languages []string
	// Chunks is every chunk this depot references, in manifest order;
	// duplicates across manifests of the same build are coalesced by
	// the packer.
	Chunks []ChunkSource
}

// ChunkSource names a chunk by its compressed MD5 and supplies its raw
// compressed bytes.
type ChunkSource struct {
	CompressedMD5 string
	Bytes         []byte
}

// BuildInput is one build's worth of material to fold into an RGOG
// archive.
type BuildInput struct {
	BuildID uint64
	OS      uint8
	// ProductID is the numeric product id this build belongs to.
	ProductID uint64
	// RepositoryBytes is the raw repository.json (V1) or depot
	// descriptor JSON (V2) for this build; its MD5 becomes the
	// record's repository_id.
	RepositoryBytes []byte
	Manifests       []ManifestInput
}

// ProductInput names a product appearing in one or more BuildInputs.
type ProductInput struct {
	ProductID uint64
	Name      string
}

// Options configures a Pack run.
type Options struct {
	// MaxPartBytes bounds each part's total size; when adding the next
	// chunk would exceed it, the packer closes the current part and
	// opens a new one. Zero selects the default of 2 GiB.
	MaxPartBytes int64
	// Type distinguishes a base archive from a patch archive; it is
	// recorded in the header but otherwise does not affect packing.
	Type ArchiveType
}

const defaultMaxPartBytes = 2 << 30

func (o Options) maxPartBytes() int64 {
	if o.MaxPartBytes > 0 {
		return o.MaxPartBytes
	}
	return defaultMaxPartBytes
}

func (o Options) archiveType() ArchiveType {
	if o.Type == 0 {
		return ArchiveBase
	}
	return o.Type
}

// perChunkOverhead is the ChunkMetadata record cost counted against a
// part's byte budget, in addition to the chunk's own payload size.
const perChunkOverhead = int64(chunkRecordSize)
