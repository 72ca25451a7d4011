// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest parses V1 and V2 build manifests into a common model,
// computes diffs between manifest generations, and resolves patch
// availability.
package manifest

// Generation distinguishes the two coexisting manifest formats.
type Generation int

const (
	GenV1 Generation = 1
	GenV2 Generation = 2
)

// FileEntry is one file in a manifest, generation-agnostic once parsed.
type FileEntry struct {
	Path string
	Size int64
	MD5  string

	// V1 only: byte offset into main.bin. Zero-size entries are
	// directories and carry no meaningful offset.
	Offset int64

	// V2 only: ordered content-addressed chunks. Empty when the file is
	// SFC-backed (see SFCRef) or is a V1 entry.
	Chunks []Chunk

	// V2 only: set when this file's bytes live inside the small-files
	// container instead of owning chunks directly.
	SFCRef *SFCRef
}

// Chunk is one V2 content-addressed block reference within a file's chunk
// list.
type Chunk struct {
	CompressedMD5   string
	CompressedSize  int64
	UncompressedMD5 string
	UncompressedSize int64
}

// SFCRef locates a file's bytes within the small-files container stream.
type SFCRef struct {
	Offset int64
	Size   int64
}

// PatchEntry is a DepotDiff: the chunk list that, downloaded in order and
// concatenated, is an xdelta3 delta transforming SourcePath's bytes into
// TargetPath's bytes.
type PatchEntry struct {
	SourcePath string
	TargetPath string
	MD5Source  string
	MD5Target  string
	MD5        string
	Chunks     []Chunk
}

// Manifest is the generation-agnostic parsed result of one (generation,
// depot) manifest.
type Manifest struct {
	Generation Generation
	BuildID    string
	ProductID  string
	Languages  []string
	Bitness    string

	Files   []FileEntry
	Patches []PatchEntry

	// SFC holds the small-files container's own chunk list, when the
	// manifest declares one. Files with a non-nil SFCRef index into the
	// byte stream produced by concatenating these chunks' decompressed
	// bytes.
	SFC []Chunk
}

// DepotDescriptor names one depot within a V1 repository or V2 depot
// descriptor response.
type DepotDescriptor struct {
	Languages  []string
	Bitness    string
	ProductIDs []string
	ManifestID string
	// Offline depots carry metadata but their chunks are never
	// downloadable; they must be skipped during archiving but preserved
	// in BuildMetadata.
	Offline bool
}

// Matches reports whether a depot satisfies a filter request. An empty
// field in the request (nil slice / empty string) is unconstrained; a
// wildcard "*" in the depot field always matches.
func (d DepotDescriptor) Matches(language, bitness string, productIDs []string) bool {
	if language != "" && !matchesAny(d.Languages, language) {
		return false
	}
	if bitness != "" && d.Bitness != "*" && d.Bitness != bitness {
		return false
	}
	if len(productIDs) > 0 && !intersects(d.ProductIDs, productIDs) {
		return false
	}
	return true
}

func matchesAny(field []string, want string) bool {
	for _, v := range field {
		if v == "*" || v == want {
			return true
		}
	}
	return false
}

func intersects(field, want []string) bool {
	for _, f := range field {
		if f == "*" {
			return true
		}
		for _, w := range want {
			if f == w {
				return true
			}
		}
	}
	return false
}
