// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import "github.com/galaxy-archive/galaxydl/pkg/manifest"

// DepotSize holds one depot's compressed/uncompressed byte totals.
type DepotSize struct {
	ManifestID         string
	CompressedBytes     int64
	UncompressedBytes   int64
	ChunkCount          int
}

// SizeReport aggregates per-depot totals for a build, reproducing the
// original tool's size-auditing feature.
type SizeReport struct {
	Depots                []DepotSize
	TotalCompressedBytes   int64
	TotalUncompressedBytes int64
	TotalChunks            int
}

// ComputeSizeReport walks each of a build's parsed depot manifests and
// tallies compressed/uncompressed byte totals, deduplicating chunks by
// compressed MD5 within each depot (matching the archiver's own dedup
// unit).
func ComputeSizeReport(depotManifestIDs []string, manifests []*manifest.Manifest) SizeReport {
	var report SizeReport
	for i, m := range manifests {
		seen := make(map[string]bool)
		var d DepotSize
		if i < len(depotManifestIDs) {
			d.ManifestID = depotManifestIDs[i]
		}
		tally := func(c manifest.Chunk) {
			if seen[c.CompressedMD5] {
				return
			}
			seen[c.CompressedMD5] = true
			d.CompressedBytes += c.CompressedSize
			d.UncompressedBytes += c.UncompressedSize
			d.ChunkCount++
		}
		for _, c := range m.SFC {
			tally(c)
		}
		for _, f := range m.Files {
			for _, c := range f.Chunks {
				tally(c)
			}
		}
		report.Depots = append(report.Depots, d)
		report.TotalCompressedBytes += d.CompressedBytes
		report.TotalUncompressedBytes += d.UncompressedBytes
		report.TotalChunks += d.ChunkCount
	}
	return report
}
