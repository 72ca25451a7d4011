// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import "strings"

// ManifestDiff is the result of comparing a new manifest against an older
// one: which files are brand new, which changed (no patch available),
// which can be patched, and which were deleted.
type ManifestDiff struct {
	New     []FileEntry
	Changed []FileEntry
	Patched []FileEntry
	Deleted []FileEntry
}

// Diff compares newManifest against oldManifest (which may be nil, meaning
// no prior state: everything is New).
func Diff(newManifest, oldManifest *Manifest) ManifestDiff {
	var d ManifestDiff
	if oldManifest == nil {
		d.New = append(d.New, newManifest.Files...)
		return d
	}

	oldByPath := make(map[string]FileEntry, len(oldManifest.Files))
	for _, f := range oldManifest.Files {
		oldByPath[strings.ToLower(f.Path)] = f
	}
	newByPath := make(map[string]bool, len(newManifest.Files))

	patchByOldHash := make(map[string]PatchEntry)
	for _, p := range newManifest.Patches {
		if p.MD5Source != "" {
			patchByOldHash[p.MD5Source] = p
		}
	}

	crossGen := newManifest.Generation != oldManifest.Generation

	for _, nf := range newManifest.Files {
		key := strings.ToLower(nf.Path)
		newByPath[key] = true
		of, ok := oldByPath[key]
		if !ok {
			d.New = append(d.New, nf)
			continue
		}
		if crossGen {
			d.Changed = append(d.Changed, nf)
			continue
		}
		oldHash, oldOK := fileHash(of)
		newHash, newOK := fileHash(nf)
		if oldOK && newOK && oldHash == newHash {
			continue
		}
		if oldOK {
			if _, ok := patchByOldHash[oldHash]; ok {
				d.Patched = append(d.Patched, nf)
				continue
			}
		}
		d.Changed = append(d.Changed, nf)
	}

	for _, of := range oldManifest.Files {
		if !newByPath[strings.ToLower(of.Path)] {
			d.Deleted = append(d.Deleted, of)
		}
	}

	return d
}

// fileHash resolves a file's identity hash by availability precedence:
// md5, sha256 (carried in MD5 field slot is not applicable; V2 uses md5
// exclusively in this model), single-chunk uncompressed hash, then the
// full ordered chunk list joined into one string.
func fileHash(f FileEntry) (string, bool) {
	if f.MD5 != "" {
		return f.MD5, true
	}
	if len(f.Chunks) == 1 && f.Chunks[0].UncompressedMD5 != "" {
		return f.Chunks[0].UncompressedMD5, true
	}
	if len(f.Chunks) > 0 {
		var sb strings.Builder
		for _, c := range f.Chunks {
			sb.WriteString(c.CompressedMD5)
			sb.WriteByte(',')
		}
		return sb.String(), true
	}
	return "", false
}
