// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package validator samples a MirrorTree's on-disk content and verifies
// it against its manifests, for both build generations. It never stops at
// the first failure: every sampled entry is checked and reported.
package validator

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// EntryResult is one sampled entry's pass/fail outcome.
type EntryResult struct {
	Path  string
	OK    bool
	Error string
}

// Report aggregates a validation run's per-entry results.
type Report struct {
	Entries []EntryResult
	Passed  int
	Failed  int
}

func (r *Report) record(path string, err error) {
	res := EntryResult{Path: path, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
		r.Failed++
	} else {
		r.Passed++
	}
	r.Entries = append(r.Entries, res)
}

// SampleOptions controls deterministic sampling of a large validation
// target, reproducing the original tool's --sample-seed/--sample-rate
// knobs.
type SampleOptions struct {
	Seed int64
	// Rate is the fraction (0, 1] of entries to sample. 1 (or <= 0)
	// means validate everything.
	Rate float64
}

func (o SampleOptions) sample(n int) []int {
	if o.Rate <= 0 || o.Rate >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	want := int(float64(n) * o.Rate)
	if want < 1 {
		want = 1
	}
	r := rand.New(rand.NewSource(o.Seed))
	perm := r.Perm(n)
	idx := perm[:want]
	sort.Ints(idx)
	return idx
}

// v1Entry is a flattened V1 file used for offset-sorted sequential I/O.
type v1Entry struct {
	path   string
	offset int64
	size   int64
	md5    string
}

// ValidateV1 loads repository.json and every referenced manifest, builds
// a (path, offset, size, hash) file list, optionally samples it, sorts by
// offset for sequential disk I/O, and streams main.bin once, comparing
// each entry's MD5.
func ValidateV1(tree *mirror.Tree, productID, platform, timestamp string, opts SampleOptions) (Report, error) {
	var report Report

	repoBody, err := tree.ReadBytes(tree.V1ManifestPath(productID, platform, timestamp, "repository.json"))
	if err != nil {
		return report, errors.Wrap(err, "reading repository.json")
	}
	depots, err := manifest.ParseV1Repository(repoBody)
	if err != nil {
		return report, err
	}

	var entries []v1Entry
	for _, d := range depots {
		body, err := tree.ReadBytes(tree.V1ManifestPath(productID, platform, timestamp, d.ManifestID))
		if err != nil {
			return report, errors.Wrapf(err, "reading manifest %s", d.ManifestID)
		}
		m, err := manifest.ParseV1(body, productID)
		if err != nil {
			return report, err
		}
		for _, f := range m.Files {
			entries = append(entries, v1Entry{f.Path, f.Offset, f.Size, f.MD5})
		}
	}

	idx := opts.sample(len(entries))
	sampled := make([]v1Entry, len(idx))
	for i, j := range idx {
		sampled[i] = entries[j]
	}
	sort.Slice(sampled, func(i, j int) bool { return sampled[i].offset < sampled[j].offset })

	blob, err := tree.Reader(tree.V1DepotPath(productID, platform, timestamp))
	if err != nil {
		return report, errors.Wrap(err, "opening main.bin")
	}
	defer blob.Close()

	seeker, ok := blob.(io.ReadSeeker)
	if !ok {
		return report, errors.New("main.bin reader does not support seeking")
	}
	for _, e := range sampled {
		err := validateV1Entry(seeker, e)
		report.record(e.path, err)
	}
	return report, nil
}

func validateV1Entry(r io.ReadSeeker, e v1Entry) error {
	if _, err := r.Seek(e.offset, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking to entry offset")
	}
	got, err := galaxypath.MD5Stream(io.LimitReader(r, e.size), e.size, nil)
	if err != nil {
		return err
	}
	if !galaxypath.EqualHash(got, e.md5) {
		return fmt.Errorf("md5 mismatch: got %s, want %s", got, e.md5)
	}
	return nil
}

// ValidateV2 enumerates all unique chunks across the given manifests,
// optionally samples them, and for each verifies length, compressed MD5,
// that it inflates, the inflated length, and the inflated MD5.
func ValidateV2(tree *mirror.Tree, productID string, manifests []*manifest.Manifest, opts SampleOptions) Report {
	var report Report

	seen := make(map[string]manifest.Chunk)
	var order []string
	add := func(c manifest.Chunk) {
		if _, ok := seen[c.CompressedMD5]; ok {
			return
		}
		seen[c.CompressedMD5] = c
		order = append(order, c.CompressedMD5)
	}
	for _, m := range manifests {
		for _, c := range m.SFC {
			add(c)
		}
		for _, f := range m.Files {
			for _, c := range f.Chunks {
				add(c)
			}
		}
	}

	idx := opts.sample(len(order))
	for _, i := range idx {
		hash := order[i]
		c := seen[hash]
		err := validateV2Chunk(tree, productID, c)
		report.record(hash, err)
	}
	return report
}

func validateV2Chunk(tree *mirror.Tree, productID string, c manifest.Chunk) error {
	body, err := tree.ReadBytes(tree.V2StorePath(productID, c.CompressedMD5))
	if err != nil {
		return err
	}
	if int64(len(body)) != c.CompressedSize {
		return fmt.Errorf("compressed size mismatch: got %d, want %d", len(body), c.CompressedSize)
	}
	gotMD5, err := galaxypath.MD5Stream(bytes.NewReader(body), int64(len(body)), nil)
	if err != nil {
		return err
	}
	if !galaxypath.EqualHash(gotMD5, c.CompressedMD5) {
		return fmt.Errorf("compressed md5 mismatch: got %s", gotMD5)
	}
	if c.CompressedSize == c.UncompressedSize {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "inflating chunk")
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return errors.Wrap(err, "reading inflated chunk")
	}
	if int64(len(plain)) != c.UncompressedSize {
		return fmt.Errorf("uncompressed size mismatch: got %d, want %d", len(plain), c.UncompressedSize)
	}
	gotPlainMD5, err := galaxypath.MD5Stream(bytes.NewReader(plain), int64(len(plain)), nil)
	if err != nil {
		return err
	}
	if !galaxypath.EqualHash(gotPlainMD5, c.UncompressedMD5) {
		return fmt.Errorf("uncompressed md5 mismatch: got %s", gotPlainMD5)
	}
	return nil
}
