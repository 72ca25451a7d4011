// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/galaxy-archive/galaxydl/pkg/mirror"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/klauspost/compress/zlib"
)

func md5hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestValidateV1_DetectsCorruption(t *testing.T) {
	tree := mirror.NewTree(memfs.New())
	repo := `{"depots":[{"manifest":"m1"}]}`
	tree.WriteBytes(tree.V1ManifestPath("p1", "windows", "100", "repository.json"), []byte(repo))

	good := []byte("hello")
	bad := []byte("world")
	offset0, offset1 := int64(0), int64(len(good))
	m1 := fmt.Sprintf(`{"depot":{"files":[
		{"path":"good.bin","offset":%d,"size":%d,"md5":"%s"},
		{"path":"bad.bin","offset":%d,"size":%d,"md5":"%s"}
	]}}`, offset0, len(good), md5hex(good), offset1, len(bad), md5hex([]byte("wrong content")))
	tree.WriteBytes(tree.V1ManifestPath("p1", "windows", "100", "m1"), []byte(m1))

	var blob bytes.Buffer
	blob.Write(good)
	blob.Write(bad)
	tree.WriteBytes(tree.V1DepotPath("p1", "windows", "100"), blob.Bytes())

	report, err := ValidateV1(tree, "p1", "windows", "100", SampleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 passed, 1 failed", report)
	}
}

func TestValidateV2_DetectsAllFailureModes(t *testing.T) {
	tree := mirror.NewTree(memfs.New())

	plain := []byte("chunk payload")
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(plain)
	w.Close()
	compressed := buf.Bytes()
	goodChunk := manifest.Chunk{
		CompressedMD5:    md5hex(compressed),
		CompressedSize:   int64(len(compressed)),
		UncompressedMD5:  md5hex(plain),
		UncompressedSize: int64(len(plain)),
	}
	tree.WriteBytes(tree.V2StorePath("p1", goodChunk.CompressedMD5), compressed)

	badChunk := manifest.Chunk{
		CompressedMD5:    "deadbeefdeadbeefdeadbeefdeadbeef",
		CompressedSize:   10,
		UncompressedMD5:  "irrelevant0000000000000000000000",
		UncompressedSize: 20,
	}
	tree.WriteBytes(tree.V2StorePath("p1", badChunk.CompressedMD5), []byte("wrong-length"))

	m := &manifest.Manifest{Files: []manifest.FileEntry{{Chunks: []manifest.Chunk{goodChunk, badChunk}}}}
	report := ValidateV2(tree, "p1", []*manifest.Manifest{m}, SampleOptions{})
	if report.Passed != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 1 passed, 1 failed", report)
	}
}

func TestSampleOptions_FullCoverageByDefault(t *testing.T) {
	idx := SampleOptions{}.sample(10)
	if len(idx) != 10 {
		t.Errorf("got %d indices, want 10 (no sampling)", len(idx))
	}
}

func TestSampleOptions_RateSubsamples(t *testing.T) {
	idx := SampleOptions{Seed: 42, Rate: 0.3}.sample(10)
	if len(idx) != 3 {
		t.Errorf("got %d indices, want 3", len(idx))
	}
	idx2 := SampleOptions{Seed: 42, Rate: 0.3}.sample(10)
	if len(idx) != len(idx2) {
		t.Fatal("expected deterministic sample size")
	}
	for i := range idx {
		if idx[i] != idx2[i] {
			t.Errorf("same seed should produce same sample, got %v vs %v", idx, idx2)
			break
		}
	}
}
