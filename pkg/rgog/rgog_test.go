// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
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

func zlibCompress(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type v2ManifestFixture struct {
	BuildID   string `json:"buildId"`
	ProductID string `json:"productId"`
	Depot     struct {
		Items []struct {
			Type   string `json:"type"`
			Path   string `json:"path"`
			MD5    string `json:"md5"`
			Chunks []struct {
				CompressedMD5  string `json:"compressedMd5"`
				CompressedSize int64  `json:"compressedSize"`
				MD5            string `json:"md5"`
				Size           int64  `json:"size"`
			} `json:"chunks"`
		} `json:"items"`
	} `json:"depot"`
}

func buildFixture(t *testing.T, productID string, plain []byte) (manifestBytes, repoBytes []byte, chunk ChunkSource) {
	t.Helper()
	compressed := zlibCompress(t, plain)
	chunk = ChunkSource{CompressedMD5: md5hex(compressed), Bytes: compressed}

	var fixture v2ManifestFixture
	fixture.BuildID = "42"
	fixture.ProductID = productID
	fixture.Depot.Items = append(fixture.Depot.Items, struct {
		Type   string `json:"type"`
		Path   string `json:"path"`
		MD5    string `json:"md5"`
		Chunks []struct {
			CompressedMD5  string `json:"compressedMd5"`
			CompressedSize int64  `json:"compressedSize"`
			MD5            string `json:"md5"`
			Size           int64  `json:"size"`
		} `json:"chunks"`
	}{
		Type: "DepotFile",
		Path: "game.exe",
		MD5:  md5hex(plain),
	})
	fixture.Depot.Items[0].Chunks = append(fixture.Depot.Items[0].Chunks, struct {
		CompressedMD5  string `json:"compressedMd5"`
		CompressedSize int64  `json:"compressedSize"`
		MD5            string `json:"md5"`
		Size           int64  `json:"size"`
	}{
		CompressedMD5:  chunk.CompressedMD5,
		CompressedSize: int64(len(compressed)),
		MD5:            md5hex(plain),
		Size:           int64(len(plain)),
	})
	manifestBytes, err := json.Marshal(fixture)
	if err != nil {
		t.Fatal(err)
	}
	repoBytes = []byte(`{"depotManifests":[{"productId":"` + productID + `","languages":["en-US"],"manifest":"x"}]}`)
	return manifestBytes, repoBytes, chunk
}

func TestPack_EmptyBuildSetProducesOnePart(t *testing.T) {
	dir := t.TempDir()
	paths, err := Pack(context.Background(), dir, "archive", nil, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d parts, want 1", len(paths))
	}
	h, err := readHeader(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if h.TotalBuilds != 0 || h.TotalChunks != 0 || h.TotalParts != 1 {
		t.Errorf("header = %+v, want all-zero totals and 1 part", h)
	}
}

func TestPackVerifyUnpack_RoundTrip(t *testing.T) {
	manifestBytes, repoBytes, chunk := buildFixture(t, "100", []byte("hello world, this is the game binary"))

	build := BuildInput{
		BuildID:         42,
		OS:              OSWindows,
		ProductID:       100,
		RepositoryBytes: repoBytes,
		Manifests: []ManifestInput{
			{Bytes: manifestBytes, Languages: []string{"en-US"}, Chunks: []ChunkSource{chunk}},
		},
	}
	products := []ProductInput{{ProductID: 100, Name: "Test Game"}}

	dir := t.TempDir()
	paths, err := Pack(context.Background(), dir, "archive", products, []BuildInput{build}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d parts, want 1", len(paths))
	}

	report, err := Verify(context.Background(), paths[0], VerifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Errorf("verify report has %d failures: %+v", report.Failed, report.Checks)
	}
	if report.Passed == 0 {
		t.Error("expected at least one passing check")
	}

	fullReport, err := Verify(context.Background(), paths[0], VerifyOptions{Full: true})
	if err != nil {
		t.Fatal(err)
	}
	if fullReport.Failed != 0 {
		t.Errorf("full verify report has %d failures: %+v", fullReport.Failed, fullReport.Checks)
	}

	tree := mirror.NewTree(memfs.New())
	stats, err := Unpack(context.Background(), paths[0], tree, VerifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Builds != 1 || stats.Manifests != 1 || stats.Chunks != 1 {
		t.Errorf("stats = %+v, want 1/1/1", stats)
	}

	got, err := tree.ReadBytes(tree.V2StorePath("100", chunk.CompressedMD5))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, chunk.Bytes) {
		t.Error("restored chunk bytes do not match original")
	}
}

func TestPack_Deterministic(t *testing.T) {
	manifestBytes, repoBytes, chunk := buildFixture(t, "200", []byte("deterministic payload"))
	build := BuildInput{
		BuildID:         7,
		OS:              OSWindows,
		ProductID:       200,
		RepositoryBytes: repoBytes,
		Manifests: []ManifestInput{
			{Bytes: manifestBytes, Languages: []string{"en-US", "fr-FR"}, Chunks: []ChunkSource{chunk}},
		},
	}
	products := []ProductInput{{ProductID: 200, Name: "Another Game"}}

	dir1, dir2 := t.TempDir(), t.TempDir()
	p1, err := Pack(context.Background(), dir1, "a", products, []BuildInput{build}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Pack(context.Background(), dir2, "a", products, []BuildInput{build}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b1, err := os.ReadFile(p1[0])
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(p2[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b1, b2) {
		t.Error("two packs of the same input produced different bytes")
	}
}

func TestCheckUncompressed_DetectsMismatchedManifestHash(t *testing.T) {
	plain := []byte("payload bytes that get zlib-wrapped for storage")
	compressed := zlibCompress(t, plain)
	compressedHex := md5hex(compressed)

	index := map[string]manifest.Chunk{
		compressedHex: {
			CompressedMD5:    compressedHex,
			UncompressedMD5:  "0000000000000000000000000000000",
			UncompressedSize: int64(len(plain)),
		},
	}
	if err := checkUncompressed(compressedHex, compressed, index); err == nil {
		t.Error("expected a mismatch error against a wrong uncompressed_md5")
	}

	index[compressedHex] = manifest.Chunk{
		CompressedMD5:    compressedHex,
		UncompressedMD5:  md5hex(plain),
		UncompressedSize: int64(len(plain)),
	}
	if err := checkUncompressed(compressedHex, compressed, index); err != nil {
		t.Errorf("expected a matching uncompressed_md5 to pass, got %v", err)
	}
}

func TestPack_SplitsPartsOnBudget(t *testing.T) {
	m1, r1, c1 := buildFixture(t, "300", []byte("payload-one-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	m2, r2, c2 := buildFixture(t, "300", []byte("payload-two-bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"))

	builds := []BuildInput{
		{BuildID: 1, OS: OSWindows, ProductID: 300, RepositoryBytes: r1,
			Manifests: []ManifestInput{{Bytes: m1, Languages: []string{"en-US"}, Chunks: []ChunkSource{c1}}}},
		{BuildID: 2, OS: OSWindows, ProductID: 300, RepositoryBytes: r2,
			Manifests: []ManifestInput{{Bytes: m2, Languages: []string{"en-US"}, Chunks: []ChunkSource{c2}}}},
	}

	dir := t.TempDir()
	paths, err := Pack(context.Background(), dir, "split", nil, builds, Options{MaxPartBytes: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) < 2 {
		t.Fatalf("got %d parts, want at least 2 with a tiny budget", len(paths))
	}
	for i, p := range paths {
		h, err := readHeader(p)
		if err != nil {
			t.Fatal(err)
		}
		if int(h.PartNumber) != i {
			t.Errorf("part %d has part_number %d", i, h.PartNumber)
		}
		if h.TotalParts != uint32(len(paths)) {
			t.Errorf("part %d has total_parts %d, want %d", i, h.TotalParts, len(paths))
		}
	}

	report, err := Verify(context.Background(), filepath.Join(dir, "split_1.rgog"), VerifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Errorf("verify report has %d failures", report.Failed)
	}
}
