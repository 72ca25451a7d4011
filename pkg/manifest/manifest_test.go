// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"testing"
)

func TestParseV1_DropsZeroSizeAndMissingOffset(t *testing.T) {
	body := []byte(`{"depot":{"files":[
		{"path":"dir/","size":0,"offset":0},
		{"path":"game.exe","size":1024,"offset":100,"md5":"ABCDEF"},
		{"path":"nooffset.dat","size":10}
	]}}`)
	m, err := ParseV1(body, "123")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("got %d files, want 1: %+v", len(m.Files), m.Files)
	}
	if m.Files[0].MD5 != "abcdef" {
		t.Errorf("md5 = %s, want lowercased", m.Files[0].MD5)
	}
}

func TestParseV2_SingleChunkInheritsMD5(t *testing.T) {
	body := []byte(`{"buildId":"b1","productId":"p1","depot":{"items":[
		{"type":"DepotFile","path":"a.bin","chunks":[{"compressedMd5":"aa","compressedSize":5,"md5":"bb","size":10}]}
	]}}`)
	m, err := ParseV2(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("got %d files", len(m.Files))
	}
	if m.Files[0].MD5 != "bb" {
		t.Errorf("MD5 = %s, want inherited from single chunk", m.Files[0].MD5)
	}
	if m.Files[0].Size != 10 {
		t.Errorf("Size = %d, want 10", m.Files[0].Size)
	}
}

func TestParseV2_SFCRef(t *testing.T) {
	body := []byte(`{"depot":{"items":[
		{"type":"DepotFile","path":"small.txt","sfcRef":{"offset":10,"size":5}}
	]},"smallFilesContainer":{"chunks":[{"compressedMd5":"cc","compressedSize":1,"md5":"dd","size":2}]}}`)
	m, err := ParseV2(body)
	if err != nil {
		t.Fatal(err)
	}
	if m.Files[0].SFCRef == nil || m.Files[0].SFCRef.Offset != 10 || m.Files[0].SFCRef.Size != 5 {
		t.Errorf("SFCRef = %+v", m.Files[0].SFCRef)
	}
	if len(m.SFC) != 1 {
		t.Errorf("SFC chunks = %d, want 1", len(m.SFC))
	}
}

func TestDiff_NoOldManifestEverythingNew(t *testing.T) {
	nm := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a"}, {Path: "b"}}}
	d := Diff(nm, nil)
	if len(d.New) != 2 {
		t.Errorf("New = %d, want 2", len(d.New))
	}
}

func TestDiff_UnchangedFileEmitsNothing(t *testing.T) {
	old := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	nm := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	d := Diff(nm, old)
	if len(d.New)+len(d.Changed)+len(d.Patched)+len(d.Deleted) != 0 {
		t.Errorf("expected no diff entries, got %+v", d)
	}
}

func TestDiff_ChangedWithoutPatch(t *testing.T) {
	old := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	nm := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "y"}}}
	d := Diff(nm, old)
	if len(d.Changed) != 1 {
		t.Fatalf("Changed = %d, want 1: %+v", len(d.Changed), d)
	}
}

func TestDiff_PatchedWhenPatchEntryMatches(t *testing.T) {
	old := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	nm := &Manifest{
		Generation: GenV2,
		Files:      []FileEntry{{Path: "a", MD5: "y"}},
		Patches:    []PatchEntry{{TargetPath: "a", MD5Source: "x"}},
	}
	d := Diff(nm, old)
	if len(d.Patched) != 1 {
		t.Fatalf("Patched = %d, want 1: %+v", len(d.Patched), d)
	}
}

func TestDiff_DeletedFile(t *testing.T) {
	old := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "gone", MD5: "x"}}}
	nm := &Manifest{Generation: GenV2}
	d := Diff(nm, old)
	if len(d.Deleted) != 1 {
		t.Fatalf("Deleted = %d, want 1", len(d.Deleted))
	}
}

func TestDiff_CrossGenerationForcesChanged(t *testing.T) {
	old := &Manifest{Generation: GenV1, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	nm := &Manifest{Generation: GenV2, Files: []FileEntry{{Path: "a", MD5: "x"}}}
	d := Diff(nm, old)
	if len(d.Changed) != 1 {
		t.Fatalf("cross-generation should force Changed, got %+v", d)
	}
}

func TestDepotDescriptor_Matches(t *testing.T) {
	d := DepotDescriptor{Languages: []string{"en-US"}, Bitness: "64", ProductIDs: []string{"123"}}
	if !d.Matches("en-US", "64", []string{"123"}) {
		t.Error("expected exact match")
	}
	if d.Matches("fr-FR", "", nil) {
		t.Error("expected language mismatch to fail")
	}
	wildcard := DepotDescriptor{Languages: []string{"*"}, Bitness: "*"}
	if !wildcard.Matches("fr-FR", "32", nil) {
		t.Error("wildcard fields should match anything")
	}
}

func TestEncodeDecodeLanguages_RoundTrips(t *testing.T) {
	codes := []string{"en-US", "en-GB", "so-SO"}
	lo, hi := EncodeLanguages(codes)
	got := DecodeLanguages(lo, hi)
	want := map[string]bool{"en-US": true, "en-GB": true, "so-SO": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want keys of %v", got, want)
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("unexpected code %s", c)
		}
	}
}

func TestEncodeLanguages_UnknownCodeSetsNoBit(t *testing.T) {
	lo, hi := EncodeLanguages([]string{"xx-ZZ"})
	if lo != 0 || hi != 0 {
		t.Errorf("unknown code should set no bit, got lo=%d hi=%d", lo, hi)
	}
}

func TestLanguageTable_NoDuplicateIndices(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range languageTable {
		if seen[c] {
			t.Errorf("duplicate language code %s", c)
		}
		seen[c] = true
	}
	if len(languageTable) > 128 {
		t.Errorf("language table has %d entries, exceeds 128-bit capacity", len(languageTable))
	}
}
