// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package galaxypath

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"
)

func TestMD5Stream(t *testing.T) {
	data := strings.Repeat("galaxy", 100000)
	want := md5.Sum([]byte(data))
	var lastDone int64
	got, err := MD5Stream(strings.NewReader(data), int64(len(data)), func(done, total int64) {
		lastDone = done
		if total != int64(len(data)) {
			t.Errorf("progress total = %d, want %d", total, len(data))
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("MD5Stream() = %s, want %s", got, hex.EncodeToString(want[:]))
	}
	if lastDone != int64(len(data)) {
		t.Errorf("final progress done = %d, want %d", lastDone, len(data))
	}
}

func TestEqualHash(t *testing.T) {
	if !EqualHash("ABCDEF", "abcdef") {
		t.Error("EqualHash should be case-insensitive")
	}
	if EqualHash("abcdef", "abcdeg") {
		t.Error("EqualHash should distinguish different hashes")
	}
}
