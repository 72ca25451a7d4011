// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package galaxyerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs(t *testing.T) {
	base := errors.New("connection reset")
	err := New(Transient, "GET https://example.com", base)
	if !Is(err, Transient) {
		t.Error("Is(err, Transient) = false, want true")
	}
	if Is(err, NotFound) {
		t.Error("Is(err, NotFound) = true, want false")
	}
	wrapped := fmt.Errorf("fetching chunk: %w", err)
	if !Is(wrapped, Transient) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := New(IoError, "/tmp/main.bin", base)
	if !errors.Is(err, base) {
		t.Error("errors.Is(err, base) = false, want true")
	}
}
