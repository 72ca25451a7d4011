// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if opts != DefaultOptions() {
		t.Errorf("got %+v, want defaults %+v", opts, DefaultOptions())
	}
}

func TestLoad_OverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("platform: linux\nparallelism: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	opts, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Platform != "linux" {
		t.Errorf("platform = %q, want linux", opts.Platform)
	}
	if opts.Parallelism != 8 {
		t.Errorf("parallelism = %d, want 8", opts.Parallelism)
	}
	if opts.OutputDir != DefaultOptions().OutputDir {
		t.Errorf("output dir = %q, want default %q", opts.OutputDir, DefaultOptions().OutputDir)
	}
}

func TestDir_HonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got, want := Dir(), filepath.Join("/tmp/xdg", AppName); got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}
