// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package config locates and loads the galaxydl CLIs' process-wide
// settings: the platform-conventional credential file path (see
// internal/credprovider) and an optional on-disk YAML file for default
// platform/parallelism/output-dir options, following the YAML-config
// idiom used elsewhere in the corpus for CLI tool configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppName names the configuration directory under the user's config home.
const AppName = "galaxydl"

// Options are the process-wide defaults a CLI invocation can load from
// an on-disk YAML file and override with flags.
type Options struct {
	Platform    string `yaml:"platform"`
	OutputDir   string `yaml:"output_dir"`
	Parallelism int    `yaml:"parallelism"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

// DefaultOptions returns the built-in defaults used when no config file
// is present.
func DefaultOptions() Options {
	return Options{
		Platform:    "windows",
		OutputDir:   "./mirror",
		Parallelism: 4,
	}
}

// Dir returns the platform-conventional configuration directory,
// honoring XDG_CONFIG_HOME when set, matching
// credprovider.DefaultPath's resolution.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the default config file path, config.yaml under Dir().
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads options from path, falling back to DefaultOptions for any
// field the file doesn't set and returning DefaultOptions unmodified if
// the file does not exist.
func Load(path string) (Options, error) {
	opts := DefaultOptions()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, errors.Wrapf(err, "reading config file %s", path)
	}
	var loaded Options
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return opts, errors.Wrap(err, "parsing config file")
	}
	if loaded.Platform != "" {
		opts.Platform = loaded.Platform
	}
	if loaded.OutputDir != "" {
		opts.OutputDir = loaded.OutputDir
	}
	if loaded.Parallelism != 0 {
		opts.Parallelism = loaded.Parallelism
	}
	if loaded.BaseURL != "" {
		opts.BaseURL = loaded.BaseURL
	}
	return opts, nil
}
