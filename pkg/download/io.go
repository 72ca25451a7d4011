// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"bytes"
	"os"

	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/pkg/errors"
)

func galaxypathMD5(b []byte) (string, error) {
	return galaxypath.MD5Stream(bytes.NewReader(b), int64(len(b)), nil)
}

// createWithParents creates path for writing, ensuring its parent
// directory exists first.
func createWithParents(path string) (*os.File, error) {
	if err := os.MkdirAll(parentDir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating output file")
	}
	return f, nil
}
