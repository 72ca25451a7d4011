// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"os"

	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/pkg/errors"
)

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file for hashing")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "stat for hashing")
	}
	return galaxypath.MD5Stream(f, info.Size(), nil)
}
