// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/manifest"
	"github.com/pkg/errors"
)

// ExtractSFCItem slices an item's bytes out of the already-assembled SFC
// stream and writes them to outPath.
func ExtractSFCItem(ref manifest.SFCRef, sfc []byte, outPath string) error {
	if ref.Offset < 0 || ref.Size < 0 || ref.Offset+ref.Size > int64(len(sfc)) {
		return galaxyerr.New(galaxyerr.SfcOutOfBounds, outPath, errors.Errorf("sfcRef {offset=%d size=%d} exceeds sfc length %d", ref.Offset, ref.Size, len(sfc)))
	}
	f, err := createWithParents(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(sfc[ref.Offset : ref.Offset+ref.Size]); err != nil {
		return errors.Wrap(err, "writing sfc item")
	}
	return nil
}
