// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package mirror lays out a MirrorTree on a billy.Filesystem and archives
// builds into it, following the storage-abstraction pattern of
// rebuild.FilesystemAssetStore: a thin path-resolving wrapper over
// billy.Filesystem's Open/Create.
package mirror

import (
	"io"
	"io/fs"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"

	"github.com/galaxy-archive/galaxydl/internal/billyx"
)

// Tree resolves the on-disk MirrorTree layout onto a billy.Filesystem:
//
//	v1/manifests/<pid>/<plat>/<ts>/{repository.json, <manifest_uuid>}
//	v1/depots/<pid>/<plat>/<ts>/main.bin
//	v2/meta/aa/bb/<hash>
//	v2/store/<product_id>/aa/bb/<hash>
//	v2/debug/<hash>_{depot,manifest}.json
type Tree struct {
	fs billy.Filesystem
}

// NewTree wraps fs as a MirrorTree.
func NewTree(fs billy.Filesystem) *Tree {
	return &Tree{fs: fs}
}

func shard(hash string) string {
	if len(hash) < 4 {
		return hash
	}
	return filepath.Join(hash[0:2], hash[2:4], hash)
}

// V1ManifestPath returns the path of a V1 manifest or repository.json
// sibling file under the (product, platform, timestamp) directory.
func (t *Tree) V1ManifestPath(productID, platform, timestamp, name string) string {
	return filepath.Join("v1", "manifests", productID, platform, timestamp, name)
}

// V1DepotPath returns the path of a V1 blob (main.bin).
func (t *Tree) V1DepotPath(productID, platform, timestamp string) string {
	return filepath.Join("v1", "depots", productID, platform, timestamp, "main.bin")
}

// V2MetaPath returns the content-addressed path of a V2 meta JSON blob
// (depot descriptor or manifest), still zlib-wrapped as stored.
func (t *Tree) V2MetaPath(hash string) string {
	return filepath.Join("v2", "meta", shard(hash))
}

// V2StorePath returns the content-addressed path of a V2 chunk.
func (t *Tree) V2StorePath(productID, compressedMD5 string) string {
	return filepath.Join("v2", "store", productID, shard(compressedMD5))
}

// V2DebugPath returns the path of a decompressed debug copy of a meta
// blob. kind is "depot" or "manifest".
func (t *Tree) V2DebugPath(hash, kind string) string {
	return filepath.Join("v2", "debug", hash+"_"+kind+".json")
}

// Reader opens path for reading, wrapping fs.ErrNotExist into a sentinel
// the caller can test with errors.Is.
func (t *Tree) Reader(path string) (io.ReadCloser, error) {
	f, err := t.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "path %s", path)
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}

// Exists reports whether path is already present, for the archiver's
// skip-if-present chunk dedup check.
func (t *Tree) Exists(path string) bool {
	_, err := t.fs.Stat(path)
	return err == nil
}

// Writer creates (and truncates) path for writing, creating parent
// directories as needed.
func (t *Tree) Writer(path string) (io.WriteCloser, error) {
	if err := t.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating parent directory for %s", path)
	}
	f, err := t.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	return f, nil
}

// WriteBytes is a convenience wrapper writing b to path in one call.
func (t *Tree) WriteBytes(path string, b []byte) error {
	w, err := t.Writer(path)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = w.Write(b)
	return errors.Wrapf(err, "writing %s", path)
}

// ReadBytes is a convenience wrapper reading all of path in one call.
func (t *Tree) ReadBytes(path string) ([]byte, error) {
	r, err := t.Reader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// ErrNotFound indicates a requested MirrorTree path does not exist.
var ErrNotFound = errors.New("mirror: asset not found")

// WalkV2Meta visits every regular file under v2/meta/, content-addressed
// shard directories included, calling fn with the path relative to the
// tree's root. It is the RGOG packer's entry point for scanning a mirror
// without the caller needing to know the tree's billy.Filesystem.
func (t *Tree) WalkV2Meta(fn func(path string) error) error {
	root := filepath.Join("v2", "meta")
	if _, err := t.fs.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", root)
	}
	return util.Walk(t.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return fn(path)
	})
}

// CloneTo copies every file in this tree onto dst, preserving the
// MirrorTree layout. Used to snapshot a mirror (e.g. from an in-memory
// staging filesystem onto disk, or before a destructive validate repair)
// prior to packing or further mutation.
func (t *Tree) CloneTo(dst billy.Filesystem) error {
	return billyx.CopyFS(dst, t.fs)
}
