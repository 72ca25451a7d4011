// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSubRangeSize is the default sub-range size for a full blob
	// download (e.g. main.bin).
	DefaultSubRangeSize int64 = 50 << 20
	// FileSubRangeSize is the sub-range size used for extracting a single
	// file out of the blob.
	FileSubRangeSize int64 = 10 << 20
	// DefaultWorkers is the default bounded worker-pool size for
	// sub-range fetches.
	DefaultWorkers = 4
)

// V1Options configures a V1 range download.
type V1Options struct {
	SubRangeSize int64
	Workers      int
	ExpectedMD5  string
	Progress     ProgressFunc
}

func (o *V1Options) setDefaults() {
	if o.SubRangeSize <= 0 {
		o.SubRangeSize = DefaultSubRangeSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
}

// RangeBlob downloads [offset, offset+size) from url into outPath using a
// bounded worker pool of Range-header GETs. When offset is 0 and size
// equals the blob's full length, the file is pre-allocated up front.
func RangeBlob(ctx context.Context, sess *transport.Session, url, outPath string, offset, size int64, opts V1Options) error {
	opts.setDefaults()

	if err := os.MkdirAll(parentDir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening output file")
	}
	defer f.Close()

	if offset == 0 {
		if err := f.Truncate(size); err != nil {
			return errors.Wrap(err, "pre-allocating output file")
		}
		if size > 0 {
			if _, err := f.WriteAt([]byte{0}, size-1); err != nil {
				return errors.Wrap(err, "writing allocation sentinel byte")
			}
		}
	}

	subRanges := splitRanges(offset, size, opts.SubRangeSize)

	var done int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, r := range subRanges {
		r := r
		g.Go(func() error {
			return fetchSubRange(gctx, sess, url, f, r, &done, size, opts.Progress)
		})
	}
	if err := g.Wait(); err != nil {
		os.Remove(outPath)
		return err
	}

	if opts.ExpectedMD5 != "" {
		got, err := md5File(outPath)
		if err != nil {
			return err
		}
		if !galaxypath.EqualHash(got, opts.ExpectedMD5) {
			os.Remove(outPath)
			return galaxyerr.New(galaxyerr.HashMismatch, outPath, errors.Errorf("got %s, want %s", got, opts.ExpectedMD5))
		}
	}
	return nil
}

type byteRange struct {
	start, end int64 // inclusive
}

func splitRanges(offset, size, subRangeSize int64) []byteRange {
	if size <= 0 {
		return nil
	}
	var out []byteRange
	end := offset + size
	for start := offset; start < end; start += subRangeSize {
		stop := start + subRangeSize - 1
		if stop >= end {
			stop = end - 1
		}
		out = append(out, byteRange{start, stop})
	}
	return out
}

func fetchSubRange(ctx context.Context, sess *transport.Session, url string, f *os.File, r byteRange, done *int64, total int64, progress ProgressFunc) error {
	resp, err := sess.Get(ctx, url, transport.WithRange(r.start, r.end))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading range body")
	}
	if _, err := f.WriteAt(buf, r.start); err != nil {
		return errors.Wrap(err, "writing range to output file")
	}
	n := atomic.AddInt64(done, int64(len(buf)))
	if progress != nil {
		progress(n, total)
	}
	return nil
}

func parentDir(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	return path[:i]
}
