// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"io"
	"os"

	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/pkg/errors"
)

// DownloadBlob downloads the full contents at url into outPath. It HEADs
// the URL to learn the total size and uses the parallel sub-range engine;
// if the server omits Content-Length, it falls back to a single streaming
// GET.
func DownloadBlob(ctx context.Context, sess *transport.Session, url, outPath string, opts V1Options) error {
	head, err := sess.Head(ctx, url)
	if err != nil {
		return streamWhole(ctx, sess, url, outPath)
	}
	head.Body.Close()
	if head.ContentLength <= 0 {
		return streamWhole(ctx, sess, url, outPath)
	}
	return RangeBlob(ctx, sess, url, outPath, 0, head.ContentLength, opts)
}

func streamWhole(ctx context.Context, sess *transport.Session, url, outPath string) error {
	if err := os.MkdirAll(parentDir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	resp, err := sess.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(outPath)
		return errors.Wrap(err, "streaming response body")
	}
	return nil
}
