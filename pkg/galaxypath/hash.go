// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package galaxypath

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ProgressFunc reports cumulative bytes processed so far against an
// (optional, may be 0 if unknown) total.
type ProgressFunc func(done, total int64)

// MD5Stream hashes r without loading it fully into memory, invoking
// progress (if non-nil) after each read. It returns the lowercase hex
// digest.
func MD5Stream(r io.Reader, total int64, progress ProgressFunc) (string, error) {
	h := md5.New()
	buf := make([]byte, 256*1024)
	var done int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "reading stream for md5")
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// EqualHash compares two lowercase-or-uppercase hex hashes case-insensitively.
func EqualHash(a, b string) bool {
	return strings.EqualFold(a, b)
}
