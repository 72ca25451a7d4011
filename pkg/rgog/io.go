// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
)

var partSuffixRE = regexp.MustCompile(`^(.*)_(\d+)\.rgog$`)

// partStem splits a part path into its directory and stem, so sibling
// parts can be located by filename convention.
func partStem(path string) (dir, stem string, err error) {
	base := filepath.Base(path)
	m := partSuffixRE.FindStringSubmatch(base)
	if m == nil {
		return "", "", errors.Errorf("%s does not match the <stem>_N.rgog naming convention", base)
	}
	return filepath.Dir(path), m[1], nil
}

func partPath(dir, stem string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.rgog", stem, n))
}

// readHeader reads and validates just the header of path.
func readHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	buf := make([]byte, HeaderSize)
	if _, err := readFull(f, buf); err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", path)
	}
	return unmarshalHeader(buf)
}

// readSection reads one section's bytes from path.
func readSection(path string, s section) ([]byte, error) {
	if s.Size == 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	if _, err := f.Seek(int64(s.Offset), 0); err != nil {
		return nil, errors.Wrapf(err, "seeking in %s", path)
	}
	buf := make([]byte, s.Size)
	if _, err := readFull(f, buf); err != nil {
		return nil, errors.Wrapf(err, "reading section of %s", path)
	}
	return buf, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func parseProductRecords(data []byte) ([]productRecord, error) {
	var out []productRecord
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		rec, _, err := unmarshalProductRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseBuildRecords(data []byte, count uint16) ([]buildRecord, error) {
	out := make([]buildRecord, 0, count)
	r := bytes.NewReader(data)
	for i := 0; i < int(count); i++ {
		rec, err := unmarshalBuildRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseChunkRecords(data []byte) []chunkRecord {
	n := len(data) / chunkRecordSize
	out := make([]chunkRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, unmarshalChunkRecord(data[i*chunkRecordSize:(i+1)*chunkRecordSize]))
	}
	return out
}
