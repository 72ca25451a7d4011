// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package rgog implements the RGOG binary archive format: a byte-exact,
// deterministic pack of a MirrorTree's build/chunk metadata and payload
// bytes into one or more self-describing parts, plus the corresponding
// verify and unpack operations.
package rgog

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderSize is the fixed size of the RGOG header, in bytes.
const HeaderSize = 128

// Magic identifies an RGOG archive part.
var Magic = [4]byte{'R', 'G', 'O', 'G'}

// FormatVersion is the current on-disk format version this package
// reads and writes.
const FormatVersion = 1

// ArchiveType distinguishes a full archive from a patch archive.
type ArchiveType uint8

const (
	ArchiveBase  ArchiveType = 1
	ArchivePatch ArchiveType = 2
)

// section records one section's byte extent, relative to the start of
// its own part.
type section struct {
	Offset uint64
	Size   uint64
}

// Header is the 128-byte, little-endian header at the start of every
// part. Sections always appear in this order: ProductMetadata,
// BuildMetadata, BuildFiles, ChunkMetadata, ChunkFiles. In parts after
// part 0 only ChunkMetadata and ChunkFiles are populated.
type Header struct {
	Version     uint16
	ArchiveType ArchiveType
	PartNumber  uint32
	TotalParts  uint32
	TotalBuilds uint16 // archive-wide, meaningful only in part 0
	TotalChunks uint32 // archive-wide
	LocalChunks uint32 // chunks carried in this part

	ProductMeta section
	BuildMeta   section
	BuildFiles  section
	ChunkMeta   section
	ChunkFiles  section
}

func (h *Header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.ArchiveType)
	// buf[7] reserved
	binary.LittleEndian.PutUint32(buf[8:12], h.PartNumber)
	binary.LittleEndian.PutUint32(buf[12:16], h.TotalParts)
	binary.LittleEndian.PutUint16(buf[16:18], h.TotalBuilds)
	binary.LittleEndian.PutUint32(buf[20:24], h.TotalChunks)
	binary.LittleEndian.PutUint32(buf[24:28], h.LocalChunks)
	off := 28
	for _, s := range []section{h.ProductMeta, h.BuildMeta, h.BuildFiles, h.ChunkMeta, h.ChunkFiles} {
		binary.LittleEndian.PutUint64(buf[off:off+8], s.Offset)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], s.Size)
		off += 16
	}
	return buf
}

func unmarshalHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, errors.New("header buffer too short")
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	if magic != Magic {
		return nil, errors.Errorf("bad magic %q, want RGOG", magic)
	}
	h := &Header{
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		ArchiveType: ArchiveType(buf[6]),
		PartNumber:  binary.LittleEndian.Uint32(buf[8:12]),
		TotalParts:  binary.LittleEndian.Uint32(buf[12:16]),
		TotalBuilds: binary.LittleEndian.Uint16(buf[16:18]),
		TotalChunks: binary.LittleEndian.Uint32(buf[20:24]),
		LocalChunks: binary.LittleEndian.Uint32(buf[24:28]),
	}
	off := 28
	for _, s := range []*section{&h.ProductMeta, &h.BuildMeta, &h.BuildFiles, &h.ChunkMeta, &h.ChunkFiles} {
		s.Offset = binary.LittleEndian.Uint64(buf[off : off+8])
		s.Size = binary.LittleEndian.Uint64(buf[off+8 : off+16])
		off += 16
	}
	return h, nil
}

// align64 rounds n up to the next 64-byte boundary.
func align64(n int64) int64 {
	const alignment = 64
	if rem := n % alignment; rem != 0 {
		return n + (alignment - rem)
	}
	return n
}
