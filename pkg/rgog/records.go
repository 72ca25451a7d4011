// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package rgog

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// productRecord is one ProductMetadata entry: a numeric product id and
// its human-readable title, zero-padded to an 8-byte boundary.
type productRecord struct {
	ProductID uint64
	Name      string
}

func (p productRecord) marshal() []byte {
	name := []byte(p.Name)
	rec := make([]byte, 8+4+len(name))
	binary.LittleEndian.PutUint64(rec[0:8], p.ProductID)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(len(name)))
	copy(rec[12:], name)
	return padTo8(rec)
}

func unmarshalProductRecord(r *bytes.Reader) (productRecord, int, error) {
	var p productRecord
	start := r.Len()
	var id uint64
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return p, 0, errors.Wrap(err, "reading product_id")
	}
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return p, 0, errors.Wrap(err, "reading name_len")
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return p, 0, errors.Wrap(err, "reading name")
	}
	p.ProductID = id
	p.Name = string(name)
	consumed := start - r.Len()
	pad := (8 - consumed%8) % 8
	if pad > 0 {
		r.Seek(int64(pad), io.SeekCurrent)
	}
	consumed += pad
	return p, consumed, nil
}

// manifestRecord is one per-depot entry within a BuildMetadata record.
type manifestRecord struct {
	DepotID   [16]byte
	Offset    uint64
	Size      uint64
	LangLo    uint64
	LangHi    uint64
}

const manifestRecordSize = 16 + 8 + 8 + 8 + 8

func (m manifestRecord) marshal() []byte {
	buf := make([]byte, manifestRecordSize)
	copy(buf[0:16], m.DepotID[:])
	binary.LittleEndian.PutUint64(buf[16:24], m.Offset)
	binary.LittleEndian.PutUint64(buf[24:32], m.Size)
	binary.LittleEndian.PutUint64(buf[32:40], m.LangLo)
	binary.LittleEndian.PutUint64(buf[40:48], m.LangHi)
	return buf
}

func unmarshalManifestRecord(buf []byte) manifestRecord {
	var m manifestRecord
	copy(m.DepotID[:], buf[0:16])
	m.Offset = binary.LittleEndian.Uint64(buf[16:24])
	m.Size = binary.LittleEndian.Uint64(buf[24:32])
	m.LangLo = binary.LittleEndian.Uint64(buf[32:40])
	m.LangHi = binary.LittleEndian.Uint64(buf[40:48])
	return m
}

// buildRecord is one BuildMetadata entry.
type buildRecord struct {
	BuildID      uint64
	OS           uint8
	RepositoryID [16]byte
	RepoOffset   uint64
	RepoSize     uint64
	Manifests    []manifestRecord
}

func (b buildRecord) marshal() []byte {
	buf := make([]byte, 8+1+3+16+8+8+2+2)
	binary.LittleEndian.PutUint64(buf[0:8], b.BuildID)
	buf[8] = b.OS
	copy(buf[12:28], b.RepositoryID[:])
	binary.LittleEndian.PutUint64(buf[28:36], b.RepoOffset)
	binary.LittleEndian.PutUint64(buf[36:44], b.RepoSize)
	binary.LittleEndian.PutUint16(buf[44:46], uint16(len(b.Manifests)))
	for _, m := range b.Manifests {
		buf = append(buf, m.marshal()...)
	}
	return buf
}

func unmarshalBuildRecord(r *bytes.Reader) (buildRecord, error) {
	var b buildRecord
	head := make([]byte, 46)
	if _, err := io.ReadFull(r, head); err != nil {
		return b, errors.Wrap(err, "reading build record header")
	}
	b.BuildID = binary.LittleEndian.Uint64(head[0:8])
	b.OS = head[8]
	copy(b.RepositoryID[:], head[12:28])
	b.RepoOffset = binary.LittleEndian.Uint64(head[28:36])
	b.RepoSize = binary.LittleEndian.Uint64(head[36:44])
	count := binary.LittleEndian.Uint16(head[44:46])
	for i := 0; i < int(count); i++ {
		mbuf := make([]byte, manifestRecordSize)
		if _, err := io.ReadFull(r, mbuf); err != nil {
			return b, errors.Wrap(err, "reading manifest record")
		}
		b.Manifests = append(b.Manifests, unmarshalManifestRecord(mbuf))
	}
	return b, nil
}

// chunkRecord is one ChunkMetadata entry.
type chunkRecord struct {
	CompressedMD5 [16]byte
	Offset        uint64
	Size          uint64
}

const chunkRecordSize = 16 + 8 + 8

func (c chunkRecord) marshal() []byte {
	buf := make([]byte, chunkRecordSize)
	copy(buf[0:16], c.CompressedMD5[:])
	binary.LittleEndian.PutUint64(buf[16:24], c.Offset)
	binary.LittleEndian.PutUint64(buf[24:32], c.Size)
	return buf
}

func unmarshalChunkRecord(buf []byte) chunkRecord {
	var c chunkRecord
	copy(c.CompressedMD5[:], buf[0:16])
	c.Offset = binary.LittleEndian.Uint64(buf[16:24])
	c.Size = binary.LittleEndian.Uint64(buf[24:32])
	return c
}

func padTo8(b []byte) []byte {
	if rem := len(b) % 8; rem != 0 {
		b = append(b, make([]byte, 8-rem)...)
	}
	return b
}

func md5ToBytes(hexStr string) ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 16 {
		return out, errors.Errorf("md5 %q decodes to %d bytes, want 16", hexStr, len(b))
	}
	copy(out[:], b)
	return out, nil
}
