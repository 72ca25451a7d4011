// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package galaxypath provides the content-addressed path layout and hash
// primitives shared by every other component: the "aa/bb/<hash>" sharding
// scheme, zlib-framing detection, and streaming MD5.
package galaxypath

import "regexp"

var hexMD5 = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// Galaxy splits a 32-character hex hash into its two-level shard path
// "aa/bb/<hash>". If h does not look like a hex MD5, it is returned
// unchanged on the assumption it is already a path.
func Galaxy(h string) string {
	if !hexMD5.MatchString(h) {
		return h
	}
	return h[0:2] + "/" + h[2:4] + "/" + h
}

// zlibMagics are the valid two-byte big-endian headers for a zlib stream
// with a 15-bit (32KB) window, per RFC 1950's CMF/FLG byte pair.
var zlibMagics = map[uint16]bool{
	0x7801: true,
	0x785E: true,
	0x789C: true,
	0x78DA: true,
}

// IsZlibWrapped reports whether the first two bytes of a payload are a
// recognized zlib header.
func IsZlibWrapped(prefix [2]byte) bool {
	return zlibMagics[uint16(prefix[0])<<8|uint16(prefix[1])]
}

// HasZlibPrefix is a convenience wrapper over IsZlibWrapped for slices
// shorter or longer than two bytes.
func HasZlibPrefix(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return IsZlibWrapped([2]byte{b[0], b[1]})
}
