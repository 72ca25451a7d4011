// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package galaxyerr defines the error kinds shared across the download,
// manifest, and archive pipelines, following the sentinel-error idiom of
// rebuild.ErrAssetNotFound (errors.Is over a typed, wrapped cause).
package galaxyerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the propagation
// policy (retry vs. surface vs. delete-and-surface) switches on.
type Kind string

const (
	Unauthorized        Kind = "unauthorized"
	Transient           Kind = "transient"
	NotFound            Kind = "not_found"
	HashMismatch        Kind = "hash_mismatch"
	DecompressionFailed Kind = "decompression_failed"
	ManifestNotFound    Kind = "manifest_not_found"
	SfcOutOfBounds      Kind = "sfc_out_of_bounds"
	SchemaError         Kind = "schema_error"
	IoError             Kind = "io_error"
)

// Error annotates an underlying cause with a Kind and the operation (a URL,
// a chunk hash, a path) it occurred against.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for the given kind/operation/cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) is a *Error of the given
// Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
