// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package ratex

import (
	"context"
	"time"
)

// RetryPolicy bounds a Retry call: at most Attempts tries, sleeping
// Base*2^n between attempt n and n+1 (Base, 2*Base, 4*Base, ...).
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
}

// DefaultRetryPolicy matches the transport-level policy: 3 attempts,
// exponential backoff starting at 1s and doubling each attempt.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Base: time.Second}

// Retry calls fn up to p.Attempts times, sleeping between attempts per the
// policy's backoff schedule. It stops retrying as soon as retryable(err) is
// false, returning that error immediately. If every attempt is exhausted,
// the last error is returned. ctx cancellation aborts the wait between
// attempts.
func Retry(ctx context.Context, p RetryPolicy, retryable func(error) bool, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	delay := p.Base
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == p.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
