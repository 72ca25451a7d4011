// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package ratex

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 3, Base: time.Millisecond}, func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("not found")
	err := Retry(context.Background(), RetryPolicy{Attempts: 3, Base: time.Millisecond}, func(error) bool { return false }, func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Retry() = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("persistent")
	err := Retry(context.Background(), RetryPolicy{Attempts: 3, Base: time.Millisecond}, func(error) bool { return true }, func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Retry() = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, RetryPolicy{Attempts: 3, Base: time.Second}, func(error) bool { return true }, func() error {
		calls++
		return errors.New("transient")
	})
	if err != context.Canceled {
		t.Fatalf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
