// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/galaxy-archive/galaxydl/internal/httpx/httpxtest"
	"github.com/galaxy-archive/galaxydl/internal/ratex"
	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
)

func resp(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: httpxtest.Body(body)}
}

func fastRetryPolicy() ratex.RetryPolicy {
	return ratex.RetryPolicy{Attempts: 3, Base: time.Millisecond}
}

func TestSession_Get_SuccessBasic(t *testing.T) {
	mock := &httpxtest.MockClient{
		SkipURLValidation: true,
		Calls: []httpxtest.Call{
			{Response: resp(200, "hello")},
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()))
	r, err := s.Get(context.Background(), "https://example.com/file")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer r.Body.Close()
	body, err := ReadBody(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}
	if mock.CallCount() != 1 {
		t.Errorf("callCount = %d, want 1", mock.CallCount())
	}
}

func TestSession_Get_RetriesOn500(t *testing.T) {
	mock := &httpxtest.MockClient{
		SkipURLValidation: true,
		Calls: []httpxtest.Call{
			{Response: resp(503, "")},
			{Response: resp(503, "")},
			{Response: resp(200, "ok")},
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()))
	r, err := s.Get(context.Background(), "https://example.com/file")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	r.Body.Close()
	if mock.CallCount() != 3 {
		t.Errorf("callCount = %d, want 3", mock.CallCount())
	}
}

func TestSession_Get_NoRetryOn404(t *testing.T) {
	mock := &httpxtest.MockClient{
		SkipURLValidation: true,
		Calls: []httpxtest.Call{
			{Response: resp(404, "")},
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()))
	_, err := s.Get(context.Background(), "https://example.com/missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !galaxyerr.Is(err, galaxyerr.NotFound) {
		t.Errorf("expected NotFound kind, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("callCount = %d, want 1 (no retry on 404)", mock.CallCount())
	}
}

func TestSession_Get_NoRetryOn401(t *testing.T) {
	mock := &httpxtest.MockClient{
		SkipURLValidation: true,
		Calls: []httpxtest.Call{
			{Response: resp(401, "")},
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()))
	_, err := s.Get(context.Background(), "https://example.com/secure")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !galaxyerr.Is(err, galaxyerr.Unauthorized) {
		t.Errorf("expected Unauthorized kind, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("callCount = %d, want 1 (no retry on 401)", mock.CallCount())
	}
}

func TestSession_Get_RangeHeader(t *testing.T) {
	var gotRange string
	mock := &recordingClient{
		onDo: func(req *http.Request) (*http.Response, error) {
			gotRange = req.Header.Get("Range")
			return resp(206, "chunk"), nil
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()))
	r, err := s.Get(context.Background(), "https://example.com/file", WithRange(100, 199))
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if gotRange != "bytes=100-199" {
		t.Errorf("Range header = %q, want bytes=100-199", gotRange)
	}
}

func TestSession_Get_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	mock := &recordingClient{
		onDo: func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return resp(200, "ok"), nil
		},
	}
	s := New(WithBasicClient(mock), WithRetryPolicy(fastRetryPolicy()), WithCredentialProvider(stubCred{tok: "abc123"}))
	r, err := s.Get(context.Background(), "https://example.com/file")
	if err != nil {
		t.Fatal(err)
	}
	r.Body.Close()
	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization header = %q, want Bearer abc123", gotAuth)
	}
}

type stubCred struct{ tok string }

func (s stubCred) Token(ctx context.Context) (string, error) { return s.tok, nil }

type recordingClient struct {
	onDo func(*http.Request) (*http.Response, error)
}

func (r *recordingClient) Do(req *http.Request) (*http.Response, error) {
	return r.onDo(req)
}
