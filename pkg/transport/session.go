// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the authenticated HTTP session every other
// component downloads through: retries with exponential backoff, byte-range
// GETs, and streaming response bodies.
package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/galaxy-archive/galaxydl/internal/httpx"
	"github.com/galaxy-archive/galaxydl/internal/ratex"
	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/pkg/errors"
)

// DefaultTimeout is the per-operation timeout applied when none is given.
const DefaultTimeout = 10 * time.Second

// CredentialProvider returns a bearer token for authenticated requests. The
// acquisition/refresh mechanics (OAuth2 authorization-code exchange) are a
// non-goal of this package; see internal/credprovider for one
// implementation.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// Session is a reusable, authenticated HTTP client: connection pooling via
// its underlying http.Client, a fixed User-Agent, retries, and an optional
// bearer token attached per request.
type Session struct {
	client      httpx.BasicClient
	cred        CredentialProvider
	retryPolicy ratex.RetryPolicy
	userAgent   string
}

// Option configures a Session.
type Option func(*Session)

// WithCredentialProvider attaches a bearer-token source; every request then
// carries an Authorization header.
func WithCredentialProvider(cred CredentialProvider) Option {
	return func(s *Session) { s.cred = cred }
}

// WithUserAgent overrides the default User-Agent string.
func WithUserAgent(ua string) Option {
	return func(s *Session) { s.userAgent = ua }
}

// WithRetryPolicy overrides the default retry policy (3 attempts,
// exponential backoff starting at 1s).
func WithRetryPolicy(p ratex.RetryPolicy) Option {
	return func(s *Session) { s.retryPolicy = p }
}

// WithBasicClient overrides the underlying transport, primarily for tests.
func WithBasicClient(c httpx.BasicClient) Option {
	return func(s *Session) { s.client = c }
}

const defaultUserAgent = "galaxydl/0.1.0"

// New constructs a Session with a pooled *http.Client and the default retry
// policy.
func New(opts ...Option) *Session {
	s := &Session{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
			},
		},
		retryPolicy: ratex.DefaultRetryPolicy,
		userAgent:   defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = &httpx.WithUserAgent{BasicClient: s.client, UserAgent: s.userAgent}
	return s
}

// getOptions configures a single Get call.
type getOptions struct {
	timeout    time.Duration
	rangeStart int64
	rangeEnd   int64
	hasRange   bool
}

// GetOption configures a single Get call.
type GetOption func(*getOptions)

// WithTimeout overrides the default per-operation timeout for one call.
func WithTimeout(d time.Duration) GetOption {
	return func(o *getOptions) { o.timeout = d }
}

// WithRange requests bytes [start, end] inclusive, per HTTP Range
// semantics. Pass end < 0 for an open-ended range ("bytes=start-").
func WithRange(start, end int64) GetOption {
	return func(o *getOptions) { o.hasRange = true; o.rangeStart = start; o.rangeEnd = end }
}

// Get issues an authenticated GET, retrying on transient failure, and
// returns the streaming response body. Callers must Close() it.
func (s *Session) Get(ctx context.Context, url string, opts ...GetOption) (*http.Response, error) {
	return s.do(ctx, http.MethodGet, url, opts...)
}

// Head issues an authenticated HEAD request (used to learn Content-Length
// before a V1 parallel-range download).
func (s *Session) Head(ctx context.Context, url string) (*http.Response, error) {
	return s.do(ctx, http.MethodHead, url)
}

func (s *Session) do(ctx context.Context, method, url string, opts ...GetOption) (*http.Response, error) {
	o := getOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	var resp *http.Response
	err := ratex.Retry(ctx, s.retryPolicy, isRetryable, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, method, url, nil)
		if err != nil {
			return errors.Wrap(err, "building request")
		}
		if o.hasRange {
			req.Header.Set("Range", formatRange(o.rangeStart, o.rangeEnd))
		}
		if s.cred != nil {
			tok, err := s.cred.Token(ctx)
			if err != nil {
				return galaxyerr.New(galaxyerr.Unauthorized, url, err)
			}
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		r, err := s.client.Do(req)
		if err != nil {
			return classify(url, err)
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return galaxyerr.New(galaxyerr.Transient, url, errors.Errorf("http %d", r.StatusCode))
		}
		if r.StatusCode == http.StatusNotFound {
			r.Body.Close()
			return galaxyerr.New(galaxyerr.NotFound, url, errors.Errorf("http %d", r.StatusCode))
		}
		if r.StatusCode == http.StatusUnauthorized {
			r.Body.Close()
			return galaxyerr.New(galaxyerr.Unauthorized, url, errors.Errorf("http %d", r.StatusCode))
		}
		if r.StatusCode >= 400 {
			r.Body.Close()
			return errors.Errorf("http %d fetching %s", r.StatusCode, url)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	return resp, nil
}

func formatRange(start, end int64) string {
	if end < 0 {
		return "bytes=" + strconv.FormatInt(start, 10) + "-"
	}
	return "bytes=" + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10)
}

// classify maps a transport-level failure (connection reset/abort, timeout,
// DNS failure) into a Transient galaxyerr.Error; anything else propagates
// unannotated.
func classify(url string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return galaxyerr.New(galaxyerr.Transient, url, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return galaxyerr.New(galaxyerr.Transient, url, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return galaxyerr.New(galaxyerr.Transient, url, err)
	}
	return err
}

func isRetryable(err error) bool {
	return galaxyerr.Is(err, galaxyerr.Transient)
}

// ReadBody drains and closes an *http.Response, returning its body bytes.
// Convenience for the many metadata endpoints that are small JSON blobs.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return b, errors.Wrap(err, "reading response body")
}
