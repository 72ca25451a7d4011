// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package credprovider implements the file-backed bearer token cache that
// pkg/transport.Session consults before every authenticated request. The
// OAuth2 authorization-code exchange itself (and any refresh-token grant)
// is a declared non-goal: acquisition and refresh are delegated to a
// caller-supplied oauth2.TokenSource, the same split used by
// golang.org/x/oauth2's own oauth2.Config.TokenSource.
package credprovider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// safetyMargin is subtracted from a token's expiry before it is considered
// stale, per the content-system client's refresh check.
const safetyMargin = 60 * time.Second

// storedToken is the on-disk schema at the platform-conventional
// configuration path: {access_token, refresh_token, expires_in, login_time}.
type storedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	LoginTime    int64  `json:"login_time"`
}

func (s storedToken) expired(now time.Time) bool {
	issued := time.Unix(s.LoginTime, 0)
	expiry := issued.Add(time.Duration(s.ExpiresIn) * time.Second)
	return !now.Before(expiry.Add(-safetyMargin))
}

func (s storedToken) toOAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Expiry:       time.Unix(s.LoginTime, 0).Add(time.Duration(s.ExpiresIn) * time.Second),
	}
}

func fromOAuth2(tok *oauth2.Token, loginTime time.Time) storedToken {
	return storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    int64(tok.Expiry.Sub(loginTime).Seconds()),
		LoginTime:    loginTime.Unix(),
	}
}

// Refresher exchanges a refresh token for a new access token. It is the one
// piece of the OAuth2 flow this package depends on without implementing.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// FileProvider is a transport.CredentialProvider backed by a JSON token file
// and an injected Refresher, mirroring the tokenFromFile/saveTokenToFile
// split of a conventional OAuth2 CLI login flow.
type FileProvider struct {
	path      string
	refresher Refresher

	mu  sync.Mutex
	tok storedToken
}

// NewFileProvider loads the token file at path. The file must already exist
// (produced by the login flow, out of scope for this package).
func NewFileProvider(path string, refresher Refresher) (*FileProvider, error) {
	p := &FileProvider{path: path, refresher: refresher}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) load() error {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return errors.Wrapf(err, "reading credential file %s", p.path)
	}
	var tok storedToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return errors.Wrap(err, "parsing credential file")
	}
	p.tok = tok
	return nil
}

func (p *FileProvider) save() error {
	b, err := json.MarshalIndent(p.tok, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling credential file")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return errors.Wrap(err, "creating credential directory")
	}
	return errors.Wrap(os.WriteFile(p.path, b, 0o600), "writing credential file")
}

// Token returns a bearer token, refreshing through the Refresher first if
// the cached token's issue time plus lifetime minus a 60s safety margin has
// already passed.
func (p *FileProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tok.expired(time.Now()) {
		tok, err := p.refresher.Refresh(ctx, p.tok.RefreshToken)
		if err != nil {
			return "", errors.Wrap(err, "refreshing token")
		}
		p.tok = fromOAuth2(tok, time.Now())
		if err := p.save(); err != nil {
			return "", err
		}
	}
	return p.tok.AccessToken, nil
}

// WriteInitialToken persists the first token obtained by a login flow to
// path, in the same schema FileProvider.load reads back. The
// authorization-code exchange that produces tok remains the caller's
// responsibility; this is just the write half of the save/load pair
// save() already implements for refreshes.
func WriteInitialToken(path string, tok *oauth2.Token, loginTime time.Time) error {
	p := &FileProvider{path: path, tok: fromOAuth2(tok, loginTime)}
	return p.save()
}

// DefaultPath returns the platform-conventional configuration path for the
// credential file, honoring XDG_CONFIG_HOME when set.
func DefaultPath(appName string) string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "credentials.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName, "credentials.json")
	}
	return filepath.Join(home, ".config", appName, "credentials.json")
}
