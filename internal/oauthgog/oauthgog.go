// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package oauthgog is the one OAuth2 authorization-code exchange and
// refresh-token grant credprovider leaves as a caller-supplied
// dependency: a golang.org/x/oauth2.Config pointed at the content
// platform's own auth host, plus a credprovider.Refresher adapter over
// it.
package oauthgog

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// ClientID and ClientSecret are the GOG Galaxy client's published OAuth2
// credentials; the platform only requires a client secret, it never
// treats it as private for this client.
const (
	ClientID     = "46899977096215655"
	ClientSecret = "9d85c43b1482497dbbce61f6e4aa173a433796eeae2ca8c5f6129f2dc4de46d9"
	RedirectURI  = "https://embed.gog.com/on_login_success?origin=client"
	AuthURL      = "https://auth.gog.com/auth"
	TokenURL     = "https://auth.gog.com/token"
)

// Config returns the oauth2.Config for the galaxy_dl client, its token
// endpoint pointed at the content platform's own auth host.
func Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURL:  RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}

// ExchangeCode trades an authorization code (captured from the
// platform's redirect after an interactive login) for an initial
// access/refresh token pair.
func ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := Config().Exchange(ctx, code)
	return tok, errors.Wrap(err, "exchanging authorization code")
}

// Refresher adapts Config's TokenSource machinery to
// credprovider.Refresher, so a FileProvider can silently refresh an
// expired access token using its cached refresh token.
type Refresher struct{}

// Refresh exchanges refreshToken for a new access token via the
// standard OAuth2 refresh-token grant.
func (Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := Config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	return tok, errors.Wrap(err, "refreshing access token")
}
