// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentsystem is a typed client for the content-delivery
// platform's build/manifest/patch API: the thin layer every higher-level
// component (manifest parsing, download, mirroring) resolves builds and
// CDN endpoints through.
package contentsystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/galaxy-archive/galaxydl/internal/cache"
	"github.com/galaxy-archive/galaxydl/pkg/galaxyerr"
	"github.com/galaxy-archive/galaxydl/pkg/galaxypath"
	"github.com/galaxy-archive/galaxydl/pkg/transport"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// DefaultBaseURL is the platform's content-system API host.
const DefaultBaseURL = "https://api.gog.com"

// Client is a typed wrapper around a transport.Session for the
// content-system endpoints: builds, manifests, secure links, patches.
type Client struct {
	sess      *transport.Session
	baseURL   string
	linkCache cache.Cache
}

// New constructs a Client. sess must already carry whatever
// CredentialProvider the caller wants attached to authenticated calls.
func New(sess *transport.Session, opts ...Option) *Client {
	c := &Client{
		sess:      sess,
		baseURL:   DefaultBaseURL,
		linkCache: &cache.CoalescingMemoryCache{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, primarily for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithLinkCache overrides the secure-link cache (default: an in-process
// CoalescingMemoryCache).
func WithLinkCache(ch cache.Cache) Option {
	return func(c *Client) { c.linkCache = ch }
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.sess.Get(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return err
	}
	return decodeJSON(body, out)
}

// decodeJSON inflates a zlib-wrapped body before parsing; any
// decompression failure falls back to a raw-JSON parse attempt before the
// caller sees an error.
func decodeJSON(body []byte, out any) error {
	if len(body) >= 2 && galaxypath.HasZlibPrefix(body) {
		if plain, err := inflate(body); err == nil {
			body = plain
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return galaxyerr.New(galaxyerr.SchemaError, "decode json", err)
	}
	return nil
}

func inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// ListBuilds fetches one generation's builds list for a product/platform.
// Per the platform's asymmetric listing, callers that want a complete
// picture should use ListAllBuilds instead.
func (c *Client) ListBuilds(ctx context.Context, productID, platform string, generation int) ([]Build, error) {
	path := fmt.Sprintf("/products/%s/os/%s/builds?generation=%d", productID, platform, generation)
	var resp buildsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, errors.Wrapf(err, "listing generation %d builds for %s/%s", generation, productID, platform)
	}
	for i := range resp.Items {
		resp.Items[i].Generation = generation
	}
	return resp.Items, nil
}

// ListAllBuildsOptions configures ListAllBuilds.
type ListAllBuildsOptions struct {
	// IncludeDelisted additionally merges builds reported only via the
	// platform's delisted-builds surface, which neither generation=1 nor
	// generation=2 listings include.
	IncludeDelisted bool
}

// ListAllBuilds queries both generations, merges by BuildID (first-seen
// wins), and sorts by DatePublished descending, per the platform's
// asymmetric listing quirk.
func (c *Client) ListAllBuilds(ctx context.Context, productID, platform string, opts ListAllBuildsOptions) ([]Build, error) {
	gen1, err := c.ListBuilds(ctx, productID, platform, 1)
	if err != nil {
		return nil, err
	}
	gen2, err := c.ListBuilds(ctx, productID, platform, 2)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(gen1)+len(gen2))
	var merged []Build
	for _, b := range append(append([]Build{}, gen1...), gen2...) {
		if seen[b.BuildID] {
			continue
		}
		seen[b.BuildID] = true
		merged = append(merged, b)
	}
	if opts.IncludeDelisted {
		delisted, err := c.listDelistedBuilds(ctx, productID, platform)
		if err != nil {
			return nil, err
		}
		for _, b := range delisted {
			if seen[b.BuildID] {
				continue
			}
			seen[b.BuildID] = true
			merged = append(merged, b)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DatePublished > merged[j].DatePublished
	})
	return merged, nil
}

func (c *Client) listDelistedBuilds(ctx context.Context, productID, platform string) ([]Build, error) {
	path := fmt.Sprintf("/products/%s/os/%s/builds?generation=2&delisted=1", productID, platform)
	var resp buildsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		if galaxyerr.Is(err, galaxyerr.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "listing delisted builds")
	}
	return resp.Items, nil
}

// GetManifest fetches a manifest's raw decompressed bytes for an explicit
// generation. Parsing into the V1/V2 structures is pkg/manifest's job.
// Generation 1 is not addressable here: a V1 manifest lives under its
// build's timestamp directory (…/{ts}/{manifestID}.json), which this
// signature has no room for — use GetV1Manifest instead.
func (c *Client) GetManifest(ctx context.Context, productID, platform, identifier string, generation int) ([]byte, error) {
	var path string
	switch generation {
	case 1:
		return nil, errors.New("generation 1 manifests require a timestamp: use GetV1Manifest")
	case 2:
		path = "/content-system/v2/meta/" + galaxypath.Galaxy(identifier)
	default:
		return nil, errors.Errorf("unknown generation %d", generation)
	}
	resp, err := c.sess.Get(ctx, c.baseURL+path)
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if len(body) >= 2 && galaxypath.HasZlibPrefix(body) {
		if plain, err := inflate(body); err == nil {
			return plain, nil
		}
	}
	return body, nil
}

// GetRepository fetches a V1 build's repository.json.
func (c *Client) GetRepository(ctx context.Context, productID, platform, timestamp string) ([]byte, error) {
	path := fmt.Sprintf("/content-system/v1/manifests/%s/%s/%s/repository.json", productID, platform, timestamp)
	resp, err := c.sess.Get(ctx, c.baseURL+path)
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if len(body) >= 2 && galaxypath.HasZlibPrefix(body) {
		if plain, err := inflate(body); err == nil {
			return plain, nil
		}
	}
	return body, nil
}

// GetV1Manifest fetches one per-language manifest file of a V1 build:
// …/v1/manifests/{productID}/{platform}/{timestamp}/{manifestID}.json.
func (c *Client) GetV1Manifest(ctx context.Context, productID, platform, timestamp, manifestID string) ([]byte, error) {
	path := fmt.Sprintf("/content-system/v1/manifests/%s/%s/%s/%s.json", productID, platform, timestamp, manifestID)
	resp, err := c.sess.Get(ctx, c.baseURL+path)
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if len(body) >= 2 && galaxypath.HasZlibPrefix(body) {
		if plain, err := inflate(body); err == nil {
			return plain, nil
		}
	}
	return body, nil
}

// AutoDetectManifest resolves a manifest by identifier alone: it probes V1
// first (identifier as a build timestamp, via repository.json), then V2
// (identifier as a depot hash), and reports which generation matched.
func (c *Client) AutoDetectManifest(ctx context.Context, productID, platform, identifier string) (body []byte, generation int, err error) {
	if body, err = c.GetRepository(ctx, productID, platform, identifier); err == nil {
		if json.Valid(body) {
			return body, 1, nil
		}
	}
	if body, err = c.GetManifest(ctx, productID, platform, identifier, 2); err == nil {
		if json.Valid(body) {
			return body, 2, nil
		}
	}
	return nil, 0, galaxyerr.New(galaxyerr.ManifestNotFound, identifier, errors.New("neither V1 nor V2 manifest resolved"))
}

// linkCacheKey identifies a cached secure link.
type linkCacheKey struct {
	productID  string
	path       string
	generation int
}

// SecureLink resolves a caller-supplied path to a materialized CDN URL
// template (still containing the literal "{GALAXY_PATH}" placeholder for
// the download engine to substitute per chunk). preferredEndpoints names
// CDN endpoints in priority order; endpoints not named fall back to
// response order.
func (c *Client) SecureLink(ctx context.Context, productID, path string, generation int, preferredEndpoints []string) (string, error) {
	key := linkCacheKey{productID, path, generation}
	v, err := c.linkCache.GetOrSet(key, func() (any, error) {
		return c.fetchSecureLink(ctx, productID, path, generation, preferredEndpoints)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchSecureLink(ctx context.Context, productID, path string, generation int, preferredEndpoints []string) (string, error) {
	q := url.Values{}
	q.Set("generation", fmt.Sprintf("%d", generation))
	q.Set("path", path)
	apiPath := fmt.Sprintf("/products/%s/secure_link?%s", productID, q.Encode())
	var resp secureLinkResponse
	if err := c.getJSON(ctx, apiPath, &resp); err != nil {
		return "", errors.Wrapf(err, "fetching secure link for %s", path)
	}
	if len(resp.URLs) == 0 {
		return "", errors.Errorf("no CDN endpoints returned for %s", path)
	}
	endpoint := chooseEndpoint(resp.URLs, preferredEndpoints)
	return materialize(endpoint), nil
}

// chooseEndpoint prioritizes endpoints by name according to preferred
// (in order); any endpoint not named in preferred falls back to its
// position in the response.
func chooseEndpoint(endpoints []CDNEndpoint, preferred []string) CDNEndpoint {
	for _, name := range preferred {
		for _, e := range endpoints {
			if e.Name == name {
				return e
			}
		}
	}
	return endpoints[0]
}

func materialize(e CDNEndpoint) string {
	out := e.URLFormat
	for k, v := range e.Parameters {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// Patches queries the patch endpoint for a (fromBuildID, toBuildID) pair.
func (c *Client) Patches(ctx context.Context, productID, fromBuildID, toBuildID string) (*Patches, error) {
	path := fmt.Sprintf("/products/%s/patches?_version=4&from_build_id=%s&to_build_id=%s", productID, fromBuildID, toBuildID)
	var p Patches
	if err := c.getJSON(ctx, path, &p); err != nil {
		return nil, errors.Wrap(err, "fetching patches")
	}
	if p.Error != "" {
		return nil, nil
	}
	return &p, nil
}

// ProductInfo fetches minimal product metadata for display purposes. This
// is not a catalog-browsing facility: it returns only what is needed to
// print a human-readable title alongside a build or archive.
func (c *Client) ProductInfo(ctx context.Context, productID string) (*ProductInfo, error) {
	path := "/products/" + productID + "?expand=title"
	var info ProductInfo
	if err := c.getJSON(ctx, path, &info); err != nil {
		return nil, errors.Wrapf(err, "fetching product info for %s", productID)
	}
	return &info, nil
}
