// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package contentsystem

// Build identifies a single release of a product.
type Build struct {
	BuildID       string `json:"build_id"`
	Generation    int    `json:"generation"`
	Platform      string `json:"os"`
	DatePublished string `json:"date_published"`
	// RepositoryID is the V1 repository timestamp (generation 1 only).
	RepositoryID string `json:"legacy_build_id,omitempty"`
	// DepotHash is the V2 depot descriptor hash (generation 2 only).
	DepotHash string `json:"link,omitempty"`
	Branch    string `json:"branch,omitempty"`
}

type buildsResponse struct {
	Items []Build `json:"items"`
}

// CDNEndpoint is one CDN entry returned by the secure-link endpoint.
type CDNEndpoint struct {
	URLFormat  string            `json:"url_format"`
	Parameters map[string]string `json:"parameters"`
	Name       string            `json:"endpoint_name"`
	Priority   int               `json:"priority"`
}

type secureLinkResponse struct {
	URLs []CDNEndpoint `json:"urls"`
}

// Patches is the root patch manifest response from the patches endpoint.
type Patches struct {
	Algorithm string          `json:"algorithm"`
	Error     string          `json:"error,omitempty"`
	Depots    []PatchDepotRef `json:"depots"`
}

// PatchDepotRef points at one per-depot patch manifest.
type PatchDepotRef struct {
	ProductID string   `json:"productId"`
	Languages []string `json:"languages"`
	Manifest  string   `json:"manifest"`
}

// ProductInfo is the minimal product metadata used to print a human title;
// it is not a general catalog-browsing facility.
type ProductInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
