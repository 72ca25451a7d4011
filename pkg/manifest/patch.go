// Copyright 2026 The galaxydl Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"context"

	"github.com/galaxy-archive/galaxydl/pkg/contentsystem"
)

// PatchFetcher is the subset of contentsystem.Client a patch resolution
// needs: the patches endpoint and raw manifest bytes for per-depot patch
// manifests.
type PatchFetcher interface {
	Patches(ctx context.Context, productID, fromBuildID, toBuildID string) (*contentsystem.Patches, error)
	GetManifest(ctx context.Context, productID, platform, identifier string, generation int) ([]byte, error)
}

// GetPatch resolves patch availability between newManifest and
// oldManifest for a given language, per the platform's xdelta3 patch
// pipeline. It returns nil (no error) whenever patching is unavailable:
// either manifest is V1, either lacks a BuildID, the endpoint reports no
// patch or an error, or the root patch's algorithm isn't "xdelta3".
func GetPatch(ctx context.Context, fetcher PatchFetcher, newManifest, oldManifest *Manifest, language string, extraProductIDs []string) (*Manifest, error) {
	if newManifest.Generation != GenV2 || oldManifest.Generation != GenV2 {
		return nil, nil
	}
	if newManifest.BuildID == "" || oldManifest.BuildID == "" {
		return nil, nil
	}
	patches, err := fetcher.Patches(ctx, newManifest.ProductID, oldManifest.BuildID, newManifest.BuildID)
	if err != nil {
		return nil, err
	}
	if patches == nil || patches.Error != "" {
		return nil, nil
	}
	if patches.Algorithm != "xdelta3" {
		return nil, nil
	}

	wantProducts := map[string]bool{newManifest.ProductID: true}
	for _, p := range extraProductIDs {
		wantProducts[p] = true
	}

	out := &Manifest{Generation: GenV2, ProductID: newManifest.ProductID, BuildID: newManifest.BuildID}
	for _, depot := range patches.Depots {
		if !wantProducts[depot.ProductID] {
			continue
		}
		if !containsLanguage(depot.Languages, language) {
			continue
		}
		body, err := fetcher.GetManifest(ctx, depot.ProductID, "", depot.Manifest, 2)
		if err != nil {
			return nil, err
		}
		depotManifest, err := ParseV2(body)
		if err != nil {
			return nil, err
		}
		out.Patches = append(out.Patches, depotManifest.Patches...)
	}
	if len(out.Patches) == 0 {
		return nil, nil
	}
	return out, nil
}

func containsLanguage(languages []string, want string) bool {
	if want == "" {
		return true
	}
	for _, l := range languages {
		if l == "*" || l == want {
			return true
		}
	}
	return false
}

// Get looks up the patch chunks that transform oldHash into this
// manifest's new content at path, returning (entry, true) if found.
func (m *Manifest) Get(path string) (PatchEntry, bool) {
	for _, p := range m.Patches {
		if p.TargetPath == path {
			return p, true
		}
	}
	return PatchEntry{}, false
}
