package catalog

import (
	"context"
	"net/url"
	"sort"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// normalizeEntries drops duplicate versions, keeping the first occurrence,
// and orders the rest newest first.
func normalizeEntries(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := e.Version.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return version.Compare(out[i].Version, out[j].Version) > 0
	})
	return out
}

// Index fetches the catalog directory document at dirURL and returns its
// entries newest first. An unreachable or empty catalog yields no entries:
// to the caller it is indistinguishable from a catalog without updates.
func Index(ctx context.Context, fetcher Fetcher, parser Parser, dirURL, pathPrefix string) []Entry {
	log := logger.Logger()

	body, err := fetcher.Fetch(ctx, dirURL)
	if err != nil {
		log.Debugf("catalog %s unavailable: %v", dirURL, err)
		return nil
	}
	if len(body) == 0 {
		log.Debugf("catalog %s returned an empty document", dirURL)
		return nil
	}

	entries := parser.ParseCatalog(body, pathPrefix)
	if base, err := url.Parse(dirURL); err == nil {
		for i := range entries {
			for j, a := range entries[i].Artifacts {
				if ref, ok := ResolveArtifactURL(base, a.URL); ok {
					ref.Filename = a.Filename
					entries[i].Artifacts[j] = ref
				}
			}
		}
	}
	log.Debugf("catalog %s lists %d versions", dirURL, len(entries))
	return entries
}

// Artifacts fetches the per-version sub-document at versionURL and returns
// the artifact references it lists. Fetch failures yield no artifacts.
func Artifacts(ctx context.Context, fetcher Fetcher, parser Parser, versionURL string) []ArtifactRef {
	log := logger.Logger()

	body, err := fetcher.Fetch(ctx, versionURL)
	if err != nil {
		log.Debugf("catalog version %s unavailable: %v", versionURL, err)
		return nil
	}
	base, err := url.Parse(versionURL)
	if err != nil {
		log.Debugf("catalog version url %s: %v", versionURL, err)
		return nil
	}
	return parser.ParseArtifacts(body, base)
}
