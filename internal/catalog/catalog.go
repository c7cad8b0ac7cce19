// Package catalog harvests version identifiers and artifact references from
// remote catalog documents.
package catalog

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// ArtifactRef is one downloadable file listed in a catalog.
type ArtifactRef struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Entry is one version directory discovered in a catalog document.
type Entry struct {
	Version    version.Key
	RawSegment string
	// Artifacts is pre-populated by formats that list files inline; when
	// empty the per-version sub-document must be fetched.
	Artifacts []ArtifactRef
}

// Fetcher retrieves a catalog document body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// Parser turns catalog documents into entries and artifact references.
type Parser interface {
	// Format is the unique registry name, e.g. "html".
	Format() string

	// ParseCatalog harvests version entries found under pathPrefix in body.
	// Entries whose version segment fails to parse are dropped.
	ParseCatalog(body []byte, pathPrefix string) []Entry

	// ParseArtifacts harvests artifact references from a per-version
	// sub-document. Relative references are resolved against base.
	ParseArtifacts(body []byte, base *url.URL) []ArtifactRef
}

// ResolveArtifactURL decodes href and resolves it against base. The decoded
// form is used so that encoded token variants (e.g. %2B) never reach the
// final URL twice-encoded.
func ResolveArtifactURL(base *url.URL, href string) (ArtifactRef, bool) {
	decoded, err := url.PathUnescape(strings.TrimSpace(href))
	if err != nil || decoded == "" {
		return ArtifactRef{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ArtifactRef{}, false
	}

	var resolved *url.URL
	switch {
	case ref.IsAbs():
		resolved = &url.URL{Scheme: ref.Scheme, Host: ref.Host, Path: ref.Path, RawQuery: ref.RawQuery}
	case base != nil:
		resolved = base.ResolveReference(&url.URL{Path: ref.Path})
	default:
		resolved = &url.URL{Path: ref.Path}
	}

	name := path.Base(resolved.Path)
	if name == "." || name == "/" || name == "" {
		return ArtifactRef{}, false
	}
	return ArtifactRef{Filename: name, URL: resolved.String()}, true
}

// JoinURL joins path segments onto base, keeping exactly one slash between them
// and a trailing slash when dir is true.
func JoinURL(base string, dir bool, segments ...string) string {
	out := strings.TrimRight(base, "/")
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		out += "/" + s
	}
	if dir {
		out += "/"
	}
	return out
}
