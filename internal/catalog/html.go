package catalog

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// HTMLParser reads web-server style directory listings: one anchor per
// version directory, and one anchor per file in a version directory.
type HTMLParser struct{}

func init() {
	Register(&HTMLParser{})
}

// Format returns the registry name of the parser.
func (p *HTMLParser) Format() string { return "html" }

// hrefs returns every anchor href in document order. Malformed markup is
// tolerated; the tokenizer stops at the first hard error.
func hrefs(body []byte) []string {
	var out []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					out = append(out, strings.TrimSpace(string(val)))
				}
				if !more {
					break
				}
			}
		}
	}
}

// ParseCatalog harvests version directories. An href qualifies when its path
// starts with pathPrefix or, for relative hrefs, is a direct child of the
// listing. The first path segment after the prefix is the version.
func (p *HTMLParser) ParseCatalog(body []byte, pathPrefix string) []Entry {
	prefix := strings.TrimSpace(pathPrefix)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	for _, href := range hrefs(body) {
		u, err := url.Parse(href)
		if err != nil || u.Path == "" {
			continue
		}

		var rest string
		switch {
		case prefix != "" && strings.HasPrefix(u.Path, prefix):
			rest = u.Path[len(prefix):]
		case !u.IsAbs() && !strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "."):
			rest = u.Path
		default:
			continue
		}

		segment := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)[0]
		if segment == "" {
			continue
		}
		k := version.Parse(segment)
		if !k.IsValid() {
			continue
		}
		entries = append(entries, Entry{Version: k, RawSegment: segment})
	}
	return normalizeEntries(entries)
}

// ParseArtifacts harvests file references, skipping directories, parent
// links and sort/query links.
func (p *HTMLParser) ParseArtifacts(body []byte, base *url.URL) []ArtifactRef {
	var refs []ArtifactRef
	seen := make(map[string]bool)
	for _, href := range hrefs(body) {
		if !isFileHref(href) {
			continue
		}
		ref, ok := ResolveArtifactURL(base, href)
		if !ok || seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		refs = append(refs, ref)
	}
	return refs
}

func isFileHref(href string) bool {
	switch {
	case href == "", strings.HasPrefix(href, "#"), strings.HasPrefix(href, "?"):
		return false
	case strings.HasPrefix(href, "../"), href == "..", href == ".", href == "./":
		return false
	case strings.HasPrefix(strings.ToLower(href), "mailto:"), strings.HasPrefix(strings.ToLower(href), "javascript:"):
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Path != "" && !strings.HasSuffix(u.Path, "/")
}
