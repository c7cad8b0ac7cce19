package catalog

import (
	"encoding/json"
	"net/url"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// JSONParser reads catalogs published as JSON documents:
//
//	{"versions": [{"version": "1.2.3-4", "artifacts": [{"filename": "...", "url": "..."}]}]}
//
// A flat list of version strings is also accepted, in which case artifacts
// come from per-version sub-documents of the form {"artifacts": [...]}.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

type jsonArtifact struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type jsonVersion struct {
	Version   string         `json:"version"`
	Artifacts []jsonArtifact `json:"artifacts"`
}

// UnmarshalJSON accepts either an object or a bare version string.
func (v *jsonVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Version = s
		return nil
	}
	type plain jsonVersion
	return json.Unmarshal(data, (*plain)(v))
}

type jsonDocument struct {
	Versions  []jsonVersion  `json:"versions"`
	Artifacts []jsonArtifact `json:"artifacts"`
}

// Format returns the registry name of the parser.
func (p *JSONParser) Format() string { return "json" }

func decodeDocument(body []byte) (jsonDocument, bool) {
	var doc jsonDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		logger.Logger().Debugf("json catalog: %v", err)
		return doc, false
	}
	return doc, true
}

// ParseCatalog ignores pathPrefix: JSON catalogs carry versions explicitly.
func (p *JSONParser) ParseCatalog(body []byte, _ string) []Entry {
	doc, ok := decodeDocument(body)
	if !ok {
		return nil
	}

	var entries []Entry
	for _, v := range doc.Versions {
		k := version.Parse(v.Version)
		if !k.IsValid() {
			continue
		}
		e := Entry{Version: k, RawSegment: v.Version}
		for _, a := range v.Artifacts {
			if ref, ok := resolveJSONArtifact(nil, a); ok {
				e.Artifacts = append(e.Artifacts, ref)
			}
		}
		entries = append(entries, e)
	}
	return normalizeEntries(entries)
}

// ParseArtifacts reads the "artifacts" list of a per-version sub-document.
func (p *JSONParser) ParseArtifacts(body []byte, base *url.URL) []ArtifactRef {
	doc, ok := decodeDocument(body)
	if !ok {
		return nil
	}
	var refs []ArtifactRef
	for _, a := range doc.Artifacts {
		if ref, ok := resolveJSONArtifact(base, a); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func resolveJSONArtifact(base *url.URL, a jsonArtifact) (ArtifactRef, bool) {
	href := a.URL
	if href == "" {
		href = a.Filename
	}
	ref, ok := ResolveArtifactURL(base, href)
	if !ok {
		return ArtifactRef{}, false
	}
	if a.Filename != "" {
		if name, err := url.PathUnescape(a.Filename); err == nil {
			ref.Filename = name
		}
	}
	return ref, true
}
