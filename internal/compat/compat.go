// Package compat decides whether a catalog version offers an artifact built
// for a given device, and picks that artifact.
package compat

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/catalog"
	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/general/slice"
)

// Rule names the evidence that accepted an artifact. Lower values win.
type Rule int

const (
	RuleNone Rule = iota
	RuleModel
	RuleModelSeries
	RulePlatform
	RuleArchitecture
)

func (r Rule) String() string {
	switch r {
	case RuleModel:
		return "model"
	case RuleModelSeries:
		return "model-series"
	case RulePlatform:
		return "platform"
	case RuleArchitecture:
		return "architecture"
	default:
		return "none"
	}
}

// Options tune a single Match call.
type Options struct {
	// AllowArchitecture enables the architecture-only rule, for packaging
	// conventions that carry no model or platform evidence.
	AllowArchitecture bool
	// RequireFamily restricts candidates to those naming this OS family.
	RequireFamily string
}

// Match is an accepted artifact together with the rule that accepted it.
type Match struct {
	Artifact catalog.ArtifactRef
	Rule     Rule
}

// Matcher applies the compatibility rules in priority order.
type Matcher struct {
	// GenericPlatforms are platform codenames too ambiguous to identify a
	// device alone (virtualized or generic builds); they need model evidence.
	GenericPlatforms []string
	// VariantMarkers maps each OS variant to the filename token marking it.
	// An empty marker never marks a filename.
	VariantMarkers map[device.OSVariant]string
}

// DefaultVariantMarkers is used when a Matcher has no VariantMarkers.
var DefaultVariantMarkers = map[device.OSVariant]string{
	device.VariantStandard: "",
	device.VariantUnified:  "uc",
}

// tokenChars are the characters that may belong to a match token. '+' is
// included so that a bare model never matches its "+" sibling.
const tokenChars = `a-z0-9+`

// tokenPattern compiles a case-insensitive pattern matching token only when
// it is not embedded in a longer token.
func tokenPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^` + tokenChars + `])` + regexp.QuoteMeta(token) + `($|[^` + tokenChars + `])`)
}

// HasToken reports whether filename contains token as a standalone token.
// Both sides are URL-decoded first.
func HasToken(filename, token string) bool {
	token = strings.TrimSpace(decode(token))
	if token == "" {
		return false
	}
	return tokenPattern(token).MatchString(decode(filename))
}

func decode(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

func (m *Matcher) marker(v device.OSVariant) string {
	markers := m.VariantMarkers
	if markers == nil {
		markers = DefaultVariantMarkers
	}
	return markers[v]
}

func (m *Matcher) isGenericPlatform(codename string) bool {
	return slice.ContainsFold(m.GenericPlatforms, codename)
}

// eligible drops candidates built for the other OS variant and, when
// requested, candidates not naming the OS family. A variant with an empty
// marker is identified by the absence of the other marker; a variant with a
// marker requires it.
func (m *Matcher) eligible(id device.Identity, candidates []catalog.ArtifactRef, opts Options) []catalog.ArtifactRef {
	own := m.marker(id.OSVariant)
	other := m.marker(id.OSVariant.Other())

	var out []catalog.ArtifactRef
	for _, c := range candidates {
		name := decode(c.Filename)
		if other != "" && HasToken(name, other) {
			continue
		}
		if own != "" && !HasToken(name, own) {
			continue
		}
		if opts.RequireFamily != "" && !HasToken(name, opts.RequireFamily) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Match returns the first artifact accepted by the highest-priority rule
// any candidate satisfies. Candidates are scanned in document order within
// a rule. ok is false when no candidate is compatible.
func (m *Matcher) Match(id device.Identity, candidates []catalog.ArtifactRef, opts Options) (Match, bool) {
	pool := m.eligible(id, candidates, opts)
	if len(pool) == 0 {
		return Match{}, false
	}

	type rule struct {
		rule  Rule
		match func(name string) bool
	}
	rules := []rule{
		{RuleModel, func(name string) bool { return HasToken(name, id.Model) }},
		{RuleModelSeries, func(name string) bool {
			return id.ModelSeries != "" && !strings.EqualFold(id.ModelSeries, id.Model) && HasToken(name, id.ModelSeries)
		}},
		{RulePlatform, func(name string) bool {
			if !HasToken(name, id.PlatformCodename) {
				return false
			}
			if !m.isGenericPlatform(id.PlatformCodename) {
				return true
			}
			return HasToken(name, id.Model) || HasToken(name, id.ModelSeries)
		}},
	}
	if opts.AllowArchitecture {
		rules = append(rules, rule{RuleArchitecture, func(name string) bool { return HasToken(name, id.Architecture) }})
	}

	for _, r := range rules {
		for _, c := range pool {
			if r.match(decode(c.Filename)) {
				return Match{Artifact: normalizeArtifact(c), Rule: r.rule}, true
			}
		}
	}
	return Match{}, false
}

// normalizeArtifact decodes the filename of the selected artifact and
// re-serializes its URL from the decoded path.
func normalizeArtifact(a catalog.ArtifactRef) catalog.ArtifactRef {
	a.Filename = decode(a.Filename)
	if u, err := url.Parse(a.URL); err == nil {
		u.RawPath = ""
		a.URL = u.String()
	}
	return a
}
