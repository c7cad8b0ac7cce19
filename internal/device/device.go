// Package device describes the appliance being updated: its identity and its
// installed package inventory.
package device

import (
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/general/slice"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// OSVariant names one of the two mutually exclusive kernel families an OS
// image is built for.
type OSVariant string

const (
	VariantStandard OSVariant = "standard"
	VariantUnified  OSVariant = "unified"
)

// Other returns the mutually exclusive counterpart of v.
func (v OSVariant) Other() OSVariant {
	if v == VariantUnified {
		return VariantStandard
	}
	return VariantUnified
}

// ParseVariant maps a raw variant name onto an OSVariant, defaulting to standard.
func ParseVariant(s string) OSVariant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(VariantUnified), "uc":
		return VariantUnified
	default:
		return VariantStandard
	}
}

// Identity is the fixed set of device facts used to judge artifact
// compatibility. It is built once per run and never mutated.
type Identity struct {
	Product            string
	Model              string
	ModelSeries        string
	PlatformCodename   string
	Architecture       string
	OSVariant          OSVariant
	OSFamily           string
	InstalledOSVersion version.Key
}

// SourceClass classifies an installed package by its distributor.
type SourceClass int

const (
	SourceUnknown SourceClass = iota
	SourceOfficial
	SourceCommunity
)

func (c SourceClass) String() string {
	switch c {
	case SourceOfficial:
		return "Official"
	case SourceCommunity:
		return "Community"
	default:
		return "Unknown"
	}
}

// Classify derives a SourceClass from a distributor attribute. An empty
// distributor or one of vendorNames is Official, anything else is Community.
func Classify(distributor string, vendorNames []string) SourceClass {
	d := strings.TrimSpace(distributor)
	if d == "" {
		return SourceOfficial
	}
	if slice.ContainsFold(vendorNames, d) {
		return SourceOfficial
	}
	return SourceCommunity
}

// DistributorKey turns a free-form distributor name into a lookup key:
// lower case, alphanumerics only.
func DistributorKey(distributor string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(distributor) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RunningState is the lifecycle state of an installed package.
type RunningState int

const (
	StateUnknown RunningState = iota
	StateRunning
	StateStopped
)

func (s RunningState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// InventoryItem is one installed application package.
type InventoryItem struct {
	Name             string
	DisplayName      string
	InstalledVersion version.Key
	Distributor      string
	SourceClass      SourceClass
	RunningState     RunningState
}

// ModelSeries strips the leading product-family prefix from a model name.
// Known prefixes are tried first, longest match wins; otherwise every
// leading letter is dropped.
func ModelSeries(model string, familyPrefixes []string) string {
	m := strings.TrimSpace(model)
	best := ""
	for _, p := range familyPrefixes {
		if p != "" && len(p) > len(best) && len(p) < len(m) && strings.EqualFold(m[:len(p)], p) {
			best = p
		}
	}
	if best != "" {
		return m[len(best):]
	}
	i := 0
	for i < len(m) && ((m[i] >= 'a' && m[i] <= 'z') || (m[i] >= 'A' && m[i] <= 'Z')) {
		i++
	}
	if i == len(m) {
		return m
	}
	return m[i:]
}
