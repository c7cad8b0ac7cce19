package compat

import (
	"testing"

	"github.com/open-edge-platform/appliance-update-tool/internal/catalog"
	"github.com/open-edge-platform/appliance-update-tool/internal/device"
)

func testIdentity() device.Identity {
	return device.Identity{
		Product:          "DiskStation",
		Model:            "DS920+",
		ModelSeries:      "920+",
		PlatformCodename: "geminilake",
		Architecture:     "x86_64",
		OSVariant:        device.VariantStandard,
		OSFamily:         "DSM",
	}
}

func refs(names ...string) []catalog.ArtifactRef {
	out := make([]catalog.ArtifactRef, 0, len(names))
	for _, n := range names {
		out = append(out, catalog.ArtifactRef{Filename: n, URL: "https://cat.example/v/" + n})
	}
	return out
}

func TestHasToken(t *testing.T) {
	tests := []struct {
		filename string
		token    string
		want     bool
	}{
		{"DSM_DS920+_69057.pat", "DS920+", true},
		{"DSM_DS920+_69057.pat", "ds920+", true},
		{"DSM_DS920%2B_69057.pat", "DS920+", true},
		{"DSM_DS920+_69057.pat", "DS920%2B", true},
		{"DSM_DS920+_69057.pat", "DS920", false},
		{"DSM_DS920_69057.pat", "DS920+", false},
		{"pkg-x86_64-1.0.spk", "x86_64", true},
		{"pkg-x86_64-1.0.spk", "x86", false},
		{"pkg-geminilake-1.0.spk", "gemini", false},
		{"anything", "", false},
	}
	for _, tc := range tests {
		if got := HasToken(tc.filename, tc.token); got != tc.want {
			t.Errorf("HasToken(%q, %q) = %v, want %v", tc.filename, tc.token, got, tc.want)
		}
	}
}

func TestMatchPriority(t *testing.T) {
	m := &Matcher{GenericPlatforms: []string{"kvmx64"}}
	id := testIdentity()

	tests := []struct {
		name       string
		candidates []catalog.ArtifactRef
		opts       Options
		id         func(device.Identity) device.Identity
		wantFile   string
		wantRule   Rule
		wantOK     bool
	}{
		{
			name:       "model wins over earlier architecture candidate",
			candidates: refs("App-x86_64-2.0.spk", "App-geminilake-2.0.spk", "App-DS920+-2.0.spk"),
			opts:       Options{AllowArchitecture: true},
			wantFile:   "App-DS920+-2.0.spk",
			wantRule:   RuleModel,
			wantOK:     true,
		},
		{
			name:       "model series before platform",
			candidates: refs("App-geminilake-2.0.spk", "App-920+-2.0.spk"),
			wantFile:   "App-920+-2.0.spk",
			wantRule:   RuleModelSeries,
			wantOK:     true,
		},
		{
			name:       "platform codename alone",
			candidates: refs("App-apollolake-2.0.spk", "App-geminilake-2.0.spk"),
			wantFile:   "App-geminilake-2.0.spk",
			wantRule:   RulePlatform,
			wantOK:     true,
		},
		{
			name:       "architecture only when allowed",
			candidates: refs("App-armv8-2.0.spk", "App-x86_64-2.0.spk"),
			opts:       Options{AllowArchitecture: true},
			wantFile:   "App-x86_64-2.0.spk",
			wantRule:   RuleArchitecture,
			wantOK:     true,
		},
		{
			name:       "architecture rejected when not allowed",
			candidates: refs("App-x86_64-2.0.spk"),
			wantOK:     false,
		},
		{
			name:       "other variant excluded despite model token",
			candidates: refs("DSM_uc_DS920+_69057.pat"),
			opts:       Options{RequireFamily: "DSM"},
			wantOK:     false,
		},
		{
			name:       "family required for OS images",
			candidates: refs("BSM_DS920+_69057.pat", "DSM_DS920+_69057.pat"),
			opts:       Options{RequireFamily: "DSM"},
			wantFile:   "DSM_DS920+_69057.pat",
			wantRule:   RuleModel,
			wantOK:     true,
		},
		{
			name:       "encoded filename decoded in selection",
			candidates: []catalog.ArtifactRef{{Filename: "DSM_DS920%2B_69057.pat", URL: "https://cat.example/os/DSM_DS920%2B_69057.pat"}},
			opts:       Options{RequireFamily: "DSM"},
			wantFile:   "DSM_DS920+_69057.pat",
			wantRule:   RuleModel,
			wantOK:     true,
		},
		{
			name:       "generic platform requires model evidence",
			candidates: refs("DSM_kvmx64_69057.pat"),
			id: func(d device.Identity) device.Identity {
				d.Model, d.ModelSeries, d.PlatformCodename = "VirtualDSM", "VirtualDSM", "kvmx64"
				return d
			},
			wantOK: false,
		},
		{
			name:       "generic platform with unrelated model",
			candidates: refs("DSM_VirtualDSM_kvmx64_69057.pat"),
			id: func(d device.Identity) device.Identity {
				d.Model, d.ModelSeries, d.PlatformCodename = "VDSM", "", "kvmx64"
				return d
			},
			wantOK: false,
		},
		{
			name:       "unified device accepts its own marker",
			candidates: refs("DSM_uc_DS920+_69057.pat"),
			id: func(d device.Identity) device.Identity {
				d.OSVariant = device.VariantUnified
				return d
			},
			wantFile: "DSM_uc_DS920+_69057.pat",
			wantRule: RuleModel,
			wantOK:   true,
		},
		{
			name:       "unified device skips earlier standard image",
			candidates: refs("DSM_DS920+_69057.pat", "DSM_uc_DS920+_69057.pat"),
			opts:       Options{RequireFamily: "DSM"},
			id: func(d device.Identity) device.Identity {
				d.OSVariant = device.VariantUnified
				return d
			},
			wantFile: "DSM_uc_DS920+_69057.pat",
			wantRule: RuleModel,
			wantOK:   true,
		},
		{
			name:       "unified device rejects standard-only images",
			candidates: refs("DSM_DS920+_69057.pat", "DSM_geminilake_69057.pat"),
			opts:       Options{RequireFamily: "DSM"},
			id: func(d device.Identity) device.Identity {
				d.OSVariant = device.VariantUnified
				return d
			},
			wantOK: false,
		},
		{
			name:       "standard device skips earlier unified image",
			candidates: refs("DSM_uc_DS920+_69057.pat", "DSM_DS920+_69057.pat"),
			opts:       Options{RequireFamily: "DSM"},
			wantFile:   "DSM_DS920+_69057.pat",
			wantRule:   RuleModel,
			wantOK:     true,
		},
		{
			name:   "no candidates",
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dev := id
			if tc.id != nil {
				dev = tc.id(id)
			}
			got, ok := m.Match(dev, tc.candidates, tc.opts)
			if ok != tc.wantOK {
				t.Fatalf("Match() ok = %v, want %v (got %+v)", ok, tc.wantOK, got)
			}
			if !ok {
				return
			}
			if got.Artifact.Filename != tc.wantFile {
				t.Errorf("Match() file = %q, want %q", got.Artifact.Filename, tc.wantFile)
			}
			if got.Rule != tc.wantRule {
				t.Errorf("Match() rule = %s, want %s", got.Rule, tc.wantRule)
			}
		})
	}
}

func TestMatchGenericPlatformWithModel(t *testing.T) {
	m := &Matcher{GenericPlatforms: []string{"kvmx64"}}
	id := device.Identity{Model: "VirtualDSM", PlatformCodename: "kvmx64", Architecture: "x86_64"}

	got, ok := m.Match(id, refs("DSM_kvmx64_VirtualDSM_69057.pat"), Options{})
	if !ok || got.Rule != RuleModel {
		t.Fatalf("expected model match, got %+v ok=%v", got, ok)
	}
}

func TestMatchSelectedURLIsDecoded(t *testing.T) {
	m := &Matcher{}
	got, ok := m.Match(testIdentity(), []catalog.ArtifactRef{
		{Filename: "DSM_DS920%2B_69057.pat", URL: "https://cat.example/os/DSM_DS920%2B_69057.pat"},
	}, Options{})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Artifact.URL != "https://cat.example/os/DSM_DS920+_69057.pat" {
		t.Errorf("URL = %s", got.Artifact.URL)
	}
}

func TestRuleString(t *testing.T) {
	if RuleModelSeries.String() != "model-series" || RuleNone.String() != "none" {
		t.Error("unexpected rule names")
	}
}
