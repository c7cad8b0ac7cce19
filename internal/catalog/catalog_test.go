package catalog

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
)

const packageListing = `<html><head><title>Index of /download/Package/spk/MediaServer/</title></head>
<body>
<h1>Index of /download/Package/spk/MediaServer/</h1>
<table>
<tr><th><a href="?C=N;O=D">Name</a></th></tr>
<tr><td><a href="/download/Package/spk/">Parent Directory</a></td></tr>
<tr><td><a href="/download/Package/spk/MediaServer/1.9.0-0100/">1.9.0-0100/</a></td></tr>
<tr><td><a href="/download/Package/spk/MediaServer/2.0.1-0200/">2.0.1-0200/</a></td></tr>
<tr><td><a href="/download/Package/spk/MediaServer/beta/">beta/</a></td></tr>
<tr><td><a href="2.0.0-0150/">2.0.0-0150/</a></td></tr>
<tr><td><a href="/download/Package/spk/MediaServer/2.0.1-0200-0/">dup</a></td></tr>
<tr><td><a href="https://elsewhere.example/3.0.0/">external</a></td></tr>
</table>
</body></html>`

const versionListing = `<html><body>
<a href="../">../</a>
<a href="?C=M;O=A">Last modified</a>
<a href="MediaServer-x86_64-2.0.1-0200.spk">MediaServer-x86_64-2.0.1-0200.spk</a>
<a href="MediaServer-armv8-2.0.1-0200.spk">MediaServer-armv8-2.0.1-0200.spk</a>
<a href="/download/Package/spk/MediaServer/2.0.1-0200/MediaServer-DS920%2B-2.0.1-0200.spk">encoded</a>
<a href="https://mirror.example/pkg/MediaServer-DS220j-2.0.1-0200.spk">mirror</a>
<a href="checksums/">checksums/</a>
<a href="MediaServer-x86_64-2.0.1-0200.spk">duplicate</a>
</body></html>`

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return u
}

func versions(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.RawSegment)
	}
	return out
}

func TestHTMLParseCatalog(t *testing.T) {
	p := &HTMLParser{}
	entries := p.ParseCatalog([]byte(packageListing), "/download/Package/spk/MediaServer")

	want := []string{"2.0.1-0200", "2.0.0-0150", "1.9.0-0100"}
	if got := versions(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCatalog() = %v, want %v", got, want)
	}
}

func TestHTMLParseCatalogTolerance(t *testing.T) {
	p := &HTMLParser{}
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty", "", 0},
		{"not html", "404 page not found", 0},
		{"unterminated markup", `<a href="1.0.0-1/">1.0.0-1</a><a href="2.0.0-2/`, 1},
		{"uppercase tags", `<A HREF="3.1.0-7/">3.1.0-7</A>`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(p.ParseCatalog([]byte(tc.body), "/pkg/")); got != tc.want {
				t.Errorf("got %d entries, want %d", got, tc.want)
			}
		})
	}
}

func TestHTMLParseArtifacts(t *testing.T) {
	p := &HTMLParser{}
	base := mustURL(t, "https://archive.example/download/Package/spk/MediaServer/2.0.1-0200/")
	refs := p.ParseArtifacts([]byte(versionListing), base)

	want := []ArtifactRef{
		{Filename: "MediaServer-x86_64-2.0.1-0200.spk", URL: "https://archive.example/download/Package/spk/MediaServer/2.0.1-0200/MediaServer-x86_64-2.0.1-0200.spk"},
		{Filename: "MediaServer-armv8-2.0.1-0200.spk", URL: "https://archive.example/download/Package/spk/MediaServer/2.0.1-0200/MediaServer-armv8-2.0.1-0200.spk"},
		{Filename: "MediaServer-DS920+-2.0.1-0200.spk", URL: "https://archive.example/download/Package/spk/MediaServer/2.0.1-0200/MediaServer-DS920+-2.0.1-0200.spk"},
		{Filename: "MediaServer-DS220j-2.0.1-0200.spk", URL: "https://mirror.example/pkg/MediaServer-DS220j-2.0.1-0200.spk"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("ParseArtifacts() =\n%+v\nwant\n%+v", refs, want)
	}
}

func TestJSONParser(t *testing.T) {
	p := &JSONParser{}
	doc := `{"versions": [
		"1.0.0-5",
		{"version": "1.2.0-9", "artifacts": [{"filename": "tool_x86_64_1.2.0-9.spk", "url": "https://c.example/tool/1.2.0-9/tool_x86_64_1.2.0-9.spk"}]},
		{"version": "nightly"}
	]}`
	entries := p.ParseCatalog([]byte(doc), "")
	if got := versions(entries); !reflect.DeepEqual(got, []string{"1.2.0-9", "1.0.0-5"}) {
		t.Fatalf("ParseCatalog() = %v", got)
	}
	if len(entries[0].Artifacts) != 1 || len(entries[1].Artifacts) != 0 {
		t.Fatalf("unexpected artifacts: %+v", entries)
	}

	sub := `{"artifacts": [{"filename": "tool_armv8_1.0.0-5.spk"}]}`
	refs := p.ParseArtifacts([]byte(sub), mustURL(t, "https://c.example/tool/1.0.0-5/"))
	want := []ArtifactRef{{Filename: "tool_armv8_1.0.0-5.spk", URL: "https://c.example/tool/1.0.0-5/tool_armv8_1.0.0-5.spk"}}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("ParseArtifacts() = %+v, want %+v", refs, want)
	}

	if got := p.ParseCatalog([]byte("{not json"), ""); got != nil {
		t.Errorf("expected nil entries for malformed json, got %v", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, format := range []string{"html", "json"} {
		p, ok := Get(format)
		if !ok || p.Format() != format {
			t.Errorf("parser %q not registered", format)
		}
	}
	if _, ok := Get("xml"); ok {
		t.Error("unexpected xml parser")
	}
	if got := Formats(); !reflect.DeepEqual(got, []string{"html", "json"}) {
		t.Errorf("Formats() = %v", got)
	}
}

func TestIndexFailSoft(t *testing.T) {
	failing := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	empty := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte{}, nil
	})

	if got := Index(context.Background(), failing, &HTMLParser{}, "https://x.example/pkg/", "/pkg/"); len(got) != 0 {
		t.Errorf("expected no entries on fetch failure, got %v", got)
	}
	if got := Index(context.Background(), empty, &HTMLParser{}, "https://x.example/pkg/", "/pkg/"); len(got) != 0 {
		t.Errorf("expected no entries on empty body, got %v", got)
	}
	if got := Artifacts(context.Background(), failing, &HTMLParser{}, "https://x.example/pkg/1.0/"); len(got) != 0 {
		t.Errorf("expected no artifacts on fetch failure, got %v", got)
	}
}

func TestIndexResolvesInlineArtifacts(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"versions":[{"version":"2.0.0-1","artifacts":[{"filename":"a_x86_64.spk","url":"2.0.0-1/a_x86_64.spk"}]}]}`), nil
	})
	entries := Index(context.Background(), fetcher, &JSONParser{}, "https://c.example/a/", "")
	if len(entries) != 1 || len(entries[0].Artifacts) != 1 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if got := entries[0].Artifacts[0].URL; got != "https://c.example/a/2.0.0-1/a_x86_64.spk" {
		t.Errorf("artifact URL = %s", got)
	}
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("https://a.example/os/", true, "/DSM/", "7.2.1-69057"); got != "https://a.example/os/DSM/7.2.1-69057/" {
		t.Errorf("JoinURL() = %s", got)
	}
	if got := JoinURL("https://a.example", false, "x", ""); got != "https://a.example/x" {
		t.Errorf("JoinURL() = %s", got)
	}
}

func FuzzHTMLParser(f *testing.F) {
	f.Add([]byte(packageListing), "/download/Package/spk/MediaServer/")
	f.Add([]byte(versionListing), "")
	f.Add([]byte("<a href="), "/")

	f.Fuzz(func(t *testing.T, body []byte, prefix string) {
		p := &HTMLParser{}
		entries := p.ParseCatalog(body, prefix)
		for i := 1; i < len(entries); i++ {
			if entries[i-1].Version.Less(entries[i].Version) {
				t.Fatalf("entries not sorted descending")
			}
		}
		for _, e := range entries {
			if !e.Version.IsValid() {
				t.Fatalf("invalid version %q propagated", e.RawSegment)
			}
		}
		_ = p.ParseArtifacts(body, nil)
	})
}
