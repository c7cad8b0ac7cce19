// Package resolver walks the ordered update sources for each installed item
// and reports the latest compatible artifact newer than what is installed.
package resolver

import (
	"context"
	"net/url"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/open-edge-platform/appliance-update-tool/internal/catalog"
	"github.com/open-edge-platform/appliance-update-tool/internal/compat"
	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// SourceKind identifies the stage of the chain that produced a result.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceLocal
	SourcePrimary
	SourceSecondary
)

func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourcePrimary:
		return "primary"
	case SourceSecondary:
		return "secondary"
	default:
		return "none"
	}
}

// Result is the outcome of resolving one inventory item or the OS.
// UpdateAvailable implies SelectedArtifact is set and LatestVersion is newer
// than InstalledVersion.
type Result struct {
	Name             string
	SourceClass      device.SourceClass
	InstalledVersion version.Key
	LatestVersion    version.Key
	UpdateAvailable  bool
	SelectedArtifact *catalog.ArtifactRef
	SourceUsed       SourceKind
	SourceKey        string
	MatchRule        compat.Rule
}

// LocalUpdate is an update announced by the device's own package channel.
type LocalUpdate struct {
	Version  version.Key
	Artifact catalog.ArtifactRef
}

// LocalChannel asks the device's own update channel about an item. A nil
// update with a nil error means the channel knows of nothing newer.
type LocalChannel interface {
	CheckLocalUpdate(ctx context.Context, name string) (*LocalUpdate, error)
}

// Source is one remote catalog: a base directory holding one sub-directory
// per item name, each holding one sub-directory per version.
type Source struct {
	Key     string
	BaseURL string
	// Format selects the catalog parser, "html" when empty.
	Format string
	// IndexFile is appended to directory URLs for formats that do not serve
	// directory listings, e.g. "index.json".
	IndexFile string
	// Distributors restricts a secondary source to items whose distributor
	// key is listed. Empty accepts every community item.
	Distributors []string
	// AllowArchitecture accepts artifacts identified by architecture only.
	AllowArchitecture bool
}

func (s Source) parser() (catalog.Parser, bool) {
	format := s.Format
	if format == "" {
		format = "html"
	}
	return catalog.Get(format)
}

func (s Source) serves(distributorKey string) bool {
	if len(s.Distributors) == 0 {
		return true
	}
	for _, d := range s.Distributors {
		if device.DistributorKey(d) == distributorKey {
			return true
		}
	}
	return false
}

// Chain is the ordered set of update sources.
type Chain struct {
	Fetcher catalog.Fetcher
	Matcher *compat.Matcher
	// Local is consulted first when set.
	Local   LocalChannel
	Primary Source
	// OS is rooted at a directory holding one sub-directory per OS family.
	OS Source
	// Secondary holds the known community catalogs by key; SecondaryOrder is
	// the configured order they are tried in.
	Secondary      map[string]Source
	SecondaryOrder []string
	// Workers bounds ResolveAll; values below 1 mean one worker.
	Workers int
}

// found is the first compatible, strictly newer artifact of a source.
type found struct {
	version version.Key
	match   compat.Match
}

func noUpdate(name string, class device.SourceClass, installed version.Key) Result {
	return Result{
		Name:             name,
		SourceClass:      class,
		InstalledVersion: installed,
		LatestVersion:    installed,
		SourceUsed:       SourceNone,
	}
}

// ResolveItem resolves one inventory item through the local channel, the
// primary catalog (official or unclassified items) and the secondary
// catalogs (community items), stopping at the first compatible update.
func (c *Chain) ResolveItem(ctx context.Context, id device.Identity, item device.InventoryItem) Result {
	log := logger.Logger()
	res := noUpdate(item.Name, item.SourceClass, item.InstalledVersion)

	if !item.InstalledVersion.IsValid() {
		log.Debugf("%s: installed version %q is not parseable, skipping", item.Name, item.InstalledVersion.Raw())
		return res
	}

	if r := c.fromLocal(ctx, item); r != nil {
		return *r
	}

	switch item.SourceClass {
	case device.SourceOfficial, device.SourceUnknown:
		if f := c.scan(ctx, id, c.Primary, item.Name, item.InstalledVersion, c.packageOptions(c.Primary)); f != nil {
			return f.result(res, SourcePrimary, c.Primary.Key)
		}
	case device.SourceCommunity:
		key := device.DistributorKey(item.Distributor)
		for _, name := range c.SecondaryOrder {
			src, ok := c.Secondary[name]
			if !ok {
				log.Debugf("%s: secondary catalog %q is not configured, skipping", item.Name, name)
				continue
			}
			if !src.serves(key) {
				continue
			}
			if f := c.scan(ctx, id, src, item.Name, item.InstalledVersion, c.packageOptions(src)); f != nil {
				return f.result(res, SourceSecondary, name)
			}
		}
	}

	log.Debugf("%s: no compatible update newer than %s", item.Name, item.InstalledVersion)
	return res
}

// ResolveOS resolves the base OS image against the OS catalog only. The
// artifact must name the installed OS family; architecture evidence alone is
// not accepted.
func (c *Chain) ResolveOS(ctx context.Context, id device.Identity) Result {
	res := noUpdate(id.OSFamily, device.SourceOfficial, id.InstalledOSVersion)
	if id.OSFamily == "" || !id.InstalledOSVersion.IsValid() {
		logger.Logger().Debugf("os: family %q or version %q unknown, skipping", id.OSFamily, id.InstalledOSVersion.Raw())
		return res
	}

	opts := compat.Options{RequireFamily: id.OSFamily}
	if f := c.scan(ctx, id, c.OS, id.OSFamily, id.InstalledOSVersion, opts); f != nil {
		return f.result(res, SourcePrimary, c.OS.Key)
	}
	return res
}

// ResolveAll resolves items concurrently on a bounded pool. Results keep
// the inventory order.
func (c *Chain) ResolveAll(ctx context.Context, id device.Identity, items []device.InventoryItem) []Result {
	results := make([]Result, len(items))

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = c.ResolveItem(gctx, id, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Chain) matcher() *compat.Matcher {
	if c.Matcher == nil {
		return &compat.Matcher{}
	}
	return c.Matcher
}

func (c *Chain) packageOptions(src Source) compat.Options {
	return compat.Options{AllowArchitecture: src.AllowArchitecture}
}

func (c *Chain) fromLocal(ctx context.Context, item device.InventoryItem) *Result {
	if c.Local == nil {
		return nil
	}
	log := logger.Logger()

	u, err := c.Local.CheckLocalUpdate(ctx, item.Name)
	if err != nil {
		log.Debugf("%s: local update channel failed: %v", item.Name, err)
		return nil
	}
	if u == nil || u.Artifact.URL == "" || !u.Version.Greater(item.InstalledVersion) {
		return nil
	}

	artifact := u.Artifact
	if artifact.Filename == "" {
		artifact.Filename = filenameOf(artifact.URL)
	}
	log.Debugf("%s: local channel offers %s", item.Name, u.Version)
	return &Result{
		Name:             item.Name,
		SourceClass:      item.SourceClass,
		InstalledVersion: item.InstalledVersion,
		LatestVersion:    u.Version,
		UpdateAvailable:  true,
		SelectedArtifact: &artifact,
		SourceUsed:       SourceLocal,
		MatchRule:        compat.RuleNone,
	}
}

// scan walks the catalog of name in src newest first and returns the first
// version strictly newer than installed with a compatible artifact.
func (c *Chain) scan(ctx context.Context, id device.Identity, src Source, name string, installed version.Key, opts compat.Options) *found {
	log := logger.Logger()

	if src.BaseURL == "" {
		log.Debugf("%s: catalog %q has no base url, skipping", name, src.Key)
		return nil
	}
	parser, ok := src.parser()
	if !ok {
		log.Debugf("%s: catalog %q has unknown format %q, skipping", name, src.Key, src.Format)
		return nil
	}

	dirURL := catalog.JoinURL(src.BaseURL, true, name)
	entries := catalog.Index(ctx, c.Fetcher, parser, dirURL+src.IndexFile, urlPath(dirURL))
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !e.Version.Greater(installed) {
			break
		}

		artifacts := e.Artifacts
		if len(artifacts) == 0 {
			versionURL := catalog.JoinURL(dirURL, true, e.RawSegment) + src.IndexFile
			artifacts = catalog.Artifacts(ctx, c.Fetcher, parser, versionURL)
		}
		m, ok := c.matcher().Match(id, artifacts, opts)
		if !ok {
			log.Debugf("%s: version %s has no artifact compatible with %s", name, e.Version, id.Model)
			continue
		}
		log.Debugf("%s: version %s matched %s by %s", name, e.Version, m.Artifact.Filename, m.Rule)
		return &found{version: e.Version, match: m}
	}
	return nil
}

func (f *found) result(base Result, kind SourceKind, key string) Result {
	artifact := f.match.Artifact
	base.LatestVersion = f.version
	base.UpdateAvailable = true
	base.SelectedArtifact = &artifact
	base.SourceUsed = kind
	base.SourceKey = key
	base.MatchRule = f.match.Rule
	return base
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

func filenameOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}
