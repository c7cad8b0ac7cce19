package device

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/shell"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// InfoFileName is the per-package metadata file inside a package directory.
var InfoFileName = "INFO"

// StatusChecker reports the running state of an installed package.
type StatusChecker interface {
	Status(ctx context.Context, name string) RunningState
}

// IdentityKeys names the identity file keys holding each device fact.
type IdentityKeys struct {
	Product  string
	Model    string
	Platform string
	// Unique holds a "<vendor>_<platform>_<series>" value, used for the
	// platform codename when the Platform key is absent.
	Unique       string
	Architecture string
	Variant      string
	// Family is looked up in the identity file, then in the version file.
	Family string
}

// DefaultIdentityKeys fills every key left empty.
var DefaultIdentityKeys = IdentityKeys{
	Product:      "product",
	Model:        "model",
	Platform:     "platform",
	Unique:       "unique",
	Architecture: "arch",
	Variant:      "os_variant",
	Family:       "os_family",
}

func (k IdentityKeys) withDefaults() IdentityKeys {
	pick := func(v, def string) string {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
		return def
	}
	d := DefaultIdentityKeys
	return IdentityKeys{
		Product:      pick(k.Product, d.Product),
		Model:        pick(k.Model, d.Model),
		Platform:     pick(k.Platform, d.Platform),
		Unique:       pick(k.Unique, d.Unique),
		Architecture: pick(k.Architecture, d.Architecture),
		Variant:      pick(k.Variant, d.Variant),
		Family:       pick(k.Family, d.Family),
	}
}

// platformFromUnique extracts the codename from "synology_geminilake_920+".
func platformFromUnique(unique string) string {
	parts := strings.Split(unique, "_")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// Collector reads device identity and inventory from local key/value files.
type Collector struct {
	IdentityFile   string
	VersionFile    string
	PackagesDir    string
	VendorNames    []string
	FamilyPrefixes []string
	Keys           IdentityKeys
	Status         StatusChecker
}

// ReadKeyValueFile parses a file of key=value lines. Values may be quoted;
// blank lines and '#' comments are skipped. Keys are lower-cased.
func ReadKeyValueFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// composeVersion builds a version string from either a "version" key or the
// split majorversion/minorversion/micro/buildnumber/smallfixnumber keys.
func composeVersion(values map[string]string) string {
	if v := values["version"]; v != "" {
		return v
	}
	if values["majorversion"] == "" {
		return ""
	}
	get := func(k string) string {
		if v := values[k]; v != "" {
			return v
		}
		return "0"
	}
	return fmt.Sprintf("%s.%s.%s-%s-%s", get("majorversion"), get("minorversion"),
		get("micro"), get("buildnumber"), get("smallfixnumber"))
}

// Identity reads the device identity. Architecture falls back to `uname -m`.
func (c *Collector) Identity(ctx context.Context) (Identity, error) {
	log := logger.Logger()

	facts, err := ReadKeyValueFile(c.IdentityFile)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read device identity: %w", err)
	}
	versionFacts := facts
	if c.VersionFile != "" && c.VersionFile != c.IdentityFile {
		if versionFacts, err = ReadKeyValueFile(c.VersionFile); err != nil {
			return Identity{}, fmt.Errorf("failed to read OS version: %w", err)
		}
	}

	keys := c.Keys.withDefaults()
	id := Identity{
		Product:          facts[keys.Product],
		Model:            facts[keys.Model],
		PlatformCodename: facts[keys.Platform],
		Architecture:     facts[keys.Architecture],
		OSVariant:        ParseVariant(facts[keys.Variant]),
		OSFamily:         facts[keys.Family],
	}
	if id.Model == "" {
		return Identity{}, fmt.Errorf("device identity in %s has no %q key", c.IdentityFile, keys.Model)
	}
	id.ModelSeries = ModelSeries(id.Model, c.FamilyPrefixes)
	if id.PlatformCodename == "" {
		id.PlatformCodename = platformFromUnique(facts[keys.Unique])
	}
	if id.OSFamily == "" {
		id.OSFamily = versionFacts[keys.Family]
	}
	if id.OSFamily == "" {
		id.OSFamily = versionFacts["productname"]
	}
	id.InstalledOSVersion = version.Parse(composeVersion(versionFacts))

	if id.Architecture == "" {
		output, err := shell.ExecCmd(ctx, "uname -m", false)
		if err != nil {
			log.Errorf("Failed to get host architecture: %v", err)
			return Identity{}, fmt.Errorf("failed to get host architecture: %w", err)
		}
		id.Architecture = strings.TrimSpace(output)
	}

	log.Infof("Detected device: %s %s (%s, %s) %s %s", id.Product, id.Model,
		id.PlatformCodename, id.Architecture, id.OSFamily, id.InstalledOSVersion)
	return id, nil
}

// Inventory lists installed packages from PackagesDir/<name>/INFO in name
// order. A package whose metadata cannot be read is kept with an Unknown
// classification and an invalid version.
func (c *Collector) Inventory(ctx context.Context) ([]InventoryItem, error) {
	log := logger.Logger()

	entries, err := os.ReadDir(c.PackagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages in %s: %w", c.PackagesDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var items []InventoryItem
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		item := InventoryItem{Name: e.Name(), InstalledVersion: version.Invalid}

		info, err := ReadKeyValueFile(filepath.Join(c.PackagesDir, e.Name(), InfoFileName))
		if err != nil {
			log.Debugf("package %s: %v", e.Name(), err)
		} else {
			if name := info["package"]; name != "" {
				item.Name = name
			}
			item.DisplayName = info["displayname"]
			item.InstalledVersion = version.Parse(info["version"])
			item.Distributor = info["distributor"]
			item.SourceClass = Classify(item.Distributor, c.VendorNames)
		}

		if c.Status != nil {
			item.RunningState = c.Status.Status(ctx, item.Name)
		}
		items = append(items, item)
	}
	log.Debugf("found %d installed packages", len(items))
	return items, nil
}
