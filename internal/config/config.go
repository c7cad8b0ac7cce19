// Package config loads the global tool configuration.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/open-edge-platform/appliance-update-tool/internal/config/validate"
)

// DefaultConfigPath is read when no --config flag is given and it exists.
var DefaultConfigPath = "/etc/appliance-update-tool/config.yaml"

// GlobalConfig is the complete tool configuration.
type GlobalConfig struct {
	Workers     int             `yaml:"workers"`
	DownloadDir string          `yaml:"download_dir"`
	Logging     LoggingConfig   `yaml:"logging"`
	Device      DeviceConfig    `yaml:"device"`
	Catalogs    CatalogsConfig  `yaml:"catalogs"`
	Matching    MatchingConfig  `yaml:"matching"`
	Lifecycle   LifecycleConfig `yaml:"lifecycle"`
	Verify      VerifyConfig    `yaml:"verify"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DeviceConfig locates the device facts.
type DeviceConfig struct {
	IdentityFile   string   `yaml:"identity_file"`
	VersionFile    string   `yaml:"version_file"`
	PackagesDir    string   `yaml:"packages_dir"`
	VendorNames    []string `yaml:"vendor_names"`
	FamilyPrefixes []string `yaml:"family_prefixes"`
	// Keys names the identity file keys; empty entries use generic names.
	Keys IdentityKeysConfig `yaml:"keys"`
}

// IdentityKeysConfig maps device facts onto identity file keys.
type IdentityKeysConfig struct {
	Product      string `yaml:"product"`
	Model        string `yaml:"model"`
	Platform     string `yaml:"platform"`
	Unique       string `yaml:"unique"`
	Architecture string `yaml:"arch"`
	Variant      string `yaml:"variant"`
	Family       string `yaml:"family"`
}

// SourceConfig describes one remote catalog.
type SourceConfig struct {
	Key               string   `yaml:"key"`
	URL               string   `yaml:"url"`
	Format            string   `yaml:"format"`
	IndexFile         string   `yaml:"index_file"`
	Distributors      []string `yaml:"distributors"`
	AllowArchitecture *bool    `yaml:"allow_architecture"`
}

// ArchitectureAllowed reports whether architecture-only matches are
// accepted, true unless disabled.
func (s SourceConfig) ArchitectureAllowed() bool {
	return s.AllowArchitecture == nil || *s.AllowArchitecture
}

// CatalogsConfig lists the update sources.
type CatalogsConfig struct {
	Primary   SourceConfig   `yaml:"primary"`
	OS        SourceConfig   `yaml:"os"`
	Community []SourceConfig `yaml:"community"`
	// CommunityOrder lists community keys in the order they are tried.
	// When empty the order of Community is used.
	CommunityOrder []string `yaml:"community_order"`
}

// Order returns the community keys in the order they are tried.
func (c CatalogsConfig) Order() []string {
	if len(c.CommunityOrder) > 0 {
		return c.CommunityOrder
	}
	keys := make([]string, 0, len(c.Community))
	for _, s := range c.Community {
		keys = append(keys, s.Key)
	}
	return keys
}

// MatchingConfig tunes artifact compatibility matching.
type MatchingConfig struct {
	GenericPlatforms []string          `yaml:"generic_platforms"`
	VariantMarkers   map[string]string `yaml:"variant_markers"`
}

// LifecycleConfig holds the package manager command templates.
type LifecycleConfig struct {
	Install     string `yaml:"install"`
	Start       string `yaml:"start"`
	Status      string `yaml:"status"`
	LocalUpdate string `yaml:"local_update"`
	Sudo        bool   `yaml:"sudo"`
}

// VerifyConfig enables artifact signature verification.
type VerifyConfig struct {
	PublicKey string `yaml:"public_key"`
}

// DefaultGlobalConfig returns the configuration used when no file is given.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers:     4,
		DownloadDir: "/tmp/appliance-update-tool",
		Logging:     LoggingConfig{Level: "info"},
		Device: DeviceConfig{
			IdentityFile:   "/etc.defaults/synoinfo.conf",
			VersionFile:    "/etc.defaults/VERSION",
			PackagesDir:    "/var/packages",
			VendorNames:    []string{"Synology Inc."},
			FamilyPrefixes: []string{"DS", "RS", "DVA", "FS", "SA", "HD"},
			Keys: IdentityKeysConfig{
				Product:  "company_title",
				Model:    "upnpmodelname",
				Platform: "platform_name",
				Unique:   "unique",
				Family:   "os_name",
			},
		},
		Catalogs: CatalogsConfig{
			Primary: SourceConfig{Key: "primary", URL: "https://archive.synology.com/download/Package/spk"},
			OS:      SourceConfig{Key: "os", URL: "https://archive.synology.com/download/Os"},
		},
		Matching: MatchingConfig{
			GenericPlatforms: []string{"kvmx64", "kvmcloud"},
			VariantMarkers:   map[string]string{"standard": "", "unified": "uc"},
		},
		Lifecycle: LifecycleConfig{
			Install:     "synopkg install {path}",
			Start:       "synopkg start {name}",
			Status:      "synopkg is_onoff {name}",
			LocalUpdate: "",
			Sudo:        true,
		},
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig = DefaultGlobalConfig()
)

// Global returns the process-wide configuration.
func Global() *GlobalConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(c *GlobalConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = c
}

// LoadGlobalConfig reads and validates the configuration at path. An empty
// path falls back to DefaultConfigPath when it exists, else the defaults.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath); err != nil {
			return DefaultGlobalConfig(), nil
		}
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	cfg, err := parseGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}
	return cfg, nil
}

// parseGlobalConfig validates data against the schema and overlays it on
// the defaults.
func parseGlobalConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	if string(jsonData) == "null" {
		return cfg, nil
	}
	if err := validate.ValidateGlobalConfigJSON(jsonData); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks constraints the schema cannot express.
func (c *GlobalConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir must not be empty")
	}
	seen := make(map[string]bool, len(c.Catalogs.Community))
	for _, s := range c.Catalogs.Community {
		if seen[s.Key] {
			return fmt.Errorf("community catalog %q is defined twice", s.Key)
		}
		seen[s.Key] = true
	}
	return nil
}
