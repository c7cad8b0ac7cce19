package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// Workers returns the number of concurrent workers
func (c *ConfigHelpers) Workers() int {
	return c.config.Workers
}

// DownloadDir returns the absolute path to the download directory
func (c *ConfigHelpers) DownloadDir() (string, error) {
	return filepath.Abs(c.config.DownloadDir)
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// IsDebugMode returns true if debug logging is enabled
func (c *ConfigHelpers) IsDebugMode() bool {
	return c.config.Logging.Level == "debug"
}

// PrepareDownloadDir creates the download directory fresh, removing any
// stale copy left by an earlier run, and returns its absolute path.
func (c *ConfigHelpers) PrepareDownloadDir() (string, error) {
	dir, err := c.DownloadDir()
	if err != nil {
		return "", fmt.Errorf("resolving download directory: %w", err)
	}
	if dir == "/" || dir == filepath.Dir(dir) {
		return "", fmt.Errorf("refusing to use %s as download directory", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("removing stale download directory: %w", err)
	}
	if err := createDirIfNotExists(dir); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	return dir, nil
}

// Helper function to create directories
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
