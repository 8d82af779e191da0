package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/cellar-sync/internal/archive"
)

// ConfigHelpers provides convenient access to derived settings
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// CellarDir returns the Homebrew cellar under the configured root
func (c *ConfigHelpers) CellarDir() string {
	return filepath.Join(c.config.HomebrewRoot, "Cellar")
}

// RubiesDir returns the interpreter install root
func (c *ConfigHelpers) RubiesDir() string {
	return c.config.RubiesRoot
}

// TempDir returns the temporary directory path
func (c *ConfigHelpers) TempDir() string {
	if c.config.TempDir == "" {
		return os.TempDir()
	}
	return c.config.TempDir
}

// Compression returns the parsed archive compression. Validate has already
// rejected unknown names.
func (c *ConfigHelpers) Compression() archive.Compression {
	comp, err := archive.ParseCompression(c.config.Compression)
	if err != nil {
		return archive.DefaultCompression
	}
	return comp
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// ShowProgress reports whether a progress bar was requested
func (c *ConfigHelpers) ShowProgress() bool {
	return c.config.Progress
}

// IsDebugMode returns true if debug logging is enabled
func (c *ConfigHelpers) IsDebugMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.config.Logging.Level), "debug")
}
