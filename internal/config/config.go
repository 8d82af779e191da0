package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/cellar-sync/internal/archive"
	"github.com/open-edge-platform/cellar-sync/internal/naming"
)

// Environment variables read by ApplyEnv.
const (
	EnvAccessKey    = "CELLAR_SYNC_ACCESS_KEY"
	EnvSecretKey    = "CELLAR_SYNC_SECRET_KEY"
	EnvBucket       = "CELLAR_SYNC_BUCKET"
	EnvRegion       = "CELLAR_SYNC_REGION"
	EnvEndpoint     = "CELLAR_SYNC_ENDPOINT"
	EnvHomebrewRoot = "CELLAR_SYNC_HOMEBREW_ROOT"
	EnvRubiesRoot   = "CELLAR_SYNC_RUBIES_ROOT"
	EnvCompression  = "CELLAR_SYNC_COMPRESSION"
	EnvTempDir      = "CELLAR_SYNC_TEMP_DIR"
	EnvLogLevel     = "CELLAR_SYNC_LOG_LEVEL"
	EnvDryRun       = "CELLAR_SYNC_DRY_RUN"
	EnvReportDir    = "CELLAR_SYNC_REPORT_DIR"
)

const (
	DefaultBucket     = "boxen-downloads"
	DefaultRegion     = "us-east-1"
	DefaultRubiesRoot = "/opt/rubies"
	DefaultLogLevel   = "info"
)

// ErrMissingCredentials is returned by Validate when either key is unset.
var ErrMissingCredentials = errors.New("missing S3 credentials")

// GlobalConfig holds the settings for a run.
type GlobalConfig struct {
	AccessKey    string        `yaml:"access_key"`
	SecretKey    string        `yaml:"secret_key"`
	Bucket       string        `yaml:"bucket"`
	Region       string        `yaml:"region"`
	Endpoint     string        `yaml:"endpoint"`
	HomebrewRoot string        `yaml:"homebrew_root"`
	RubiesRoot   string        `yaml:"rubies_root"`
	Compression  string        `yaml:"compression"`
	TempDir      string        `yaml:"temp_dir"`
	ReportDir    string        `yaml:"report_dir"`
	DryRun       bool          `yaml:"dry_run"`
	Progress     bool          `yaml:"progress"`
	Logging      LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultGlobalConfig returns the configuration used when nothing overrides it.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Bucket:       DefaultBucket,
		Region:       DefaultRegion,
		HomebrewRoot: naming.CanonicalRoot,
		RubiesRoot:   DefaultRubiesRoot,
		Compression:  string(archive.DefaultCompression),
		Logging:      LoggingConfig{Level: DefaultLogLevel},
	}
}

// LoadGlobalConfig returns the defaults overlaid with the YAML file at path
// (if any) and then with the process environment.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current value.
func (c *GlobalConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. Empty values are treated
// as unset.
func (c *GlobalConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvAccessKey, &c.AccessKey)
	str(EnvSecretKey, &c.SecretKey)
	str(EnvBucket, &c.Bucket)
	str(EnvRegion, &c.Region)
	str(EnvEndpoint, &c.Endpoint)
	str(EnvHomebrewRoot, &c.HomebrewRoot)
	str(EnvRubiesRoot, &c.RubiesRoot)
	str(EnvCompression, &c.Compression)
	str(EnvTempDir, &c.TempDir)
	str(EnvLogLevel, &c.Logging.Level)
	str(EnvReportDir, &c.ReportDir)

	if v, ok := lookup(EnvDryRun); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDryRun, v, err)
		}
		c.DryRun = b
	}
	return nil
}

// Validate checks that c is usable. Missing credentials are reported with
// ErrMissingCredentials so the caller can print usage.
func (c *GlobalConfig) Validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, EnvAccessKey)
	}
	if c.SecretKey == "" {
		missing = append(missing, EnvSecretKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}

	if c.Bucket == "" {
		return errors.New("bucket name must not be empty")
	}
	if c.Region == "" {
		return errors.New("region must not be empty")
	}
	if c.HomebrewRoot == "" {
		return errors.New("homebrew root must not be empty")
	}
	if _, err := archive.ParseCompression(c.Compression); err != nil {
		return err
	}
	return nil
}
