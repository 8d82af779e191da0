package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-edge-platform/cellar-sync/internal/archive"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultGlobalConfig(t *testing.T) {
	cfg := DefaultGlobalConfig()
	if cfg.Bucket != DefaultBucket || cfg.Region != DefaultRegion {
		t.Errorf("unexpected bucket/region defaults: %s %s", cfg.Bucket, cfg.Region)
	}
	if cfg.HomebrewRoot != "/usr/local" {
		t.Errorf("HomebrewRoot = %s", cfg.HomebrewRoot)
	}
	if cfg.Compression != "bz2" {
		t.Errorf("Compression = %s", cfg.Compression)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s", cfg.Logging.Level)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultGlobalConfig()
	err := cfg.ApplyEnv(envLookup(map[string]string{
		EnvAccessKey:    "AKIA",
		EnvSecretKey:    "secret",
		EnvBucket:       "my-bucket",
		EnvRegion:       "  eu-west-1 ",
		EnvHomebrewRoot: "/opt/boxen/homebrew",
		EnvRubiesRoot:   "",
		EnvDryRun:       "true",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.AccessKey != "AKIA" || cfg.SecretKey != "secret" {
		t.Errorf("credentials not applied: %+v", cfg)
	}
	if cfg.Bucket != "my-bucket" || cfg.Region != "eu-west-1" {
		t.Errorf("bucket/region not applied: %s %s", cfg.Bucket, cfg.Region)
	}
	if cfg.HomebrewRoot != "/opt/boxen/homebrew" {
		t.Errorf("HomebrewRoot = %s", cfg.HomebrewRoot)
	}
	if cfg.RubiesRoot != DefaultRubiesRoot {
		t.Errorf("empty env value should keep default, got %s", cfg.RubiesRoot)
	}
	if !cfg.DryRun {
		t.Error("expected dry run to be enabled")
	}
}

func TestApplyEnvInvalidBool(t *testing.T) {
	cfg := DefaultGlobalConfig()
	if err := cfg.ApplyEnv(envLookup(map[string]string{EnvDryRun: "sometimes"})); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *GlobalConfig {
		cfg := DefaultGlobalConfig()
		cfg.AccessKey = "AKIA"
		cfg.SecretKey = "secret"
		return cfg
	}

	tests := []struct {
		name        string
		mutate      func(*GlobalConfig)
		wantErr     bool
		wantMissing bool
		errContains string
	}{
		{name: "valid", mutate: func(*GlobalConfig) {}},
		{name: "missing access key", mutate: func(c *GlobalConfig) { c.AccessKey = "" }, wantErr: true, wantMissing: true, errContains: EnvAccessKey},
		{name: "missing secret key", mutate: func(c *GlobalConfig) { c.SecretKey = "" }, wantErr: true, wantMissing: true, errContains: EnvSecretKey},
		{name: "missing both", mutate: func(c *GlobalConfig) { c.AccessKey, c.SecretKey = "", "" }, wantErr: true, wantMissing: true, errContains: EnvAccessKey + " and " + EnvSecretKey},
		{name: "empty bucket", mutate: func(c *GlobalConfig) { c.Bucket = "" }, wantErr: true, errContains: "bucket"},
		{name: "empty region", mutate: func(c *GlobalConfig) { c.Region = "" }, wantErr: true, errContains: "region"},
		{name: "bad compression", mutate: func(c *GlobalConfig) { c.Compression = "rar" }, wantErr: true, errContains: "unknown compression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrMissingCredentials) != tt.wantMissing {
				t.Errorf("errors.Is(ErrMissingCredentials) = %v, want %v (%v)", !tt.wantMissing, tt.wantMissing, err)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadGlobalConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellar-sync.yaml")
	content := `bucket: file-bucket
region: eu-central-1
compression: xz
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvBucket, "env-bucket")
	t.Setenv(EnvAccessKey, "AKIA")
	t.Setenv(EnvSecretKey, "secret")
	t.Setenv(EnvRegion, "")

	cfg, err := LoadGlobalConfig(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfig failed: %v", err)
	}
	if cfg.Bucket != "env-bucket" {
		t.Errorf("environment should win over file, got %s", cfg.Bucket)
	}
	if cfg.Region != "eu-central-1" {
		t.Errorf("file should win over defaults, got %s", cfg.Region)
	}
	if cfg.RubiesRoot != DefaultRubiesRoot {
		t.Errorf("unset keys keep defaults, got %s", cfg.RubiesRoot)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	helpers := NewConfigHelpers(cfg)
	if helpers.Compression() != archive.Xz {
		t.Errorf("Compression() = %s", helpers.Compression())
	}
	if !helpers.IsDebugMode() {
		t.Error("expected debug mode")
	}
}

func TestLoadGlobalConfigMissingFile(t *testing.T) {
	if _, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultGlobalConfig()
	cfg.HomebrewRoot = "/opt/boxen/homebrew"
	h := NewConfigHelpers(cfg)

	if got := h.CellarDir(); got != "/opt/boxen/homebrew/Cellar" {
		t.Errorf("CellarDir() = %s", got)
	}
	if got := h.RubiesDir(); got != DefaultRubiesRoot {
		t.Errorf("RubiesDir() = %s", got)
	}
	if got := h.TempDir(); got != os.TempDir() {
		t.Errorf("TempDir() = %s", got)
	}
	cfg.TempDir = "/var/tmp/cellar"
	if got := h.TempDir(); got != "/var/tmp/cellar" {
		t.Errorf("TempDir() = %s", got)
	}
	if h.Compression() != archive.Bzip2 {
		t.Errorf("Compression() = %s", h.Compression())
	}
	if h.LogLevel() != "info" || h.IsDebugMode() {
		t.Errorf("unexpected log level %s", h.LogLevel())
	}
	cfg.Logging.Level = "DEBUG"
	if !h.IsDebugMode() {
		t.Error("expected debug mode to ignore case")
	}
}
