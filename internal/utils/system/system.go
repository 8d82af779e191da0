package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
	"github.com/open-edge-platform/cellar-sync/internal/utils/shell"
)

var (
	OsReleaseFile = "/etc/os-release"
)

// PlatformInfo describes the host the archives are built on.
type PlatformInfo interface {
	// OSVersion returns the two-component (major.minor) OS version.
	OSVersion() (string, error)
	// Platform returns the kernel name, e.g. "Darwin".
	Platform() (string, error)
}

// HostInfo is a PlatformInfo backed by host commands. Each value is looked up
// at most once for the lifetime of the HostInfo.
type HostInfo struct {
	osVersion func() (string, error)
	platform  func() (string, error)
}

// NewHostInfo returns a HostInfo for the running OS.
func NewHostInfo(ctx context.Context) *HostInfo {
	return newHostInfo(ctx, runtime.GOOS)
}

func newHostInfo(ctx context.Context, goos string) *HostInfo {
	return &HostInfo{
		osVersion: sync.OnceValues(func() (string, error) {
			return DetectOSVersion(ctx, goos)
		}),
		platform: sync.OnceValues(func() (string, error) {
			return DetectPlatform(ctx)
		}),
	}
}

func (h *HostInfo) OSVersion() (string, error) { return h.osVersion() }

func (h *HostInfo) Platform() (string, error) { return h.platform() }

// StaticInfo is a PlatformInfo with fixed values.
type StaticInfo struct {
	Version string
	Name    string
}

func (s StaticInfo) OSVersion() (string, error) { return s.Version, nil }

func (s StaticInfo) Platform() (string, error) { return s.Name, nil }

// DetectPlatform returns the kernel name reported by uname.
func DetectPlatform(ctx context.Context) (string, error) {
	output, err := shell.ExecCmd(ctx, "uname", "-s")
	if err != nil {
		return "", fmt.Errorf("failed to get host platform: %w", err)
	}
	platform := shell.TrimOutput(output)
	if platform == "" {
		return "", fmt.Errorf("failed to get host platform: empty uname output")
	}
	return platform, nil
}

// DetectOSVersion returns the host OS version truncated to major.minor. On
// macOS it asks sw_vers; elsewhere it reads VERSION_ID from os-release and
// falls back to lsb_release.
func DetectOSVersion(ctx context.Context, goos string) (string, error) {
	log := logger.Logger()

	var raw string
	if goos == "darwin" {
		output, err := shell.ExecCmd(ctx, "sw_vers", "-productVersion")
		if err != nil {
			return "", fmt.Errorf("failed to get host OS version: %w", err)
		}
		raw = shell.TrimOutput(output)
	} else {
		info, err := ReadOsRelease(OsReleaseFile)
		if err == nil {
			raw = info["VERSION_ID"]
		} else {
			log.Debugf("Reading %s failed: %v", OsReleaseFile, err)
		}
		if raw == "" {
			output, err := shell.ExecCmd(ctx, "lsb_release", "-sr")
			if err != nil {
				return "", fmt.Errorf("failed to get host OS version: %w", err)
			}
			raw = shell.TrimOutput(output)
		}
	}

	version, err := MajorMinor(raw)
	if err != nil {
		return "", fmt.Errorf("failed to get host OS version: %w", err)
	}
	log.Debugf("Detected OS version: %s (%s)", version, raw)
	return version, nil
}

// ReadOsRelease parses an os-release style file into a key/value map.
// Malformed lines and comments are skipped and quotes are stripped.
func ReadOsRelease(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info := make(map[string]string)
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
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		info[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return info, nil
}

// MajorMinor truncates a dotted version to its first two numeric
// components. A bare major version gets a ".0" minor.
func MajorMinor(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return "", fmt.Errorf("empty OS version")
	}

	parts := strings.Split(version, ".")
	if len(parts) == 1 {
		parts = append(parts, "0")
	}
	for _, p := range parts[:2] {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("malformed OS version %q", version)
		}
	}
	return parts[0] + "." + parts[1], nil
}
