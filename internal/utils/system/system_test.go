package system_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-edge-platform/cellar-sync/internal/utils/shell"
	"github.com/open-edge-platform/cellar-sync/internal/utils/system"
)

func TestDetectOSVersion(t *testing.T) {
	originalExecutor := shell.Default
	originalOsRelease := system.OsReleaseFile
	defer func() {
		shell.Default = originalExecutor
		system.OsReleaseFile = originalOsRelease
	}()

	tests := []struct {
		name         string
		goos         string
		mockCommands []shell.MockCommand
		osRelease    string
		expected     string
		expectError  bool
		errorMsg     string
	}{
		{
			name: "darwin_three_components",
			goos: "darwin",
			mockCommands: []shell.MockCommand{
				{Pattern: "^sw_vers -productVersion$", Output: "10.9.5\n", Error: nil},
			},
			expected: "10.9",
		},
		{
			name: "darwin_two_components",
			goos: "darwin",
			mockCommands: []shell.MockCommand{
				{Pattern: "^sw_vers -productVersion$", Output: "10.8\n", Error: nil},
			},
			expected: "10.8",
		},
		{
			name: "darwin_major_only",
			goos: "darwin",
			mockCommands: []shell.MockCommand{
				{Pattern: "^sw_vers -productVersion$", Output: "14\n", Error: nil},
			},
			expected: "14.0",
		},
		{
			name: "darwin_sw_vers_failure",
			goos: "darwin",
			mockCommands: []shell.MockCommand{
				{Pattern: "^sw_vers", Output: "", Error: fmt.Errorf("sw_vers failed")},
			},
			expectError: true,
			errorMsg:    "failed to get host OS version",
		},
		{
			name: "darwin_garbage_output",
			goos: "darwin",
			mockCommands: []shell.MockCommand{
				{Pattern: "^sw_vers", Output: "ProductVersion\n", Error: nil},
			},
			expectError: true,
			errorMsg:    "malformed OS version",
		},
		{
			name: "linux_os_release",
			goos: "linux",
			osRelease: `NAME="Ubuntu"
VERSION_ID="22.04"
ID=ubuntu`,
			expected: "22.04",
		},
		{
			name: "linux_lsb_release_fallback",
			goos: "linux",
			mockCommands: []shell.MockCommand{
				{Pattern: "^lsb_release -sr$", Output: "11.7\n", Error: nil},
			},
			osRelease: `NAME="Debian GNU/Linux"
# Missing VERSION_ID`,
			expected: "11.7",
		},
		{
			name: "linux_lsb_release_failure",
			goos: "linux",
			mockCommands: []shell.MockCommand{
				{Pattern: "^lsb_release", Output: "", Error: fmt.Errorf("lsb_release failed")},
			},
			expectError: true,
			errorMsg:    "failed to get host OS version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell.Default = shell.NewMockExecutor(tt.mockCommands)

			tempDir := t.TempDir()
			system.OsReleaseFile = filepath.Join(tempDir, "os-release")
			if tt.osRelease != "" {
				if err := os.WriteFile(system.OsReleaseFile, []byte(tt.osRelease), 0644); err != nil {
					t.Fatalf("Failed to setup test: %v", err)
				}
			}

			got, err := system.DetectOSVersion(context.Background(), tt.goos)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got version %q", got)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("DetectOSVersion() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectPlatform(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()

	shell.Default = shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "^uname -s$", Output: "Darwin\n"},
	})
	got, err := system.DetectPlatform(context.Background())
	if err != nil {
		t.Fatalf("DetectPlatform failed: %v", err)
	}
	if got != "Darwin" {
		t.Errorf("DetectPlatform() = %q, want Darwin", got)
	}

	shell.Default = shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "^uname -s$", Output: "\n"},
	})
	if _, err := system.DetectPlatform(context.Background()); err == nil {
		t.Error("expected error for empty uname output")
	}
}

func TestHostInfoMemoizes(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()

	mock := shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "^uname -s$", Output: "Darwin\n"},
	})
	shell.Default = mock

	info := system.NewHostInfo(context.Background())
	for i := 0; i < 3; i++ {
		got, err := info.Platform()
		if err != nil {
			t.Fatalf("Platform failed: %v", err)
		}
		if got != "Darwin" {
			t.Fatalf("Platform() = %q", got)
		}
	}
	if calls := mock.Calls(); len(calls) != 1 {
		t.Errorf("expected uname to run once, ran %d times: %v", len(calls), calls)
	}
}

func TestReadOsRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	content := `NAME="Ubuntu"
INVALID_LINE_WITHOUT_EQUALS
VERSION_ID='20.04'
ANOTHER_INVALID=`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := system.ReadOsRelease(path)
	if err != nil {
		t.Fatalf("ReadOsRelease failed: %v", err)
	}
	if info["NAME"] != "Ubuntu" || info["VERSION_ID"] != "20.04" {
		t.Errorf("unexpected parse result: %v", info)
	}
	if _, ok := info["INVALID_LINE_WITHOUT_EQUALS"]; ok {
		t.Error("malformed line should be skipped")
	}

	if _, err := system.ReadOsRelease(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStaticInfo(t *testing.T) {
	var info system.PlatformInfo = system.StaticInfo{Version: "10.9", Name: "Darwin"}
	v, _ := info.OSVersion()
	p, _ := info.Platform()
	if v != "10.9" || p != "Darwin" {
		t.Errorf("unexpected static info %q %q", v, p)
	}
}
