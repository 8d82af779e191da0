package shell

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/open-edge-platform/cellar-sync/internal/utils/logger"
)

// Executor runs external commands. Tests replace Default with a MockExecutor.
type Executor interface {
	Exec(ctx context.Context, name string, args ...string) (string, error)
}

// Default is the executor used by the package-level helpers.
var Default Executor = &DefaultExecutor{}

// DefaultExecutor runs commands on the host.
type DefaultExecutor struct{}

// CmdString renders a command and its arguments the way it is logged and
// matched by MockExecutor.
func CmdString(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// Exec runs the command and returns its combined output.
func (e *DefaultExecutor) Exec(ctx context.Context, name string, args ...string) (string, error) {
	log := logger.Logger()
	cmdStr := CmdString(name, args...)
	log.Debugf("Exec: [%s]", cmdStr)

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof("%s", outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}

// ExecCmd executes a command with the Default executor.
func ExecCmd(ctx context.Context, name string, args ...string) (string, error) {
	return Default.Exec(ctx, name, args...)
}

// IsCommandExist checks if a command is available on PATH.
func IsCommandExist(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// MockCommand maps a command line pattern (a regular expression matched
// against CmdString) to a canned result.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor returns canned results for matching commands and records
// every command it was asked to run.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []string
}

// NewMockExecutor creates a MockExecutor. Commands are matched in order.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

func (m *MockExecutor) Exec(ctx context.Context, name string, args ...string) (string, error) {
	cmdStr := CmdString(name, args...)

	m.mu.Lock()
	m.calls = append(m.calls, cmdStr)
	m.mu.Unlock()

	for _, mc := range m.commands {
		matched, err := regexp.MatchString(mc.Pattern, cmdStr)
		if err != nil {
			return "", fmt.Errorf("invalid mock pattern %q: %w", mc.Pattern, err)
		}
		if matched {
			return mc.Output, mc.Error
		}
	}
	return "", fmt.Errorf("unexpected command for mock: %s", cmdStr)
}

// Calls returns the commands executed so far.
func (m *MockExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Called reports whether any executed command matched pattern.
func (m *MockExecutor) Called(pattern string) bool {
	re := regexp.MustCompile(pattern)
	for _, c := range m.Calls() {
		if re.MatchString(c) {
			return true
		}
	}
	return false
}

// TrimOutput strips surrounding whitespace and a trailing NUL that some
// tools emit.
func TrimOutput(out string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(out), "\x00"))
}
