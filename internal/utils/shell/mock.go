package shell

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// MockCommand describes the canned response for every command matching Pattern.
// Pattern is a regular expression matched against the command string.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor answers commands from a list of MockCommand and records calls.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	Calls    []string
}

// NewMockExecutor returns an executor that replays the given commands.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

// Exec returns the first matching canned response.
func (m *MockExecutor) Exec(_ context.Context, cmdStr string, _ bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, cmdStr)

	for _, c := range m.commands {
		matched, err := regexp.MatchString(c.Pattern, cmdStr)
		if err != nil {
			return "", fmt.Errorf("invalid mock pattern %q: %w", c.Pattern, err)
		}
		if matched {
			return c.Output, c.Error
		}
	}
	return "", fmt.Errorf("unexpected command for mock executor: %s", cmdStr)
}

// ExitError is an error carrying a process exit code, used to emulate
// failing commands in tests.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode returns the emulated exit code.
func (e *ExitError) ExitCode() int { return e.Code }
