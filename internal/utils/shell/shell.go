package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
)

// Executor runs shell command strings.
type Executor interface {
	Exec(ctx context.Context, cmdStr string, sudo bool) (string, error)
}

// Default is the executor used by package-level helpers. Tests replace it
// with a MockExecutor.
var Default Executor = &DefaultExecutor{}

// DefaultExecutor runs commands through the host shell.
type DefaultExecutor struct{}

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// GetOSProxyEnvirons retrieves HTTP and HTTPS proxy environment variables
func GetOSProxyEnvirons() map[string]string {
	proxyEnv := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(parts[0])
		if strings.Contains(key, "http_proxy") || strings.Contains(key, "https_proxy") {
			proxyEnv[parts[0]] = parts[1]
		}
	}
	return proxyEnv
}

// GetFullCmdStr prepares a command string with necessary prefixes
func GetFullCmdStr(cmdStr string, sudo bool) string {
	log := logger.Logger()
	if !sudo || os.Geteuid() == 0 {
		log.Debugf("Exec: [%s]", cmdStr)
		return cmdStr
	}

	envValStr := ""
	for key, value := range GetOSProxyEnvirons() {
		envValStr += key + "=" + value + " "
	}
	log.Debugf("Exec: [sudo %s]", cmdStr)
	return "sudo " + envValStr + cmdStr
}

// Exec executes a command and returns its combined output.
func (e *DefaultExecutor) Exec(ctx context.Context, cmdStr string, sudo bool) (string, error) {
	log := logger.Logger()
	fullCmdStr := GetFullCmdStr(cmdStr, sudo)

	cmd := exec.CommandContext(ctx, getShell(), "-c", fullCmdStr)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Debugf("%s", outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}

// ExecCmd executes a command with the Default executor.
func ExecCmd(ctx context.Context, cmdStr string, sudo bool) (string, error) {
	return Default.Exec(ctx, cmdStr, sudo)
}

// IsCommandExist checks if a command exists on the host
func IsCommandExist(ctx context.Context, cmd string) bool {
	output, err := ExecCmd(ctx, "command -v "+cmd, false)
	if err != nil {
		return false
	}
	return len(bytes.TrimSpace([]byte(output))) > 0
}

// ExitCode extracts the process exit code carried by err. It returns 0 for a
// nil error and -1 when err carries no exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

// Quote wraps s in single quotes for safe interpolation into a shell command.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Expand replaces every {key} placeholder in template with the quoted value
// of vars[key]. Unknown placeholders are left as is.
func Expand(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", Quote(v))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
