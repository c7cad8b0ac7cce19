package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

func TestExecCmd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	out, err := ExecCmd(context.Background(), "echo 'test-exec-cmd'", false)
	if err != nil {
		t.Fatalf("ExecCmd failed: %v", err)
	}
	if !strings.Contains(out, "test-exec-cmd") {
		t.Errorf("Expected output to contain 'test-exec-cmd', got: %s", out)
	}
}

func TestExecCmdExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	_, err := ExecCmd(context.Background(), "exit 3", false)
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if code := ExitCode(err); code != 3 {
		t.Errorf("ExitCode = %d, want 3", code)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), -1},
		{"exit error", &ExitError{Code: 7}, 7},
		{"wrapped exit error", fmt.Errorf("install: %w", &ExitError{Code: 12}), 12},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMockExecutor(t *testing.T) {
	originalExecutor := Default
	defer func() { Default = originalExecutor }()

	mock := NewMockExecutor([]MockCommand{
		{Pattern: `^pkgctl status foo$`, Output: "running\n"},
		{Pattern: `^pkgctl install`, Output: "", Error: &ExitError{Code: 5}},
	})
	Default = mock

	out, err := ExecCmd(context.Background(), "pkgctl status foo", false)
	if err != nil || out != "running\n" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
	if _, err := ExecCmd(context.Background(), "pkgctl install /tmp/a.pkg", true); ExitCode(err) != 5 {
		t.Errorf("expected exit code 5, got %v", err)
	}
	if _, err := ExecCmd(context.Background(), "rm -rf /", true); err == nil {
		t.Error("expected error for unexpected command")
	}
	if len(mock.Calls) != 3 {
		t.Errorf("expected 3 recorded calls, got %d", len(mock.Calls))
	}
}

func TestIsCommandExist(t *testing.T) {
	originalExecutor := Default
	defer func() { Default = originalExecutor }()

	Default = NewMockExecutor([]MockCommand{
		{Pattern: "command -v pkgctl", Output: "/usr/bin/pkgctl\n"},
		{Pattern: "command -v missing", Output: "", Error: &ExitError{Code: 1}},
	})
	if !IsCommandExist(context.Background(), "pkgctl") {
		t.Error("expected pkgctl to exist")
	}
	if IsCommandExist(context.Background(), "missing") {
		t.Error("expected missing command to be reported absent")
	}
}

func TestQuote(t *testing.T) {
	if got := Quote("a b"); got != "'a b'" {
		t.Errorf("Quote() = %s", got)
	}
	if got := Quote("it's"); got != `'it'\''s'` {
		t.Errorf("Quote() = %s", got)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		template string
		vars     map[string]string
		want     string
	}{
		{"synopkg install {path}", map[string]string{"path": "/tmp/a b.spk"}, "synopkg install '/tmp/a b.spk'"},
		{"synopkg start {name} && echo {name}", map[string]string{"name": "Pkg"}, "synopkg start 'Pkg' && echo 'Pkg'"},
		{"echo {other}", map[string]string{"name": "Pkg"}, "echo {other}"},
		{"true", nil, "true"},
	}
	for _, tt := range tests {
		if got := Expand(tt.template, tt.vars); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}
