package installer

import (
	"context"
	"fmt"
	"io"

	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/shell"
)

// Outcome is the result of one lifecycle step.
type Outcome struct {
	Success   bool
	ErrorCode int
	Output    string
	Err       error
}

func outcomeOf(output string, err error) Outcome {
	if err != nil {
		return Outcome{ErrorCode: shell.ExitCode(err), Output: output, Err: err}
	}
	return Outcome{Success: true, Output: output}
}

// Lifecycle installs, starts and inspects packages on the device.
type Lifecycle interface {
	Install(ctx context.Context, path string) Outcome
	Start(ctx context.Context, name string) Outcome
	Status(ctx context.Context, name string) device.RunningState
}

// Downloader fetches one artifact to a local path.
type Downloader interface {
	Download(ctx context.Context, rawURL, dest string) error
}

// CommandLifecycle runs configured command templates. {path} and {name}
// are replaced by the quoted artifact path and package name. A status
// command exiting 0 means running, any other exit code means stopped.
type CommandLifecycle struct {
	Executor   shell.Executor
	InstallCmd string
	StartCmd   string
	StatusCmd  string
	Sudo       bool
}

func (l *CommandLifecycle) executor() shell.Executor {
	if l.Executor == nil {
		return shell.Default
	}
	return l.Executor
}

func (l *CommandLifecycle) run(ctx context.Context, template string, vars map[string]string) Outcome {
	if template == "" {
		return Outcome{ErrorCode: -1, Err: fmt.Errorf("no command configured")}
	}
	cmd := shell.Expand(template, vars)
	out, err := l.executor().Exec(ctx, cmd, l.Sudo)
	if err != nil {
		logger.Logger().Debugf("%s failed: %v", cmd, err)
	}
	return outcomeOf(out, err)
}

// Install installs the artifact at path.
func (l *CommandLifecycle) Install(ctx context.Context, path string) Outcome {
	return l.run(ctx, l.InstallCmd, map[string]string{"path": path})
}

// Start starts the named package.
func (l *CommandLifecycle) Start(ctx context.Context, name string) Outcome {
	return l.run(ctx, l.StartCmd, map[string]string{"name": name})
}

// Status reports whether the named package is running.
func (l *CommandLifecycle) Status(ctx context.Context, name string) device.RunningState {
	if l.StatusCmd == "" {
		return device.StateUnknown
	}
	_, err := l.executor().Exec(ctx, shell.Expand(l.StatusCmd, map[string]string{"name": name}), l.Sudo)
	switch code := shell.ExitCode(err); {
	case code == 0:
		return device.StateRunning
	case code > 0:
		return device.StateStopped
	default:
		return device.StateUnknown
	}
}

// DryRun stands in for both the downloader and the lifecycle when nothing
// may be changed: it reports what would happen and succeeds.
type DryRun struct {
	Out io.Writer
}

// Download prints the download that would happen.
func (d *DryRun) Download(_ context.Context, rawURL, dest string) error {
	fmt.Fprintf(d.Out, "[dry-run] would download %s to %s\n", rawURL, dest)
	return nil
}

// Install prints the installation that would happen.
func (d *DryRun) Install(_ context.Context, path string) Outcome {
	fmt.Fprintf(d.Out, "[dry-run] would install %s\n", path)
	return Outcome{Success: true}
}

// Start prints the start that would happen.
func (d *DryRun) Start(_ context.Context, name string) Outcome {
	fmt.Fprintf(d.Out, "[dry-run] would start %s\n", name)
	return Outcome{Success: true}
}

// Status reports running so that no restart is attempted.
func (d *DryRun) Status(context.Context, string) device.RunningState {
	return device.StateRunning
}
