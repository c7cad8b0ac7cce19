// Package installer drives the interactive selection, confirmation and
// installation of pending update artifacts.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/pkgfetcher"
	"github.com/open-edge-platform/appliance-update-tool/internal/report"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/shell"
)

// BatchDownloader fetches several artifacts at once, returning one error
// slot per job.
type BatchDownloader interface {
	FetchPackages(ctx context.Context, jobs []pkgfetcher.Job) []error
}

// Record is the outcome of one installation attempt.
type Record struct {
	Task     *report.DownloadTask
	Download error
	Install  Outcome
	// Start is set when a restart was attempted.
	Start *Outcome
}

// Controller is the installation state machine. It is not safe for
// concurrent use; Run owns the pending set.
type Controller struct {
	Prompter   Prompter
	Out        io.Writer
	Downloader Downloader
	Lifecycle  Lifecycle
	// Prefetch, when set, downloads a confirmed "all" batch in parallel
	// before the sequential installs.
	Prefetch BatchDownloader

	tasks     []*report.DownloadTask
	pending   []*report.DownloadTask
	selection []*report.DownloadTask
	batch     bool
	state     State
	records   []Record
}

// New returns a controller over tasks, all of which start pending.
func New(tasks []*report.DownloadTask, prompter Prompter, out io.Writer, downloader Downloader, lifecycle Lifecycle) *Controller {
	return &Controller{
		Prompter:   prompter,
		Out:        out,
		Downloader: downloader,
		Lifecycle:  lifecycle,
		tasks:      tasks,
		pending:    append([]*report.DownloadTask(nil), tasks...),
		state:      StateIdle,
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Pending returns the tasks still offered for selection.
func (c *Controller) Pending() []*report.DownloadTask {
	return append([]*report.DownloadTask(nil), c.pending...)
}

// Outcomes returns every installation attempt in the order it ran.
func (c *Controller) Outcomes() []Record {
	return append([]Record(nil), c.records...)
}

func (c *Controller) fire(e Event) {
	next, ok := Transition(c.state, e)
	if !ok {
		logger.Logger().Warnf("installer: event %s not accepted in state %s, stopping", e, c.state)
		next = StateCompleted
	}
	logger.Logger().Debugf("installer: %s --%s--> %s", c.state, e, next)
	c.state = next
}

// Run drives the controller until it completes and returns every task with
// its final status. Tasks never installed end up Cancelled.
func (c *Controller) Run(ctx context.Context) []*report.DownloadTask {
	c.fire(EventStart)
	for c.state != StateCompleted {
		switch c.state {
		case StatePresenting:
			if len(c.pending) == 0 {
				c.fire(EventBatchDone)
				continue
			}
			c.present()
			c.fire(EventShown)
		case StateAwaitingSelection:
			c.fire(c.awaitSelection(ctx))
		case StateAwaitingConfirmation:
			c.fire(c.awaitConfirmation(ctx))
		case StateInstalling:
			c.fire(c.install(ctx))
		default:
			c.fire(EventQuit)
		}
	}

	for _, t := range c.pending {
		if !t.Done() {
			t.Status = report.StatusCancelled
		}
	}
	return c.tasks
}

func (c *Controller) present() {
	fmt.Fprintln(c.Out, "\nAvailable updates:")
	for i, t := range c.pending {
		fmt.Fprintf(c.Out, "  %d) %s %s\n", i+1, t.ItemName, t.Version.Raw())
	}
	fmt.Fprintln(c.Out, "  all) install every update listed")
}

func (c *Controller) awaitSelection(ctx context.Context) Event {
	line, err := readLine(ctx, c.Prompter, fmt.Sprintf("Select 1-%d, all, or q to quit: ", len(c.pending)))
	if err != nil {
		return c.inputEnded(err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	switch {
	case isQuit(answer):
		return EventQuit
	case answer == "all":
		c.selection = append([]*report.DownloadTask(nil), c.pending...)
		c.batch = true
		return EventSelectAll
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(c.pending) {
		fmt.Fprintf(c.Out, "Invalid selection %q.\n", line)
		return EventInvalidInput
	}
	c.selection = []*report.DownloadTask{c.pending[n-1]}
	c.batch = false
	return EventSelectIndex
}

func (c *Controller) awaitConfirmation(ctx context.Context) Event {
	prompt := fmt.Sprintf("Install %d updates? [y/N]: ", len(c.selection))
	if !c.batch {
		t := c.selection[0]
		prompt = fmt.Sprintf("Install %s %s? [y/N]: ", t.ItemName, t.Version.Raw())
	}
	line, err := readLine(ctx, c.Prompter, prompt)
	if err != nil {
		return c.inputEnded(err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	switch {
	case isQuit(answer):
		return EventQuit
	case answer == "y" || answer == "yes":
		return EventConfirm
	case answer == "" || answer == "n" || answer == "no":
		c.selection = nil
		return EventDecline
	default:
		fmt.Fprintf(c.Out, "Please answer yes or no.\n")
		return EventInvalidInput
	}
}

// inputEnded maps end of input and cancellation onto quit.
func (c *Controller) inputEnded(err error) Event {
	if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		logger.Logger().Warnf("reading input: %v", err)
	}
	return EventQuit
}

func (c *Controller) install(ctx context.Context) Event {
	if c.batch && c.Prefetch != nil {
		c.prefetch(ctx)
	}

	for _, t := range c.selection {
		if ctx.Err() != nil {
			c.selection = nil
			return EventQuit
		}
		c.installTask(ctx, t)
		c.remove(t)
	}
	c.selection = nil

	if c.batch {
		return EventBatchDone
	}
	return EventTaskDone
}

func (c *Controller) prefetch(ctx context.Context) {
	var jobs []pkgfetcher.Job
	var owners []*report.DownloadTask
	for _, t := range c.selection {
		if t.Status == report.StatusDownloaded {
			continue
		}
		jobs = append(jobs, pkgfetcher.Job{URL: t.URL, Dest: t.DestinationPath})
		owners = append(owners, t)
	}
	if len(jobs) == 0 {
		return
	}
	for i, err := range c.Prefetch.FetchPackages(ctx, jobs) {
		if err == nil {
			owners[i].Status = report.StatusDownloaded
		}
	}
}

func (c *Controller) installTask(ctx context.Context, t *report.DownloadTask) {
	rec := Record{Task: t}
	defer func() { c.records = append(c.records, rec) }()

	if t.Status != report.StatusDownloaded {
		if err := c.Downloader.Download(ctx, t.URL, t.DestinationPath); err != nil {
			rec.Download = err
			t.Status, t.ErrorCode, t.Err = report.StatusFailed, shell.ExitCode(err), err
			fmt.Fprintf(c.Out, "Failed to download %s: %v\n", t.ItemName, err)
			return
		}
		t.Status = report.StatusDownloaded
	}

	rec.Install = c.Lifecycle.Install(ctx, t.DestinationPath)
	if !rec.Install.Success {
		t.Status, t.ErrorCode, t.Err = report.StatusFailed, rec.Install.ErrorCode, rec.Install.Err
		fmt.Fprintf(c.Out, "Failed to install %s (error code %d)\n", t.ItemName, rec.Install.ErrorCode)
		return
	}
	t.Status = report.StatusInstalled
	fmt.Fprintf(c.Out, "Installed %s %s\n", t.ItemName, t.Version.Raw())

	if t.PriorState != device.StateRunning || c.Lifecycle.Status(ctx, t.ItemName) == device.StateRunning {
		return
	}
	start := c.Lifecycle.Start(ctx, t.ItemName)
	rec.Start = &start
	if !start.Success {
		t.ErrorCode, t.Err = start.ErrorCode, start.Err
		fmt.Fprintf(c.Out, "Failed to start %s (error code %d)\n", t.ItemName, start.ErrorCode)
		return
	}
	fmt.Fprintf(c.Out, "Started %s\n", t.ItemName)
}

func (c *Controller) remove(t *report.DownloadTask) {
	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			return
		}
	}
}
