package report

import (
	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// TaskStatus is the lifecycle state of a download task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusDownloaded
	StatusInstalled
	StatusFailed
	StatusCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloaded:
		return "downloaded"
	case StatusInstalled:
		return "installed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DownloadTask is one artifact queued for download and installation.
type DownloadTask struct {
	ItemName        string
	Version         version.Key
	URL             string
	DestinationPath string
	Status          TaskStatus
	// PriorState is the running state before installation.
	PriorState device.RunningState
	// ErrorCode is the exit code of the failed step, 0 otherwise.
	ErrorCode int
	// Err is the error of the failed step.
	Err error
}

// Done reports whether the task reached a terminal status.
func (t *DownloadTask) Done() bool {
	return t.Status == StatusInstalled || t.Status == StatusFailed || t.Status == StatusCancelled
}
