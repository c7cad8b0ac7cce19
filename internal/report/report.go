// Package report aggregates resolution results into the presentation
// contract and the list of download tasks.
package report

import (
	"errors"
	"path/filepath"

	"github.com/open-edge-platform/appliance-update-tool/internal/device"
	"github.com/open-edge-platform/appliance-update-tool/internal/resolver"
	"github.com/open-edge-platform/appliance-update-tool/internal/version"
)

// ErrConflictingFilters is returned when both official-only and
// community-only filtering are requested.
var ErrConflictingFilters = errors.New("official-only and community-only filters are mutually exclusive")

// Filter selects which item results enter the report.
type Filter struct {
	RunningOnly   bool
	OfficialOnly  bool
	CommunityOnly bool
}

// Validate rejects contradictory filters. Callers check it before any
// resolution work starts.
func (f Filter) Validate() error {
	if f.OfficialOnly && f.CommunityOnly {
		return ErrConflictingFilters
	}
	return nil
}

// Includes reports whether an item passes the filter.
func (f Filter) Includes(item device.InventoryItem) bool {
	if f.RunningOnly && item.RunningState != device.StateRunning {
		return false
	}
	if f.OfficialOnly && item.SourceClass != device.SourceOfficial {
		return false
	}
	if f.CommunityOnly && item.SourceClass != device.SourceCommunity {
		return false
	}
	return true
}

// Report is the aggregated outcome of one run.
type Report struct {
	OS          *resolver.Result
	Items       []resolver.Result
	DownloadDir string

	// running is the pre-install running state per item name.
	running map[string]device.RunningState
}

// Row is one line of the presentation contract. Field order is fixed.
type Row struct {
	Name            string  `json:"name"`
	Source          string  `json:"source"`
	Installed       string  `json:"installed"`
	Latest          string  `json:"latest"`
	UpdateAvailable bool    `json:"update_available"`
	URL             *string `json:"url"`
}

// Summary carries the aggregate counts shown under the table.
type Summary struct {
	ItemsConsidered int  `json:"items_considered"`
	ItemsWithUpdate int  `json:"items_with_update"`
	OSChecked       bool `json:"os_checked"`
	OSUpdate        bool `json:"os_update"`
}

// Build assembles a report. results must be in inventory order and match
// items index for index; items rejected by filter are left out. osResult is
// nil when the OS was not checked.
func Build(osResult *resolver.Result, items []device.InventoryItem, results []resolver.Result, filter Filter, downloadDir string) *Report {
	r := &Report{
		OS:          osResult,
		DownloadDir: downloadDir,
		running:     make(map[string]device.RunningState, len(items)),
	}
	for i, res := range results {
		if i < len(items) {
			if !filter.Includes(items[i]) {
				continue
			}
			r.running[res.Name] = items[i].RunningState
		}
		r.Items = append(r.Items, res)
	}
	return r
}

// Rows returns the OS row first, when present, then one row per item.
func (r *Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Items)+1)
	if r.OS != nil {
		rows = append(rows, rowOf(*r.OS, "OS"))
	}
	for _, res := range r.Items {
		rows = append(rows, rowOf(res, res.SourceClass.String()))
	}
	return rows
}

func rowOf(res resolver.Result, label string) Row {
	row := Row{
		Name:            res.Name,
		Source:          label,
		Installed:       displayVersion(res.InstalledVersion),
		Latest:          displayVersion(res.LatestVersion),
		UpdateAvailable: res.UpdateAvailable,
	}
	if res.UpdateAvailable && res.SelectedArtifact != nil {
		u := res.SelectedArtifact.URL
		row.URL = &u
	}
	return row
}

// displayVersion prefers the string the device reported.
func displayVersion(k version.Key) string {
	if k.Raw() != "" {
		return k.Raw()
	}
	return k.String()
}

// Tasks returns one pending download task per item with an update, in
// inventory order. The OS is never queued.
func (r *Report) Tasks() []*DownloadTask {
	var tasks []*DownloadTask
	for _, res := range r.Items {
		if !res.UpdateAvailable || res.SelectedArtifact == nil {
			continue
		}
		tasks = append(tasks, &DownloadTask{
			ItemName:        res.Name,
			Version:         res.LatestVersion,
			URL:             res.SelectedArtifact.URL,
			DestinationPath: filepath.Join(r.DownloadDir, filepath.Base(res.SelectedArtifact.Filename)),
			Status:          StatusPending,
			PriorState:      r.running[res.Name],
		})
	}
	return tasks
}

// Summary returns the aggregate counts.
func (r *Report) Summary() Summary {
	s := Summary{ItemsConsidered: len(r.Items), OSChecked: r.OS != nil}
	for _, res := range r.Items {
		if res.UpdateAvailable {
			s.ItemsWithUpdate++
		}
	}
	if r.OS != nil {
		s.OSUpdate = r.OS.UpdateAvailable
	}
	return s
}
