package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Document is the JSON rendering of a report.
type Document struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

// RenderText writes the report as an aligned table followed by the summary.
func RenderText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tINSTALLED\tLATEST\tUPDATE\tURL")
	for _, row := range r.Rows() {
		url := "-"
		if row.URL != nil {
			url = *row.URL
		}
		update := "no"
		if row.UpdateAvailable {
			update = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", row.Name, row.Source, row.Installed, row.Latest, update, url)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing report table: %w", err)
	}

	s := r.Summary()
	if _, err := fmt.Fprintf(w, "\n%d package(s) checked, %d with updates available\n", s.ItemsConsidered, s.ItemsWithUpdate); err != nil {
		return err
	}
	if s.OSChecked {
		status := "up to date"
		if s.OSUpdate {
			status = "update available (manual installation required)"
		}
		if _, err := fmt.Fprintf(w, "Operating system: %s\n", status); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON writes the report as a JSON document.
func RenderJSON(w io.Writer, r *Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(Document{Rows: r.Rows(), Summary: r.Summary()}); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
