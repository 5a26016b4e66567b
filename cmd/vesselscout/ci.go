package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// ciStatus writes the GitHub Actions workflow command for resp.
func ciStatus(w io.Writer, identifier string, resp models.ScrapeResponse) {
	if resp.Success {
		fmt.Fprintf(w, "::notice title=Scraping Success::Successfully scraped data for %s\n", identifier)
		return
	}
	msg := "No data was extracted"
	if resp.Error != nil && resp.Error.Message != "" {
		msg = resp.Error.Message
	}
	fmt.Fprintf(w, "::error title=Scraping Failed::%s\n", oneLine(msg))
}

// writeOutputs appends ship_name, latitude and longitude to the step output
// file. An empty path is a no-op.
func writeOutputs(path string, rec *models.VesselRecord) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	name, lat, lon := "Unknown", "N/A", "N/A"
	if rec != nil {
		if rec.Name != nil {
			name = oneLine(*rec.Name)
		}
		if rec.Lat != nil {
			lat = strconv.FormatFloat(*rec.Lat, 'f', -1, 64)
		}
		if rec.Lon != nil {
			lon = strconv.FormatFloat(*rec.Lon, 'f', -1, 64)
		}
	}
	_, err = fmt.Fprintf(f, "ship_name=%s\nlatitude=%s\nlongitude=%s\n", name, lat, lon)
	return err
}

// renderSummary prints the record, its provenance and the sink outcomes.
func renderSummary(w io.Writer, resp models.ScrapeResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("VESSEL SCRAPE SUMMARY")
	t.AppendHeader(table.Row{"Field", "Value", "Source"})

	var props map[string]any
	if resp.Record != nil {
		props = resp.Record.Flatten()
	}
	for _, f := range record.Fields {
		v := "N/A"
		if props != nil && props[string(f)] != nil {
			v = fmt.Sprint(props[string(f)])
		}
		t.AppendRow(table.Row{string(f), v, resp.Provenance[string(f)]})
	}
	if resp.Record != nil && resp.Record.ComparisonID != "" {
		t.AppendRow(table.Row{"comparison_id", resp.Record.ComparisonID, ""})
	}

	if len(resp.Sinks) > 0 {
		t.AppendSeparator()
		for _, s := range resp.Sinks {
			status := "ok"
			if !s.Success {
				status = "failed: " + s.Diagnostic
			}
			t.AppendRow(table.Row{"sink " + s.Sink, status, ""})
		}
	}
	t.AppendFooter(table.Row{"total", fmt.Sprintf("%d ms", resp.Timing.TotalMs), ""})
	t.Render()
}

func oneLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
