package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/vesselscout/models"
)

func ptr[T any](v T) *T { return &v }

func found() models.ScrapeResponse {
	return models.ScrapeResponse{
		Success: true,
		Record: &models.VesselRecord{
			Provider: "marinetraffic",
			MMSI:     ptr("366998410"),
			Name:     ptr("ATLANTIC STAR"),
			Lat:      ptr(10.5),
			Lon:      ptr(-20.25),
		},
		Provenance: map[string]string{"lat": "network", "lon": "network", "name": "dom_attributes"},
		Sinks:      []models.SinkOutcome{{Sink: "posthog", Success: false, Diagnostic: "status 401"}},
	}
}

func TestReportSuccess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "github_output")
	var buf bytes.Buffer

	err := report(&buf, identifierLabel("366998410", ""), found(), out)
	require.NoError(t, err)

	text := buf.String()
	assert.True(t, strings.HasPrefix(text,
		"::notice title=Scraping Success::Successfully scraped data for MMSI 366998410\n"))
	assert.Contains(t, text, "ATLANTIC STAR")
	assert.Contains(t, text, "dom_attributes")
	assert.Contains(t, text, "status 401")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ship_name=ATLANTIC STAR\nlatitude=10.5\nlongitude=-20.25\n", string(got))
}

func TestReportWithoutCoordinatesFails(t *testing.T) {
	out := filepath.Join(t.TempDir(), "github_output")
	resp := found()
	resp.Success = false
	resp.Record.Lon = nil
	resp.Error = &models.ErrorDetail{Code: models.ErrCodeNoCoordinates, Message: "no coordinates found"}
	var buf bytes.Buffer

	err := report(&buf, identifierLabel("", "9395044"), resp, out)
	assert.ErrorIs(t, err, errSilent)
	assert.True(t, strings.HasPrefix(buf.String(), "::error title=Scraping Failed::no coordinates found\n"))
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCIStatusDefaultsAndFlattensMessage(t *testing.T) {
	var buf bytes.Buffer
	ciStatus(&buf, "MMSI 1", models.ScrapeResponse{})
	assert.Equal(t, "::error title=Scraping Failed::No data was extracted\n", buf.String())

	buf.Reset()
	ciStatus(&buf, "MMSI 1", models.ScrapeResponse{Error: &models.ErrorDetail{Message: "line one\nline two"}})
	assert.Equal(t, "::error title=Scraping Failed::line one line two\n", buf.String())
}

func TestWriteOutputsAppendsAndDefaults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "github_output")
	require.NoError(t, os.WriteFile(out, []byte("previous=1\n"), 0o644))

	require.NoError(t, writeOutputs(out, &models.VesselRecord{}))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous=1\nship_name=Unknown\nlatitude=N/A\nlongitude=N/A\n", string(got))

	assert.NoError(t, writeOutputs("", nil))
}
