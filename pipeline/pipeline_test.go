package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/vesselscout/analytics"
	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/datadocked"
	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/store"
	"github.com/use-agent/vesselscout/trigger"
)

func sinkNames(sinks []engine.Sink) []string {
	out := make([]string, len(sinks))
	for i, s := range sinks {
		out[i] = s.Name()
	}
	return out
}

func fullBuilder() *Builder {
	return &Builder{
		Analytics: analytics.NewClient(config.AnalyticsConfig{APIKey: "k", Host: "http://127.0.0.1:1"}),
		Trigger:   trigger.NewClient(config.TriggerConfig{Token: "t", Owner: "o", Repo: "r", APIBase: "http://127.0.0.1:1"}),
		Secondary: datadocked.NewClient(config.DataDockedConfig{APIKey: "d", BaseURL: "http://127.0.0.1:1"}),
		Store:     store.NewMemoryStore(0),
	}
}

func TestJobWiresRequestedSinks(t *testing.T) {
	req := models.ScrapeRequest{
		Provider:        "marinetraffic",
		MMSI:            "366998410",
		ComparisonID:    "cmp-1",
		SendToPostHog:   true,
		Store:           true,
		FetchDataDocked: true,
		ChainProvider:   "vesselfinder",
	}
	req.Defaults()

	job, err := fullBuilder().Job(req)
	require.NoError(t, err)
	assert.Equal(t, "marinetraffic", job.Provider.Name)
	assert.Equal(t, "cmp-1", job.ComparisonID)
	assert.Equal(t, []string{"posthog", "store", "trigger:vesselfinder"}, sinkNames(job.Sinks))
	assert.NotNil(t, job.Secondary)
	assert.Equal(t, []string{"posthog:datadocked"}, sinkNames(job.SecondarySinks))
}

func TestJobWithoutSwitches(t *testing.T) {
	req := models.ScrapeRequest{MMSI: "366998410"}
	req.Defaults()

	job, err := (&Builder{}).Job(req)
	require.NoError(t, err)
	assert.Empty(t, job.Sinks)
	assert.Nil(t, job.Secondary)
}

func TestJobRejectsUnconfiguredSwitch(t *testing.T) {
	req := models.ScrapeRequest{MMSI: "366998410", Store: true}
	req.Defaults()

	_, err := (&Builder{}).Job(req)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.AsScrapeError(err).Code)
}

func TestResponse(t *testing.T) {
	lat, lon := 1.0, 2.0
	done := &engine.Result{
		Record: models.VesselRecord{Provider: "marinetraffic", Lat: &lat, Lon: &lon},
		States: []engine.State{engine.StateInit, engine.StateDone},
	}
	ok := Response(done, nil)
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.Equal(t, []string{"INIT", "DONE"}, ok.States)

	done.Record.Lon = nil
	partial := Response(done, nil)
	assert.False(t, partial.Success)
	require.NotNil(t, partial.Error)
	assert.Equal(t, models.ErrCodeNoCoordinates, partial.Error.Code)

	failed := Response(&engine.Result{States: []engine.State{engine.StateInit, engine.StateFailed}},
		models.NewScrapeError(models.ErrCodeMissingIdentifier, "mmsi or imo is required", nil))
	assert.False(t, failed.Success)
	assert.Equal(t, models.ErrCodeMissingIdentifier, failed.Error.Code)

	bare := Response(nil, errors.New("boom"))
	assert.Nil(t, bare.Record)
	assert.Equal(t, models.ErrCodeInternal, bare.Error.Code)
}
