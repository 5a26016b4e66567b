package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

type dispatch struct {
	Path   string
	Auth   string
	Accept string
	Body   dispatchBody
}

func newTestClient(t *testing.T, status int, body string) (*Client, *[]dispatch) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []dispatch
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := dispatch{
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Accept: r.Header.Get("Accept"),
		}
		_ = json.NewDecoder(r.Body).Decode(&d.Body)
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(config.TriggerConfig{
		Token:   "ghp_test",
		Owner:   "acme",
		Repo:    "scrapers",
		APIBase: srv.URL,
		Timeout: 5 * time.Second,
	})
	return c, &seen
}

func mustProvider(t *testing.T, name string) provider.Provider {
	t.Helper()
	p, err := provider.Lookup(name)
	require.NoError(t, err)
	return p
}

func TestDispatchAccepted(t *testing.T) {
	c, seen := newTestClient(t, http.StatusNoContent, "")

	res, err := c.Dispatch(context.Background(), Request{
		Provider:        mustProvider(t, provider.MarineTraffic),
		MMSI:            "366998410",
		ComparisonID:    "cmp-1",
		Headless:        true,
		SendToPostHog:   true,
		FetchDataDocked: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, res.Diagnostic)
	assert.Equal(t, "scrape-marine-traffic", res.EventType)

	require.Len(t, *seen, 1)
	d := (*seen)[0]
	assert.Equal(t, "/repos/acme/scrapers/dispatches", d.Path)
	assert.Equal(t, "Bearer ghp_test", d.Auth)
	assert.Equal(t, "application/vnd.github.v3+json", d.Accept)
	assert.Equal(t, "scrape-marine-traffic", d.Body.EventType)
	assert.Equal(t, map[string]any{
		"mmsi":                       "366998410",
		"comparison_id":              "cmp-1",
		"headless":                   true,
		"send_to_posthog":            true,
		"fetch_datadocked":           true,
		"fetch_datadocked_satellite": false,
	}, d.Body.ClientPayload)
}

func TestDispatchRejectedCarriesBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnprocessableEntity, "bad mmsi")

	res, err := c.Dispatch(context.Background(), Request{
		Provider: mustProvider(t, provider.VesselFinder),
		IMO:      "9395044",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "bad mmsi", res.Diagnostic)
}

func TestDispatchOtherSuccessStatusIsFailure(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"ok":true}`)

	res, err := c.Dispatch(context.Background(), Request{
		Provider: mustProvider(t, provider.MarineTraffic),
		MMSI:     "366998410",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, `{"ok":true}`, res.Diagnostic)
}

func TestDispatchMarineTrafficNeedsMMSI(t *testing.T) {
	c, seen := newTestClient(t, http.StatusNoContent, "")

	_, err := c.Dispatch(context.Background(), Request{
		Provider: mustProvider(t, provider.MarineTraffic),
		IMO:      "9395044",
	})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeMissingIdentifier, models.AsScrapeError(err).Code)
	assert.Empty(t, *seen)
}

func TestDispatchDisabled(t *testing.T) {
	c := NewClient(config.TriggerConfig{Repo: "scrapers"})
	_, err := c.Dispatch(context.Background(), Request{
		Provider: mustProvider(t, provider.MarineTraffic),
		MMSI:     "366998410",
	})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestDispatchAll(t *testing.T) {
	c, seen := newTestClient(t, http.StatusNoContent, "")

	results, err := c.DispatchAll(context.Background(), Request{MMSI: "366998410", IMO: "9395044"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success, r.Provider)
	}
	require.Len(t, *seen, 2)
	for _, d := range *seen {
		assert.Equal(t, true, d.Body.ClientPayload["trigger_all_providers"])
	}
}

func TestDispatchAllSkipsUnaddressableProvider(t *testing.T) {
	c, seen := newTestClient(t, http.StatusNoContent, "")

	results, err := c.DispatchAll(context.Background(), Request{IMO: "9395044"})
	require.NoError(t, err)

	byProvider := map[string]models.TriggerResult{}
	for _, r := range results {
		byProvider[r.Provider] = r
	}
	assert.False(t, byProvider[provider.MarineTraffic].Success)
	assert.NotEmpty(t, byProvider[provider.MarineTraffic].Diagnostic)
	assert.True(t, byProvider[provider.VesselFinder].Success)
	assert.Len(t, *seen, 1)
}

func TestSinkChainsProvider(t *testing.T) {
	c, seen := newTestClient(t, http.StatusNoContent, "")
	s := NewSink(c, mustProvider(t, provider.VesselFinder), true, false)
	assert.Equal(t, "trigger:vesselfinder", s.Name())

	rec := models.NewVesselRecord(provider.MarineTraffic, "366998410", "9395044", "cmp-9")
	require.NoError(t, s.Send(context.Background(), rec))

	require.Len(t, *seen, 1)
	cp := (*seen)[0].Body.ClientPayload
	assert.Equal(t, "scrape-vesselfinder", (*seen)[0].Body.EventType)
	assert.Equal(t, "cmp-9", cp["comparison_id"])
	assert.Equal(t, "9395044", cp["imo"])
}

func TestSinkRejectedIsError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNotFound, "Not Found")
	s := NewSink(c, mustProvider(t, provider.VesselFinder), true, false)

	err := s.Send(context.Background(), models.NewVesselRecord(provider.MarineTraffic, "366998410", "", ""))
	require.Error(t, err)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusNotFound, rejected.StatusCode)
	assert.Equal(t, provider.VesselFinder, rejected.Provider)
	assert.Equal(t, "Not Found", err.Error())
}

type staticSession struct{ ev *extract.Evidence }

func (s staticSession) Load(context.Context, string) error { return nil }
func (s staticSession) Settle(context.Context) error { return nil }
func (s staticSession) Close() error { return nil }

func (s staticSession) Evidence(context.Context) (*extract.Evidence, error) {
	return s.ev, nil
}

type staticSessions struct{ ev *extract.Evidence }

func (f staticSessions) Open(context.Context, provider.Provider) (engine.Session, error) {
	return staticSession{ev: f.ev}, nil
}

func TestDispatcherReportsRejectedTriggerBody(t *testing.T) {
	c, seen := newTestClient(t, http.StatusUnprocessableEntity, "bad mmsi")
	sessions := staticSessions{ev: &extract.Evidence{HTML: `<html><body><div>Latitude: 10.5</div><div>Longitude: 20.25</div></body></html>`}}
	cfg := &config.Config{Scraper: config.ScraperConfig{Timeout: time.Minute}}

	res, err := engine.NewDispatcher(cfg, sessions).Run(context.Background(), engine.Job{
		Provider: mustProvider(t, provider.MarineTraffic),
		MMSI:     "366998410",
		Sinks:    []engine.Sink{NewSink(c, mustProvider(t, provider.VesselFinder), true, false)},
	})
	require.NoError(t, err)
	assert.Equal(t, engine.StateDone, res.State())
	assert.Equal(t, []models.SinkOutcome{
		{Sink: "trigger:vesselfinder", Success: false, Diagnostic: "bad mmsi"},
	}, res.Sinks)
	assert.Len(t, *seen, 1)
}
