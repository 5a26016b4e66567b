package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/pipeline"
	"github.com/use-agent/vesselscout/store"
	"github.com/use-agent/vesselscout/trigger"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeRunner struct {
	jobs []engine.Job
	res  *engine.Result
	err  error
}

func (f *fakeRunner) Run(_ context.Context, job engine.Job) (*engine.Result, error) {
	f.jobs = append(f.jobs, job)
	return f.res, f.err
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []trigger.Request
	status   int
}

func (f *fakeDispatcher) result(req trigger.Request) models.TriggerResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return models.TriggerResult{
		Provider:   req.Provider.Name,
		Success:    f.status == http.StatusNoContent,
		StatusCode: f.status,
	}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req trigger.Request) (models.TriggerResult, error) {
	return f.result(req), nil
}

func (f *fakeDispatcher) DispatchAll(_ context.Context, req trigger.Request) ([]models.TriggerResult, error) {
	return []models.TriggerResult{f.result(req), f.result(req)}, nil
}

type memDedup struct {
	claimed  map[string]bool
	released int
}

func (m *memDedup) Claim(_ context.Context, p, id, cmp string) (bool, error) {
	k := store.DedupKey(p, id, cmp)
	if m.claimed[k] {
		return false, nil
	}
	m.claimed[k] = true
	return true, nil
}

func (m *memDedup) Release(_ context.Context, p, id, cmp string) error {
	delete(m.claimed, store.DedupKey(p, id, cmp))
	m.released++
	return nil
}

func post(t *testing.T, h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestScrapeSuccess(t *testing.T) {
	lat, lon := 10.5, 20.25
	runner := &fakeRunner{res: &engine.Result{
		Record: models.VesselRecord{Provider: "vesselfinder", Lat: &lat, Lon: &lon},
		States: []engine.State{engine.StateInit, engine.StateLoading, engine.StateExtracting,
			engine.StateReconciling, engine.StateDispatching, engine.StateDone},
	}}

	w := post(t, Scrape(runner, &pipeline.Builder{}), `{"provider":"vesselfinder","imo":"9395044","comparison_id":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.ScrapeResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 10.5, *resp.Record.Lat)
	assert.Equal(t, "DONE", resp.States[len(resp.States)-1])

	require.Len(t, runner.jobs, 1)
	assert.Equal(t, "vesselfinder", runner.jobs[0].Provider.Name)
	assert.Equal(t, "9395044", runner.jobs[0].IMO)
	assert.Equal(t, "c1", runner.jobs[0].ComparisonID)
}

func TestScrapeMissingIdentifier(t *testing.T) {
	runner := &fakeRunner{
		res: &engine.Result{States: []engine.State{engine.StateInit, engine.StateFailed}},
		err: models.NewScrapeError(models.ErrCodeMissingIdentifier, "mmsi or imo is required", nil),
	}

	w := post(t, Scrape(runner, &pipeline.Builder{}), `{"provider":"marinetraffic"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[models.ScrapeResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrCodeMissingIdentifier, resp.Error.Code)
	assert.Equal(t, []string{"INIT", "FAILED"}, resp.States)
}

func TestScrapeInvalidInput(t *testing.T) {
	runner := &fakeRunner{}

	w := post(t, Scrape(runner, &pipeline.Builder{}), `{"provider":"shipspotting","mmsi":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrCodeInvalidInput, decode[models.ScrapeResponse](t, w).Error.Code)
	assert.Empty(t, runner.jobs)

	w = post(t, Scrape(runner, &pipeline.Builder{}), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScrapeTimeout(t *testing.T) {
	runner := &fakeRunner{err: models.NewScrapeError(models.ErrCodeTimeout, "page did not load", context.DeadlineExceeded)}

	w := post(t, Scrape(runner, &pipeline.Builder{}), `{"mmsi":"366998410"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestTriggerSingle(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusNoContent}

	w := post(t, Trigger(d, nil), `{"provider":"marinetraffic","mmsi":"366998410","fetch_datadocked":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.TriggerResponse](t, w)
	assert.True(t, resp.Success)
	require.Len(t, d.requests, 1)
	assert.Equal(t, "marinetraffic", d.requests[0].Provider.Name)
	assert.True(t, d.requests[0].Headless)
	assert.True(t, d.requests[0].FetchDataDocked)
}

func TestTriggerAll(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusNoContent}

	w := post(t, Trigger(d, nil), `{"provider":"all","mmsi":"366998410"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.TriggerResponse](t, w).Results, 2)
}

func TestTriggerRejected(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusUnprocessableEntity}
	dedup := &memDedup{claimed: map[string]bool{}}

	w := post(t, Trigger(d, dedup), `{"mmsi":"366998410"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[models.TriggerResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, models.ErrCodeTriggerFailed, resp.Error.Code)
	assert.Equal(t, 1, dedup.released)
	assert.Empty(t, dedup.claimed)
}

func TestTriggerDeduplicates(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusNoContent}
	dedup := &memDedup{claimed: map[string]bool{}}
	h := Trigger(d, dedup)
	body := `{"provider":"vesselfinder","imo":"9395044","comparison_id":"c7"}`

	require.Equal(t, http.StatusOK, post(t, h, body).Code)
	w := post(t, h, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrCodeDuplicate, decode[models.TriggerResponse](t, w).Error.Code)
	assert.Len(t, d.requests, 1)
	assert.True(t, dedup.claimed["dedup:trigger:vesselfinder:9395044:c7"])
}

func TestTriggerRequiresIdentifier(t *testing.T) {
	d := &fakeDispatcher{status: http.StatusNoContent}

	w := post(t, Trigger(d, nil), `{"provider":"vesselfinder"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, d.requests)
}

func TestVessel(t *testing.T) {
	s := store.NewMemoryStore(0)
	require.NoError(t, s.Upsert(context.Background(), models.NewVesselRecord("marinetraffic", "366998410", "", "")))

	r := gin.New()
	r.GET("/vessels/:mmsi", Vessel(s))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vessels/366998410", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "366998410", *decode[models.VesselResponse](t, w).Record.MMSI)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vessels/000000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeNotFound, decode[models.VesselResponse](t, w).Error.Code)
}

type stats struct{ active, max int }

func (s stats) Stats() (int, int) { return s.active, s.max }

func TestHealth(t *testing.T) {
	tests := []struct {
		name  string
		stats stats
		want  string
	}{
		{"idle", stats{0, 4}, "healthy"},
		{"busy", stats{3, 4}, "healthy"},
		{"saturated", stats{4, 4}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", Health(tt.stats, time.Now()))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[models.HealthResponse](t, w)
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.stats.max, resp.MaxSessions)
		})
	}
}
