package datadocked

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/extract"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := extract.DecodeJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestValid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"nested detail", `{"detail":{"name":"EVER GIVEN"}}`, true},
		{"nested vessel", `{"vessel":{"mmsi":"353136000"}}`, true},
		{"identifier and coordinates", `{"mmsi":"353136000","latitude":"29.9","longitude":"32.5"}`, true},
		{"imo and coordinates", `{"imo":9811000,"lat":29.9,"lon":32.5}`, true},
		{"empty detail", `{"detail":{}}`, false},
		{"coordinates without identifier", `{"latitude":29.9,"longitude":32.5}`, false},
		{"identifier without coordinates", `{"mmsi":"353136000"}`, false},
		{"out of range latitude", `{"mmsi":"353136000","lat":123,"lon":32.5}`, false},
		{"error envelope", `{"error":"vessel not found","status":404}`, false},
		{"array", `[{"mmsi":"353136000","lat":1,"lon":2}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(decode(t, tt.payload)))
		})
	}
}

func TestToRecord(t *testing.T) {
	captured := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := ToRecord(decode(t, `{
		"detail": {
			"name": "EVER GIVEN",
			"mmsi": "353136000",
			"imo": "9811000",
			"latitude": "29.95",
			"longitude": "32.55",
			"speed": "0",
			"destination": "ROTTERDAM",
			"flag": "Panama"
		}
	}`), captured)

	assert.Equal(t, "datadocked", rec.Provider)
	require.NotNil(t, rec.MMSI)
	assert.Equal(t, "353136000", *rec.MMSI)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "EVER GIVEN", *rec.Name)
	require.True(t, rec.HasCoordinates())
	assert.InDelta(t, 29.95, *rec.Lat, 1e-9)
	assert.InDelta(t, 32.55, *rec.Lon, 1e-9)
	require.NotNil(t, rec.Speed)
	assert.Zero(t, *rec.Speed)
	require.NotNil(t, rec.Flag)
	assert.Equal(t, "Panama", *rec.Flag)
	require.NotNil(t, rec.Timestamp)
	assert.True(t, rec.Timestamp.Equal(captured))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.DataDockedConfig{APIKey: "dd_key", BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestLookupValid(t *testing.T) {
	var gotKey, gotQuery, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotQuery = r.URL.Query().Get("imo_or_mmsi")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mmsi":"353136000","lat":29.9,"lon":32.5}`))
	})

	rec, err := c.Lookup(context.Background(), " 353136000 ")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "dd_key", gotKey)
	assert.Equal(t, "353136000", gotQuery)
	assert.Equal(t, infoPath, gotPath)
	assert.True(t, rec.HasCoordinates())
}

func TestLookupInvalidIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"no data"}`))
	})

	rec, err := c.Lookup(context.Background(), "353136000")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLookupHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Lookup(context.Background(), "353136000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestLookupDisabled(t *testing.T) {
	c := NewClient(config.DataDockedConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Lookup(context.Background(), "353136000")
	assert.ErrorIs(t, err, ErrDisabled)
}
