// Package datadocked queries the DataDocked vessel API, the secondary data
// source consulted next to the browser scrape.
package datadocked

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/httpclient"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
	"github.com/use-agent/vesselscout/record"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("datadocked: DATADOCKED_API_KEY is not set")

const infoPath = "/vessels_operations/get-vessel-info"

// detailKeys name the nested objects that carry a full vessel description.
var detailKeys = []string{"detail", "details", "vessel", "vessel_info", "vesselinfo", "data"}

// Client is a keyed HTTP client for the DataDocked API.
type Client struct {
	http    *resty.Client
	enabled bool
	now     func() time.Time
}

// NewClient builds a Client from cfg.
func NewClient(cfg config.DataDockedConfig) *Client {
	http := httpclient.New("datadocked", cfg.Timeout).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Accept", "application/json")
	return &Client{http: http, enabled: cfg.Enabled(), now: time.Now}
}

// Fetch returns the decoded payload for an mmsi or imo.
func (c *Client) Fetch(ctx context.Context, identifier string) (any, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	id := models.TrimIdentifier(identifier)
	if id == "" {
		return nil, models.NewScrapeError(models.ErrCodeMissingIdentifier, "mmsi or imo is required", nil)
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("imo_or_mmsi", id).
		Get(infoPath)
	if err != nil {
		return nil, fmt.Errorf("datadocked: fetch %s: %w", id, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("datadocked: fetch %s: status %d: %s", id, res.StatusCode(), res.String())
	}
	v, err := extract.DecodeJSON(res.Body())
	if err != nil {
		return nil, fmt.Errorf("datadocked: decode %s: %w", id, err)
	}
	return v, nil
}

// Lookup fetches and validates the payload for identifier. It returns
// (nil, nil) when the answer does not pass Valid.
func (c *Client) Lookup(ctx context.Context, identifier string) (*models.VesselRecord, error) {
	v, err := c.Fetch(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !Valid(v) {
		return nil, nil
	}
	rec := ToRecord(v, c.now())
	return &rec, nil
}

// Valid reports whether payload is usable: it either carries a non-empty
// nested detail object, or it yields an identifier together with both
// coordinates.
func Valid(payload any) bool {
	m, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	for k, v := range m {
		if !isDetailKey(k) {
			continue
		}
		if d, ok := v.(map[string]any); ok && len(d) > 0 {
			return true
		}
	}
	rec := ToRecord(payload, time.Time{})
	return rec.HasIdentifier() && rec.HasCoordinates()
}

// ToRecord maps payload onto a record tagged with the secondary provider.
// Fields are taken first-writer-wins in walk order.
func ToRecord(payload any, captured time.Time) models.VesselRecord {
	rec := record.NewReconciler(models.NewVesselRecord(provider.DataDocked, "", "", ""))
	rec.Apply(record.SourceSecondary, extract.Walk(payload))
	out := rec.Record()
	if out.Timestamp == nil && !captured.IsZero() {
		t := captured.UTC()
		out.Timestamp = &t
	}
	return record.Finalize(out)
}

func isDetailKey(k string) bool {
	k = strings.ToLower(k)
	for _, d := range detailKeys {
		if k == d {
			return true
		}
	}
	return false
}
