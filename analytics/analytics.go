// Package analytics sends vessel records and scrape failures to PostHog.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/httpclient"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("analytics: POSTHOG_API_KEY is not set")

// Event is one PostHog capture.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
	Timestamp  time.Time
}

type capturePayload struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
	Timestamp  string         `json:"timestamp"`
}

// Client talks to the PostHog capture endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	now    func() time.Time
}

// NewClient builds a Client from cfg. Without an API key every Capture
// returns ErrDisabled.
func NewClient(cfg config.AnalyticsConfig) *Client {
	http := httpclient.New("posthog", cfg.Timeout).
		SetBaseURL(strings.TrimRight(cfg.Host, "/")).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &Client{http: http, apiKey: cfg.APIKey, now: time.Now}
}

// Capture posts ev. Any non-2xx answer is an error carrying the body.
func (c *Client) Capture(ctx context.Context, ev Event) error {
	if c.apiKey == "" {
		return ErrDisabled
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	props := ev.Properties
	if props == nil {
		props = map[string]any{}
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(capturePayload{
			APIKey:     c.apiKey,
			Event:      ev.Name,
			DistinctID: ev.DistinctID,
			Properties: props,
			Timestamp:  ts.UTC().Format(time.RFC3339Nano),
		}).
		Post("/capture/")
	if err != nil {
		return fmt.Errorf("analytics: capture %s: %w", ev.Name, err)
	}
	if res.IsError() {
		return fmt.Errorf("analytics: capture %s: status %d: %s", ev.Name, res.StatusCode(), res.String())
	}
	return nil
}
