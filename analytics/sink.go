package analytics

import (
	"context"
	"time"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// Sink captures finished records under a provider's event name.
type Sink struct {
	client *Client
	p      provider.Provider
	name   string
}

// NewSink returns the sink for records scraped from p.
func NewSink(c *Client, p provider.Provider) *Sink {
	return &Sink{client: c, p: p, name: "posthog"}
}

// NewSecondarySink returns the sink for records of the secondary source.
// It is named "posthog:<source>" so outcomes stay distinguishable.
func NewSecondarySink(c *Client, p provider.Provider) *Sink {
	return &Sink{client: c, p: p, name: "posthog:" + p.Name}
}

func (s *Sink) Name() string { return s.name }

// Send captures rec.
func (s *Sink) Send(ctx context.Context, rec models.VesselRecord) error {
	now := s.client.now()
	props := rec.Flatten()
	if ts := props["timestamp"]; ts != nil {
		props["position_timestamp"] = ts
	}
	s.label(props, now)
	return s.client.Capture(ctx, Event{
		Name:       s.p.EventName,
		DistinctID: s.p.DistinctID,
		Properties: props,
		Timestamp:  now,
	})
}

// ReportFailure captures the provider's failure event with the error text.
func (s *Sink) ReportFailure(ctx context.Context, rec models.VesselRecord, cause error) error {
	return s.client.CaptureFailure(ctx, s.p, rec, cause)
}

// CaptureFailure sends p's failure event for rec.
func (c *Client) CaptureFailure(ctx context.Context, p provider.Provider, rec models.VesselRecord, cause error) error {
	now := c.now()
	props := map[string]any{
		"comparison_id": rec.ComparisonID,
		"error":         "",
	}
	if rec.MMSI != nil {
		props["mmsi"] = *rec.MMSI
	}
	if rec.IMO != nil {
		props["imo"] = *rec.IMO
	}
	if cause != nil {
		props["error"] = cause.Error()
		if se := models.AsScrapeError(cause); se != nil {
			props["error_code"] = se.Code
		}
	}
	(&Sink{p: p}).label(props, now)
	return c.Capture(ctx, Event{
		Name:       p.FailureEvent,
		DistinctID: p.DistinctID,
		Properties: props,
		Timestamp:  now,
	})
}

func (s *Sink) label(props map[string]any, now time.Time) {
	if s.p.Label != "" {
		props["provider"] = s.p.Label
	}
	if s.p.AnalyticsDataSource != "" {
		props["data_source"] = s.p.AnalyticsDataSource
	}
	props["timestamp"] = now.UTC().Format(time.RFC3339)
}
