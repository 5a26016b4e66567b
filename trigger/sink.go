package trigger

import (
	"context"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// RejectedError is returned by Sink.Send when GitHub answers anything but
// 204. Its text is the response diagnostic.
type RejectedError struct {
	Provider   string
	StatusCode int
	Diagnostic string
}

func (e *RejectedError) Error() string { return e.Diagnostic }

// Sink chains a follow-up job for another provider once a scrape is done,
// carrying the same identifiers and comparison id.
type Sink struct {
	client   *Client
	next     provider.Provider
	headless bool
	posthog  bool
}

// NewSink returns a sink that dispatches a job for next.
func NewSink(c *Client, next provider.Provider, headless, sendToPostHog bool) *Sink {
	return &Sink{client: c, next: next, headless: headless, posthog: sendToPostHog}
}

func (s *Sink) Name() string { return "trigger:" + s.next.Name }

// Send dispatches the follow-up job. A rejected dispatch is a
// *RejectedError.
func (s *Sink) Send(ctx context.Context, rec models.VesselRecord) error {
	req := Request{
		Provider:      s.next,
		ComparisonID:  rec.ComparisonID,
		Headless:      s.headless,
		SendToPostHog: s.posthog,
	}
	if rec.MMSI != nil {
		req.MMSI = *rec.MMSI
	}
	if rec.IMO != nil {
		req.IMO = *rec.IMO
	}
	res, err := s.client.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if !res.Success {
		return &RejectedError{
			Provider:   res.Provider,
			StatusCode: res.StatusCode,
			Diagnostic: res.Diagnostic,
		}
	}
	return nil
}
