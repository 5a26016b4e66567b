// Package trigger starts remote scrape jobs through GitHub's
// repository_dispatch endpoint.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/httpclient"
	"github.com/use-agent/vesselscout/metrics"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// ErrDisabled is returned when the token, owner or repository is missing.
var ErrDisabled = errors.New("trigger: GITHUB_TOKEN, GITHUB_REPO_OWNER and GITHUB_REPO_NAME are required")

// Request is one remote job to start.
type Request struct {
	Provider     provider.Provider
	MMSI         string
	IMO          string
	ComparisonID string

	Headless      bool
	SendToPostHog bool

	// MarineTraffic only.
	FetchDataDocked          bool
	FetchDataDockedSatellite bool

	// AllProviders marks a dispatch that is part of a fan-out.
	AllProviders bool
}

type dispatchBody struct {
	EventType     string         `json:"event_type"`
	ClientPayload map[string]any `json:"client_payload"`
}

// Client sends repository_dispatch events to one repository.
type Client struct {
	http  *resty.Client
	owner string
	repo  string
	ok    bool
}

// NewClient builds a Client from cfg.
func NewClient(cfg config.TriggerConfig) *Client {
	http := httpclient.New("github", cfg.Timeout).
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("Content-Type", "application/json")
	return &Client{http: http, owner: cfg.Owner, repo: cfg.Repo, ok: cfg.Enabled()}
}

// Dispatch starts the job described by req. The job is accepted only when
// GitHub answers 204; any other status yields an unsuccessful result whose
// Diagnostic is the response body. The error is reserved for requests that
// were never sent.
func (c *Client) Dispatch(ctx context.Context, req Request) (models.TriggerResult, error) {
	p := req.Provider
	result := models.TriggerResult{Provider: p.Name, EventType: p.TriggerEventType}
	if !c.ok {
		return result, ErrDisabled
	}
	if _, err := p.TargetURL(req.MMSI, req.IMO); err != nil {
		return result, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"owner": c.owner, "repo": c.repo}).
		SetBody(dispatchBody{EventType: p.TriggerEventType, ClientPayload: payload(req)}).
		Post("/repos/{owner}/{repo}/dispatches")
	if err != nil {
		result.Diagnostic = err.Error()
		metrics.TriggersTotal.WithLabelValues(p.Name, "error").Inc()
		slog.Warn("dispatch not delivered", "provider", p.Name, "error", err)
		return result, nil
	}

	result.StatusCode = res.StatusCode()
	result.Success = res.StatusCode() == http.StatusNoContent
	if !result.Success {
		result.Diagnostic = string(res.Body())
		if result.Diagnostic == "" {
			result.Diagnostic = fmt.Sprintf("unexpected status %d", res.StatusCode())
		}
		metrics.TriggersTotal.WithLabelValues(p.Name, "error").Inc()
		slog.Warn("dispatch rejected",
			"provider", p.Name,
			"status", res.StatusCode(),
			"body", result.Diagnostic,
		)
		return result, nil
	}
	metrics.TriggersTotal.WithLabelValues(p.Name, "ok").Inc()
	slog.Info("dispatch accepted",
		"provider", p.Name,
		"event", p.TriggerEventType,
		"mmsi", req.MMSI,
		"imo", req.IMO,
		"comparison_id", req.ComparisonID,
	)
	return result, nil
}

// DispatchAll starts one job per known provider with the same identifiers.
// Providers that cannot address the vessel (MarineTraffic without an mmsi)
// are reported as unsuccessful without a request.
func (c *Client) DispatchAll(ctx context.Context, req Request) ([]models.TriggerResult, error) {
	if !c.ok {
		return nil, ErrDisabled
	}
	req.AllProviders = true
	all := provider.All()
	out := make([]models.TriggerResult, 0, len(all))
	for _, p := range all {
		req.Provider = p
		r, err := c.Dispatch(ctx, req)
		if err != nil {
			r.Diagnostic = err.Error()
		}
		out = append(out, r)
	}
	return out, nil
}

func payload(req Request) map[string]any {
	cp := map[string]any{
		"mmsi":            req.MMSI,
		"comparison_id":   req.ComparisonID,
		"headless":        req.Headless,
		"send_to_posthog": req.SendToPostHog,
	}
	switch req.Provider.Name {
	case provider.VesselFinder:
		cp["imo"] = req.IMO
	case provider.MarineTraffic:
		cp["fetch_datadocked"] = req.FetchDataDocked
		cp["fetch_datadocked_satellite"] = req.FetchDataDockedSatellite
	}
	if req.AllProviders {
		cp["trigger_all_providers"] = true
	}
	return cp
}
