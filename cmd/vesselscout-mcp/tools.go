package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/vesselscout/httpclient"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// api is a thin client for the vesselscout HTTP API.
type api struct {
	http *resty.Client
}

func newAPI(baseURL, key string, timeout time.Duration) *api {
	return &api{http: httpclient.New("vesselscout-api", timeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("X-API-Key", key)}
}

// call sends a request and decodes the JSON answer into out whatever the
// status, since error responses carry the same envelope.
func (a *api) call(ctx context.Context, method, path string, body, out any) error {
	req := a.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", res.StatusCode(), err)
	}
	return nil
}

func handleScrapeVessel(a *api) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.ScrapeRequest{
			Provider:        request.GetString("provider", ""),
			MMSI:            request.GetString("mmsi", ""),
			IMO:             request.GetString("imo", ""),
			ComparisonID:    request.GetString("comparison_id", ""),
			SendToPostHog:   request.GetBool("send_to_posthog", false),
			Store:           request.GetBool("store", false),
			FetchDataDocked: request.GetBool("fetch_datadocked", false),
		}
		if req.MMSI == "" && req.IMO == "" {
			return mcp.NewToolResultError("mmsi or imo is required"), nil
		}

		var resp models.ScrapeResponse
		if err := a.call(ctx, resty.MethodPost, "/api/v1/scrape", req, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Record == nil {
			return mcp.NewToolResultError(errorText(resp.Error, "scrape failed")), nil
		}

		var sb strings.Builder
		if !resp.Success {
			sb.WriteString("Partial result: " + errorText(resp.Error, "no coordinates found") + "\n\n")
		}
		writeRecord(&sb, resp.Record, resp.Provenance)
		for _, s := range resp.Sinks {
			if s.Success {
				fmt.Fprintf(&sb, "sink %s: ok\n", s.Sink)
			} else {
				fmt.Fprintf(&sb, "sink %s: failed: %s\n", s.Sink, s.Diagnostic)
			}
		}
		fmt.Fprintf(&sb, "\n---\nTook %d ms (loading %d ms, extraction %d ms)",
			resp.Timing.TotalMs, resp.Timing.LoadingMs, resp.Timing.ExtractionMs)

		if !resp.Success {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: mcp.ContentTypeText, Text: sb.String()}},
				IsError: true,
			}, nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleTriggerScrape(a *api) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.TriggerRequest{
			Provider:        request.GetString("provider", ""),
			MMSI:            request.GetString("mmsi", ""),
			IMO:             request.GetString("imo", ""),
			ComparisonID:    request.GetString("comparison_id", ""),
			SendToPostHog:   request.GetBool("send_to_posthog", true),
			FetchDataDocked: request.GetBool("fetch_datadocked", false),
		}
		if req.MMSI == "" && req.IMO == "" {
			return mcp.NewToolResultError("mmsi or imo is required"), nil
		}

		var resp models.TriggerResponse
		if err := a.call(ctx, resty.MethodPost, "/api/v1/trigger", req, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(resp.Results) == 0 {
			return mcp.NewToolResultError(errorText(resp.Error, "trigger failed")), nil
		}

		var sb strings.Builder
		for _, r := range resp.Results {
			if r.Success {
				fmt.Fprintf(&sb, "%s: dispatched %s\n", r.Provider, r.EventType)
			} else {
				fmt.Fprintf(&sb, "%s: rejected (status %d): %s\n", r.Provider, r.StatusCode, r.Diagnostic)
			}
		}
		if !resp.Success {
			return mcp.NewToolResultError(sb.String()), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetVessel(a *api) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mmsi, err := request.RequireString("mmsi")
		if err != nil {
			return mcp.NewToolResultError("mmsi is required"), nil
		}

		var resp models.VesselResponse
		if err := a.call(ctx, resty.MethodGet, "/api/v1/vessels/"+models.TrimIdentifier(mmsi), nil, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success || resp.Record == nil {
			return mcp.NewToolResultError(errorText(resp.Error, "vessel not found")), nil
		}

		var sb strings.Builder
		writeRecord(&sb, resp.Record, nil)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// writeRecord renders the populated fields of rec, one per line.
func writeRecord(sb *strings.Builder, rec *models.VesselRecord, provenance map[string]string) {
	fmt.Fprintf(sb, "Provider: %s\n", rec.Provider)
	props := rec.Flatten()
	for _, f := range record.Fields {
		v := props[string(f)]
		if v == nil {
			continue
		}
		fmt.Fprintf(sb, "%s: %v", f, v)
		if src := provenance[string(f)]; src != "" {
			fmt.Fprintf(sb, " (%s)", src)
		}
		sb.WriteString("\n")
	}
	if rec.ComparisonID != "" {
		fmt.Fprintf(sb, "comparison_id: %s\n", rec.ComparisonID)
	}
}

func errorText(e *models.ErrorDetail, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
