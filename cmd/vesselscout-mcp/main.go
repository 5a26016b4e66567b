// Command vesselscout-mcp exposes the vesselscout HTTP API as MCP tools
// over stdio.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeTimeout covers a full browser scrape on the server side.
const scrapeTimeout = 180 * time.Second

func main() {
	apiURL := os.Getenv("VESSELSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("VESSELSCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "VESSELSCOUT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"vesselscout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	registerTools(s, newAPI(apiURL, apiKey, scrapeTimeout))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func registerTools(s *server.MCPServer, a *api) {
	scrapeVesselTool := mcp.NewTool("scrape_vessel",
		mcp.WithDescription("Scrape a vessel's current position and details from MarineTraffic or VesselFinder with a headless browser. MarineTraffic needs an MMSI; VesselFinder accepts an MMSI or an IMO."),
		mcp.WithString("provider",
			mcp.Description("Tracking site: 'marinetraffic' (default) or 'vesselfinder'"),
			mcp.Enum("marinetraffic", "vesselfinder"),
		),
		mcp.WithString("mmsi",
			mcp.Description("9-digit Maritime Mobile Service Identity"),
		),
		mcp.WithString("imo",
			mcp.Description("7-digit IMO ship number"),
		),
		mcp.WithString("comparison_id",
			mcp.Description("Correlation token copied onto the record"),
		),
		mcp.WithBoolean("send_to_posthog",
			mcp.Description("Send the record to PostHog analytics"),
		),
		mcp.WithBoolean("store",
			mcp.Description("Save the record so get_vessel can return it later"),
		),
		mcp.WithBoolean("fetch_datadocked",
			mcp.Description("Also query the DataDocked API and fill gaps from it"),
		),
	)
	s.AddTool(scrapeVesselTool, handleScrapeVessel(a))

	triggerScrapeTool := mcp.NewTool("trigger_scrape",
		mcp.WithDescription("Start remote scrape jobs (GitHub repository_dispatch) for one provider or all of them. Returns immediately; results arrive through the job's own sinks."),
		mcp.WithString("provider",
			mcp.Description("'marinetraffic' (default), 'vesselfinder' or 'all'"),
			mcp.Enum("marinetraffic", "vesselfinder", "all"),
		),
		mcp.WithString("mmsi",
			mcp.Description("9-digit Maritime Mobile Service Identity"),
		),
		mcp.WithString("imo",
			mcp.Description("7-digit IMO ship number"),
		),
		mcp.WithString("comparison_id",
			mcp.Description("Correlation token forwarded to the jobs"),
		),
		mcp.WithBoolean("send_to_posthog",
			mcp.Description("Have the jobs send their records to PostHog (default true)"),
		),
		mcp.WithBoolean("fetch_datadocked",
			mcp.Description("MarineTraffic job also queries DataDocked"),
		),
	)
	s.AddTool(triggerScrapeTool, handleTriggerScrape(a))

	getVesselTool := mcp.NewTool("get_vessel",
		mcp.WithDescription("Return the last stored record of a vessel."),
		mcp.WithString("mmsi",
			mcp.Required(),
			mcp.Description("9-digit Maritime Mobile Service Identity"),
		),
	)
	s.AddTool(getVesselTool, handleGetVessel(a))
}
