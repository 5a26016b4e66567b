package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/pipeline"
	"github.com/use-agent/vesselscout/scraper"
	"github.com/use-agent/vesselscout/store"
)

var scrapeReq models.ScrapeRequest

func init() {
	f := scrapeCmd.Flags()
	f.StringVar(&scrapeReq.Provider, "provider", "marinetraffic", "Tracking site: marinetraffic or vesselfinder.")
	f.StringVar(&scrapeReq.MMSI, "mmsi", "", "Vessel MMSI.")
	f.StringVar(&scrapeReq.IMO, "imo", "", "Vessel IMO.")
	f.StringVar(&scrapeReq.ComparisonID, "comparison-id", "", "Correlation token copied onto the record.")
	f.Bool("headless", true, "Run the browser without a window.")
	f.BoolVar(&scrapeReq.SendToPostHog, "send-to-posthog", false, "Send the record to PostHog.")
	f.BoolVar(&scrapeReq.Store, "store", false, "Upsert the record into the store.")
	f.BoolVar(&scrapeReq.FetchDataDocked, "fetch-datadocked", false, "Also query the DataDocked API.")
	f.StringVar(&scrapeReq.ChainProvider, "chain-provider", "", "Trigger a remote job for this provider afterwards.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape --mmsi <mmsi> [--provider vesselfinder --imo <imo>]",
	Short: "Scrapes one vessel and exits 0 only when its coordinates were found.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		req := scrapeReq
		headless, _ := cmd.Flags().GetBool("headless")
		req.Headless = &headless
		req.Defaults()
		if err := req.Validate(); err != nil {
			return err
		}

		// ── 1. Sinks ────────────────────────────────────────────────
		var s store.Store
		if req.Store {
			var err error
			if s, err = openStore(ctx, cfg); err != nil {
				return err
			}
			defer s.Close(ctx)
		}
		job, err := newBuilder(cfg, s).Job(req)
		if err != nil {
			return err
		}

		// ── 2. Browser ──────────────────────────────────────────────
		runCfg := *cfg
		runCfg.Browser.Headless = headless
		runCfg.Browser.MaxSessions = 1
		sc, err := scraper.New(&runCfg)
		if err != nil {
			return err
		}
		defer sc.Close()

		// ── 3. Run ──────────────────────────────────────────────────
		slog.Info("scraping vessel",
			"provider", req.Provider,
			"mmsi", req.MMSI,
			"imo", req.IMO,
			"comparison_id", req.ComparisonID,
		)
		res, runErr := engine.NewDispatcher(&runCfg, sc).Run(ctx, job)
		resp := pipeline.Response(res, runErr)

		// ── 4. Report ───────────────────────────────────────────────
		return report(cmd.OutOrStdout(), identifierLabel(req.MMSI, req.IMO), resp, os.Getenv("GITHUB_OUTPUT"))
	},
}

// report prints the CI status line, step outputs and summary table. It
// returns errSilent unless resp carries coordinates.
func report(w io.Writer, identifier string, resp models.ScrapeResponse, outputPath string) error {
	ciStatus(w, identifier, resp)
	if resp.Success {
		if err := writeOutputs(outputPath, resp.Record); err != nil {
			slog.Warn("step outputs not written", "error", err)
		}
	}
	renderSummary(w, resp)
	if !resp.Success {
		return errSilent
	}
	return nil
}

func identifierLabel(mmsi, imo string) string {
	if mmsi != "" {
		return fmt.Sprintf("MMSI %s", mmsi)
	}
	return fmt.Sprintf("IMO %s", imo)
}
