package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
	"github.com/use-agent/vesselscout/trigger"
)

var triggerReq models.TriggerRequest

func init() {
	f := triggerCmd.Flags()
	f.StringVar(&triggerReq.Provider, "provider", "marinetraffic", "marinetraffic, vesselfinder or all.")
	f.StringVar(&triggerReq.MMSI, "mmsi", "", "Vessel MMSI.")
	f.StringVar(&triggerReq.IMO, "imo", "", "Vessel IMO.")
	f.StringVar(&triggerReq.ComparisonID, "comparison-id", "", "Correlation token forwarded to the job.")
	f.Bool("headless", true, "Run the remote browser without a window.")
	f.BoolVar(&triggerReq.SendToPostHog, "send-to-posthog", true, "Have the job send its record to PostHog.")
	f.BoolVar(&triggerReq.FetchDataDocked, "fetch-datadocked", false, "MarineTraffic job also queries DataDocked.")
	f.BoolVar(&triggerReq.FetchDataDockedSatellite, "fetch-datadocked-satellite", false, "MarineTraffic job also queries DataDocked satellite data.")
	rootCmd.AddCommand(triggerCmd)
}

var triggerCmd = &cobra.Command{
	Use:   "trigger --mmsi <mmsi> [--provider all]",
	Short: "Starts remote scrape jobs through repository_dispatch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := triggerReq
		headless, _ := cmd.Flags().GetBool("headless")
		req.Headless = &headless
		req.Defaults()
		if err := req.Validate(); err != nil {
			return err
		}

		tr := trigger.Request{
			MMSI:                     req.MMSI,
			IMO:                      req.IMO,
			ComparisonID:             req.ComparisonID,
			Headless:                 headless,
			SendToPostHog:            req.SendToPostHog,
			FetchDataDocked:          req.FetchDataDocked,
			FetchDataDockedSatellite: req.FetchDataDockedSatellite,
		}
		client := trigger.NewClient(cfg.Trigger)

		var results []models.TriggerResult
		if req.Provider == "all" {
			rs, err := client.DispatchAll(cmd.Context(), tr)
			if err != nil {
				return err
			}
			results = rs
		} else {
			p, err := provider.Lookup(req.Provider)
			if err != nil {
				return err
			}
			tr.Provider = p
			r, err := client.Dispatch(cmd.Context(), tr)
			if err != nil {
				return err
			}
			results = []models.TriggerResult{r}
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Provider", "Event", "Status", "Result"})
		failed := 0
		for _, r := range results {
			outcome := "accepted"
			if !r.Success {
				failed++
				outcome = "rejected: " + r.Diagnostic
			}
			t.AppendRow(table.Row{r.Provider, r.EventType, r.StatusCode, outcome})
		}
		t.Render()

		if failed > 0 {
			return fmt.Errorf("%d of %d dispatches failed", failed, len(results))
		}
		return nil
	},
}
