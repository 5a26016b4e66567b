// Command benchmark measures scrape latency and coordinate hit rate against a
// running vesselscout server.
//
//	go run ./scripts/benchmark -api http://localhost:8080 -runs 3
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/vesselscout/httpclient"
	"github.com/use-agent/vesselscout/models"
)

var (
	apiURL = flag.String("api", "http://localhost:8080", "vesselscout API base URL")
	apiKey = flag.String("key", "", "API key (optional)")
	runs   = flag.Int("runs", 3, "scrapes per target")
	output = flag.String("output", "benchmark_results.json", "JSON output file")
)

type target struct {
	Label    string
	Provider string
	MMSI     string
	IMO      string
}

var targets = []target{
	{Label: "container", Provider: "marinetraffic", MMSI: "477995900"},
	{Label: "tanker", Provider: "marinetraffic", MMSI: "538008163"},
	{Label: "container", Provider: "vesselfinder", IMO: "9811000"},
	{Label: "bulk", Provider: "vesselfinder", MMSI: "636019825", IMO: "9700122"},
}

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	LoadingMs    int64  `json:"loading_ms"`
	ExtractionMs int64  `json:"extraction_ms"`
	Fields       int    `json:"fields"`
	StatusCode   int    `json:"status_code"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type averages struct {
	TotalMs      float64 `json:"total_ms"`
	LoadingMs    float64 `json:"loading_ms"`
	ExtractionMs float64 `json:"extraction_ms"`
	Fields       float64 `json:"fields"`
}

type targetResult struct {
	Label    string      `json:"label"`
	Provider string      `json:"provider"`
	MMSI     string      `json:"mmsi,omitempty"`
	IMO      string      `json:"imo,omitempty"`
	Runs     []runResult `json:"runs"`
	HitRate  float64     `json:"hit_rate"`
	Averages *averages   `json:"averages,omitempty"`
}

type report struct {
	Timestamp     string         `json:"timestamp"`
	APIURL        string         `json:"api_url"`
	RunsPerTarget int            `json:"runs_per_target"`
	Results       []targetResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== vesselscout benchmark ===")
	fmt.Printf("API URL:     %s\n", *apiURL)
	fmt.Printf("Runs/target: %d\n", *runs)
	fmt.Printf("Output:      %s\n\n", *output)

	a := newAPI(*apiURL, *apiKey)
	ctx := context.Background()

	if err := a.health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintln(os.Stderr, "Start the server first: vesselscout serve")
		os.Exit(1)
	}

	rep := report{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIURL:        *apiURL,
		RunsPerTarget: *runs,
	}
	for _, t := range targets {
		fmt.Printf("Benchmarking [%s/%s] mmsi=%s imo=%s ...\n", t.Provider, t.Label, t.MMSI, t.IMO)
		tr := targetResult{Label: t.Label, Provider: t.Provider, MMSI: t.MMSI, IMO: t.IMO}
		for i := 1; i <= *runs; i++ {
			rr := a.run(ctx, t, i)
			if rr.Success {
				fmt.Printf("  run %d/%d OK  %dms  %d fields\n", i, *runs, rr.TotalMs, rr.Fields)
			} else {
				fmt.Printf("  run %d/%d FAILED: %s\n", i, *runs, rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}
		tr.HitRate, tr.Averages = summarize(tr.Runs)
		rep.Results = append(rep.Results, tr)
		fmt.Println()
	}

	printTable(rep.Results)

	if err := writeJSON(*output, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func (a api) run(ctx context.Context, t target, n int) runResult {
	rr := runResult{Run: n}
	status, resp, err := a.scrape(ctx, t)
	rr.StatusCode = status
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	rr.Success = resp.Success
	rr.TotalMs = resp.Timing.TotalMs
	rr.LoadingMs = resp.Timing.LoadingMs
	rr.ExtractionMs = resp.Timing.ExtractionMs
	rr.Fields = len(resp.Provenance)
	if resp.Error != nil {
		rr.Error = resp.Error.Code + ": " + resp.Error.Message
	}
	return rr
}

type api struct {
	http *resty.Client
}

func newAPI(base, key string) api {
	client := httpclient.New("vesselscout-api", 90*time.Second).
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json")
	if key != "" {
		client.SetAuthToken(key)
	}
	return api{http: client}
}

// scrape posts one scrape request. Non-2xx answers still carry the JSON
// envelope, so only transport and decode failures are errors.
func (a api) scrape(ctx context.Context, t target) (int, *models.ScrapeResponse, error) {
	headless := true
	var resp models.ScrapeResponse
	res, err := a.http.R().
		SetContext(ctx).
		SetBody(models.ScrapeRequest{
			Provider: t.Provider,
			MMSI:     t.MMSI,
			IMO:      t.IMO,
			Headless: &headless,
		}).
		Post("/api/v1/scrape")
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	if err := json.Unmarshal(res.Body(), &resp); err != nil {
		return res.StatusCode(), nil, fmt.Errorf("decode error: status %d: %w", res.StatusCode(), err)
	}
	return res.StatusCode(), &resp, nil
}

func (a api) health(ctx context.Context) error {
	res, err := a.http.R().SetContext(ctx).Get("/api/v1/health")
	if err != nil {
		return err
	}
	if res.StatusCode() != 200 {
		return fmt.Errorf("health: status %d", res.StatusCode())
	}
	return nil
}

// summarize returns the share of runs with coordinates and the averages over
// those runs. Averages are nil when no run succeeded.
func summarize(rs []runResult) (float64, *averages) {
	if len(rs) == 0 {
		return 0, nil
	}
	var ok int
	var avg averages
	for _, r := range rs {
		if !r.Success {
			continue
		}
		ok++
		avg.TotalMs += float64(r.TotalMs)
		avg.LoadingMs += float64(r.LoadingMs)
		avg.ExtractionMs += float64(r.ExtractionMs)
		avg.Fields += float64(r.Fields)
	}
	rate := float64(ok) / float64(len(rs)) * 100
	if ok == 0 {
		return rate, nil
	}
	n := float64(ok)
	avg.TotalMs /= n
	avg.LoadingMs /= n
	avg.ExtractionMs /= n
	avg.Fields /= n
	return rate, &avg
}

func printTable(results []targetResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Provider", "Target", "Hit Rate", "Avg Latency", "Avg Loading", "Fields", "Top Error"})
	for _, r := range results {
		id := r.MMSI
		if id == "" {
			id = "imo:" + r.IMO
		}
		if r.Averages == nil {
			t.AppendRow(table.Row{r.Provider, id, "0%", "-", "-", "-", topError(r.Runs)})
			continue
		}
		t.AppendRow(table.Row{
			r.Provider,
			id,
			fmt.Sprintf("%.0f%%", r.HitRate),
			fmt.Sprintf("%dms", int64(r.Averages.TotalMs)),
			fmt.Sprintf("%dms", int64(r.Averages.LoadingMs)),
			fmt.Sprintf("%.1f", r.Averages.Fields),
			topError(r.Runs),
		})
	}
	t.Render()
}

// topError returns the most frequent failure message, or "-".
func topError(rs []runResult) string {
	counts := map[string]int{}
	for _, r := range rs {
		if r.Error != "" {
			counts[r.Error]++
		}
	}
	if len(counts) == 0 {
		return "-"
	}
	msgs := make([]string, 0, len(counts))
	for m := range counts {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if counts[msgs[i]] != counts[msgs[j]] {
			return counts[msgs[i]] > counts[msgs[j]]
		}
		return msgs[i] < msgs[j]
	})
	m := msgs[0]
	if len(m) > 40 {
		m = m[:37] + "..."
	}
	return m
}

func writeJSON(path string, rep report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
