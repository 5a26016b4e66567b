// Package metrics defines the Prometheus metrics of vesselscout. All metrics
// are registered with the default registry on import and served by the API
// at GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vesselscout"

// ── Scrape metrics ────────────────────────────────────────────────────────────

// ScrapesTotal counts finished scrape invocations.
// Labels:
//   - provider: "marinetraffic" or "vesselfinder"
//   - outcome: "success" (coordinates present), "partial" or "failed"
var ScrapesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrapes_total",
		Help:      "Total number of scrape invocations by outcome.",
	},
	[]string{"provider", "outcome"},
)

// ScrapeDuration measures one invocation end to end, sinks included.
var ScrapeDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Duration of scrape invocations.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
	},
	[]string{"provider"},
)

// ── Extractor metrics ─────────────────────────────────────────────────────────

// ExtractorFieldsTotal counts fields accepted into a record per source.
var ExtractorFieldsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractor_fields_total",
		Help:      "Total number of record fields populated, by evidence source.",
	},
	[]string{"source"},
)

// ExtractorErrorsTotal counts recovered extractor failures.
var ExtractorErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractor_errors_total",
		Help:      "Total number of extractor failures, by evidence source.",
	},
	[]string{"source"},
)

// ── Sink and trigger metrics ──────────────────────────────────────────────────

// SinkDeliveriesTotal counts sink deliveries.
// Labels:
//   - sink: sink name (e.g. "posthog", "store", "trigger")
//   - result: "ok" or "error"
var SinkDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_deliveries_total",
		Help:      "Total number of record deliveries to sinks, by result.",
	},
	[]string{"sink", "result"},
)

// TriggersTotal counts repository_dispatch calls.
var TriggersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "triggers_total",
		Help:      "Total number of remote job dispatches, by provider and result.",
	},
	[]string{"provider", "result"},
)

// TriggerDedupTotal counts de-duplication decisions.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new request)
var TriggerDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trigger_dedup_total",
		Help:      "Total number of trigger de-duplication checks, by result.",
	},
	[]string{"result"},
)

// ActiveSessions is the number of open browser sessions.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of open browser sessions.",
	},
)

// Result renders an error as a "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveScrape records one finished invocation.
func ObserveScrape(provider, outcome string, start time.Time) {
	ScrapesTotal.WithLabelValues(provider, outcome).Inc()
	ScrapeDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
