// Package provider describes the vessel-tracking sites the scraper knows:
// where a vessel page lives, which captured requests carry data, and how
// downstream sinks label the results.
package provider

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/use-agent/vesselscout/models"
)

// Provider names.
const (
	MarineTraffic = "marinetraffic"
	VesselFinder  = "vesselfinder"
	// DataDocked tags records from the secondary data-source API.
	DataDocked = "datadocked"
)

// Provider is the static description of one tracking site.
type Provider struct {
	Name string

	// NetworkKeywords select captured responses worth decoding.
	NetworkKeywords []string
	// PositionAPI is the direct position endpoint with an "{id}"
	// placeholder. Empty when the site has none.
	PositionAPI string

	// ReadySelector is present once the vessel page has rendered.
	ReadySelector string
	// LoginURL is the sign-in page, used only when credentials are set.
	LoginURL string

	// RequiresMMSI is true when the page can only be addressed by mmsi.
	RequiresMMSI bool
	// SkipDOMWhenAuthoritative stops DOM extraction once both coordinates
	// came from captured network traffic.
	SkipDOMWhenAuthoritative bool

	// Analytics labelling.
	Label               string
	AnalyticsDataSource string
	DistinctID          string
	EventName           string
	FailureEvent        string

	// TriggerEventType is the repository_dispatch event for this site.
	TriggerEventType string

	targetURL func(mmsi, imo string) string
}

// TargetURL returns the vessel page for the given identifiers.
func (p Provider) TargetURL(mmsi, imo string) (string, error) {
	mmsi = models.TrimIdentifier(mmsi)
	imo = models.TrimIdentifier(imo)
	if mmsi == "" && imo == "" {
		return "", models.NewScrapeError(models.ErrCodeMissingIdentifier, "mmsi or imo is required", nil)
	}
	if p.RequiresMMSI && mmsi == "" {
		return "", models.NewScrapeError(models.ErrCodeMissingIdentifier,
			fmt.Sprintf("%s requires an mmsi", p.Name), nil)
	}
	return p.targetURL(mmsi, imo), nil
}

var catalogue = map[string]Provider{
	MarineTraffic: {
		Name:                     MarineTraffic,
		NetworkKeywords:          []string{"position", "vessel", "ship", "coordinates", "ais"},
		PositionAPI:              "https://www.marinetraffic.com/en/vessels/{id}/position",
		ReadySelector:            "h1",
		RequiresMMSI:             true,
		SkipDOMWhenAuthoritative: true,
		Label:                    "MarineTraffic",
		AnalyticsDataSource:      "selenium_scraper",
		DistinctID:               "selenium_scraper",
		EventName:                "marine_traffic_scrape",
		FailureEvent:             "vessel_data_scrape_failed",
		TriggerEventType:         "scrape-marine-traffic",
		targetURL: func(mmsi, _ string) string {
			return "https://www.marinetraffic.com/en/ais/details/ships/mmsi:" + url.PathEscape(mmsi)
		},
	},
	VesselFinder: {
		Name:                 VesselFinder,
		NetworkKeywords:      []string{"vessel", "ship", "ais", "position", "track"},
		ReadySelector:        "body",
		LoginURL:             "https://www.vesselfinder.com/login",
		Label:                "VesselFinder",
		AnalyticsDataSource:  "VesselFinder",
		DistinctID:           "vesselfinder_scraper",
		EventName:            "local_comparison",
		FailureEvent:         "vessel_data_scrape_failed",
		TriggerEventType:     "scrape-vesselfinder",
		targetURL: func(mmsi, imo string) string {
			if mmsi == "" {
				mmsi = "0"
			}
			if imo == "" {
				imo = "0"
			}
			return fmt.Sprintf("https://www.vesselfinder.com/pro/map#vessel-details?imo=%s&mmsi=%s",
				url.QueryEscape(imo), url.QueryEscape(mmsi))
		},
	},
}

// Secondary describes the secondary data-source API for analytics
// labelling. It has no vessel page and is not part of the catalogue.
func Secondary() Provider {
	return Provider{
		Name:                DataDocked,
		Label:               "DataDocked",
		AnalyticsDataSource: "datadocked_api",
		DistinctID:          "datadocked_api",
		EventName:           "datadocked_vessel_data",
		FailureEvent:        "vessel_data_scrape_failed",
	}
}

// Lookup returns the provider registered under name (case-insensitive).
func Lookup(name string) (Provider, error) {
	p, ok := catalogue[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown provider %q", name), nil)
	}
	return p, nil
}

// All returns every provider sorted by name.
func All() []Provider {
	out := make([]Provider, 0, len(catalogue))
	for _, p := range catalogue {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered provider names sorted.
func Names() []string {
	all := All()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.Name
	}
	return out
}
