package models

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// ScrapeRequest is the payload for POST /api/v1/scrape and the flag set of
// `vesselscout scrape`.
type ScrapeRequest struct {
	// Provider names the tracking site. Default: "marinetraffic".
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=marinetraffic vesselfinder"`

	// MMSI and IMO identify the vessel. At least one is required; the
	// dispatcher enforces that before any page load.
	MMSI string `json:"mmsi,omitempty" validate:"omitempty,numeric,max=9"`
	IMO  string `json:"imo,omitempty" validate:"omitempty,numeric,max=7"`

	// ComparisonID is an opaque correlation token copied onto the record.
	ComparisonID string `json:"comparison_id,omitempty" validate:"max=128"`

	// Headless runs the browser without a visible window. Default: true.
	Headless *bool `json:"headless,omitempty"`

	// SendToPostHog forwards the record to the analytics sink.
	SendToPostHog bool `json:"send_to_posthog,omitempty"`

	// Store upserts the record into the persistence store.
	Store bool `json:"store,omitempty"`

	// FetchDataDocked also queries the secondary data-source API.
	FetchDataDocked bool `json:"fetch_datadocked,omitempty"`

	// ChainProvider, if set, triggers a remote job for that provider with
	// the same identifiers and comparison id once the scrape is done.
	ChainProvider string `json:"chain_provider,omitempty" validate:"omitempty,oneof=marinetraffic vesselfinder"`
}

// Defaults applies default values to unset fields and cleans identifiers.
func (r *ScrapeRequest) Defaults() {
	if r.Provider == "" {
		r.Provider = "marinetraffic"
	}
	if r.Headless == nil {
		t := true
		r.Headless = &t
	}
	r.MMSI = TrimIdentifier(r.MMSI)
	r.IMO = TrimIdentifier(r.IMO)
}

// Validate checks field formats. Call Defaults first.
func (r *ScrapeRequest) Validate() error {
	return validateStruct(r)
}

// TriggerRequest is the payload for POST /api/v1/trigger and the flag set of
// `vesselscout trigger`.
type TriggerRequest struct {
	// Provider is "marinetraffic", "vesselfinder" or "all". Default: "marinetraffic".
	Provider string `json:"provider,omitempty" validate:"omitempty,oneof=marinetraffic vesselfinder all"`

	MMSI         string `json:"mmsi,omitempty" validate:"omitempty,numeric,max=9"`
	IMO          string `json:"imo,omitempty" validate:"omitempty,numeric,max=7"`
	ComparisonID string `json:"comparison_id,omitempty" validate:"max=128"`

	Headless      *bool `json:"headless,omitempty"`
	SendToPostHog bool  `json:"send_to_posthog,omitempty"`

	// MarineTraffic-only switches forwarded to the remote job.
	FetchDataDocked          bool `json:"fetch_datadocked,omitempty"`
	FetchDataDockedSatellite bool `json:"fetch_datadocked_satellite,omitempty"`
}

// Defaults applies default values to unset fields and cleans identifiers.
func (r *TriggerRequest) Defaults() {
	if r.Provider == "" {
		r.Provider = "marinetraffic"
	}
	if r.Headless == nil {
		t := true
		r.Headless = &t
	}
	r.MMSI = TrimIdentifier(r.MMSI)
	r.IMO = TrimIdentifier(r.IMO)
}

// Validate checks field formats and that at least one identifier is given.
func (r *TriggerRequest) Validate() error {
	if r.MMSI == "" && r.IMO == "" {
		return NewScrapeError(ErrCodeMissingIdentifier, "mmsi or imo is required", nil)
	}
	return validateStruct(r)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validateStruct(v any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(v); err != nil {
		return NewScrapeError(ErrCodeInvalidInput, err.Error(), err)
	}
	return nil
}
