package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success is true when the scrape finished with coordinates present.
	Success bool `json:"success"`

	// Record is the reconciled, normalized vessel record.
	Record *VesselRecord `json:"record,omitempty"`

	// Provenance maps each populated field to the extractor that set it.
	Provenance map[string]string `json:"provenance,omitempty"`

	// States lists the dispatcher states the invocation passed through.
	States []string `json:"states,omitempty"`

	// Sinks reports one outcome per configured sink.
	Sinks []SinkOutcome `json:"sinks,omitempty"`

	// Secondary is the validated secondary data-source record, if requested.
	Secondary *VesselRecord `json:"secondary,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// SinkOutcome is the per-sink delivery result. A failed sink never fails
// the extraction itself.
type SinkOutcome struct {
	Sink       string `json:"sink"`
	Success    bool   `json:"success"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// TriggerResult is the outcome of one remote job dispatch.
type TriggerResult struct {
	Provider   string `json:"provider"`
	EventType  string `json:"event_type"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// TriggerResponse is the response for POST /api/v1/trigger.
type TriggerResponse struct {
	Success bool            `json:"success"`
	Results []TriggerResult `json:"results,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// VesselResponse is the response for GET /api/v1/vessels/:mmsi.
type VesselResponse struct {
	Success bool          `json:"success"`
	Record  *VesselRecord `json:"record,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// LoadingMs covers session acquisition, navigation and the readiness wait.
	LoadingMs int64 `json:"loading_ms"`

	// ExtractionMs covers the extractors, reconciliation and normalization.
	ExtractionMs int64 `json:"extraction_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "degraded"
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
	MaxSessions    int    `json:"max_sessions"`
	Version        string `json:"version"`
}

// ErrorResponse is written by middleware that rejects a request before any
// handler runs.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
