package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/metrics"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
	"github.com/use-agent/vesselscout/record"
)

// State is a step of one scrape invocation.
type State string

const (
	StateInit        State = "INIT"
	StateLoading     State = "LOADING"
	StateExtracting  State = "EXTRACTING"
	StateReconciling State = "RECONCILING"
	StateDispatching State = "DISPATCHING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Job describes one scrape invocation.
type Job struct {
	Provider     provider.Provider
	MMSI         string
	IMO          string
	ComparisonID string

	// Sinks receive the finished record in order.
	Sinks []Sink

	// Secondary, when set, is queried after extraction. A valid answer
	// fills gaps of the scraped record and is delivered to SecondarySinks.
	Secondary      SecondarySource
	SecondarySinks []Sink
}

// Result is the outcome of a finished invocation.
type Result struct {
	Record     models.VesselRecord
	Provenance record.Provenance
	States     []State
	Sinks      []models.SinkOutcome
	Secondary  *models.VesselRecord
	Timing     models.TimingInfo
}

// State returns the terminal state.
func (r *Result) State() State {
	if len(r.States) == 0 {
		return StateInit
	}
	return r.States[len(r.States)-1]
}

// Success reports whether the invocation finished with coordinates.
func (r *Result) Success() bool {
	return r.State() == StateDone && r.Record.HasCoordinates()
}

// StateNames renders the visited states for JSON output.
func (r *Result) StateNames() []string {
	out := make([]string, len(r.States))
	for i, s := range r.States {
		out[i] = string(s)
	}
	return out
}

// ExtractorSet builds the extractor chain for a provider.
type ExtractorSet func(p provider.Provider) []extract.Extractor

// StandardExtractors is the default ExtractorSet.
func StandardExtractors(p provider.Provider) []extract.Extractor {
	return extract.Standard(extract.Options{
		Keywords:    p.NetworkKeywords,
		PositionAPI: p.PositionAPI,
	})
}

// Dispatcher sequences one scrape: session acquisition, page load,
// readiness, extraction in priority order, reconciliation, normalization,
// delivery to sinks and session release.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. INIT         – build the empty record, fail fast without an identifier
//  2. LOADING      – open a session, navigate, wait for readiness
//  3. EXTRACTING   – snapshot evidence, run every extractor in Priority order
//  4. RECONCILING  – secondary fill, normalization
//  5. DISPATCHING  – deliver to each sink, collecting per-sink outcomes
//  6. DONE / FAILED
type Dispatcher struct {
	cfg        *config.Config
	sessions   SessionFactory
	extractors ExtractorSet
}

// NewDispatcher creates a Dispatcher. cfg is read, never modified.
func NewDispatcher(cfg *config.Config, sessions SessionFactory) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		sessions:   sessions,
		extractors: StandardExtractors,
	}
}

// WithExtractors replaces the extractor chain.
func (d *Dispatcher) WithExtractors(set ExtractorSet) *Dispatcher {
	d.extractors = set
	return d
}

// Run executes job. A fatal fault returns the partial Result (ending in
// FAILED) together with a *models.ScrapeError; extractor and sink faults
// are recovered and never returned.
func (d *Dispatcher) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	p := job.Provider
	res := &Result{}
	enter := func(s State) {
		res.States = append(res.States, s)
		slog.Debug("dispatcher state", "provider", p.Name, "state", s)
	}
	fail := func(err error) (*Result, error) {
		enter(StateFailed)
		res.Timing.TotalMs = time.Since(start).Milliseconds()
		metrics.ObserveScrape(p.Name, "failed", start)
		d.reportFailure(ctx, job, res.Record, err)
		return res, err
	}

	// ── 1. INIT ──
	enter(StateInit)
	res.Record = models.NewVesselRecord(p.Name, job.MMSI, job.IMO, job.ComparisonID)
	mmsi, imo := callerIdentifiers(&res.Record)
	if !res.Record.HasIdentifier() {
		return fail(models.NewScrapeError(models.ErrCodeMissingIdentifier, "mmsi or imo is required", nil))
	}
	targetURL, err := p.TargetURL(mmsi, imo)
	if err != nil {
		return fail(err)
	}
	log := slog.With("provider", p.Name, "mmsi", mmsi, "imo", imo)

	scrapeCtx, cancel := context.WithTimeout(ctx, d.cfg.Scraper.Timeout)
	defer cancel()

	// ── 2. LOADING ──
	enter(StateLoading)
	loadStart := time.Now()
	sess, err := d.sessions.Open(scrapeCtx, p)
	if err != nil {
		log.Error("session setup failed", "error", err)
		return fail(asSessionError(err, "failed to open browser session"))
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("session close failed", "error", cerr)
		}
	}()
	if err := sess.Load(scrapeCtx, targetURL); err != nil {
		log.Error("page load failed", "url", targetURL, "error", err)
		return fail(asSessionError(err, "failed to load vessel page"))
	}
	if err := sess.Settle(scrapeCtx); err != nil {
		log.Error("page settle failed", "url", targetURL, "error", err)
		return fail(asSessionError(err, "page did not settle"))
	}
	res.Timing.LoadingMs = time.Since(loadStart).Milliseconds()

	// ── 3. EXTRACTING ──
	enter(StateExtracting)
	extractStart := time.Now()
	ev, err := sess.Evidence(scrapeCtx)
	if err != nil {
		log.Error("evidence snapshot failed", "error", err)
		return fail(asSessionError(err, "failed to read page"))
	}
	rec := record.NewReconciler(res.Record)
	for _, ex := range orderedExtractors(d.extractors(p)) {
		src := ex.Source()
		if p.SkipDOMWhenAuthoritative && src == record.SourceDOMText && rec.CoordinatesAuthoritative() {
			log.Debug("network coordinates are authoritative, skipping DOM text")
			continue
		}
		proposals, err := runExtractor(scrapeCtx, ex, rec.Record(), ev)
		if err != nil {
			metrics.ExtractorErrorsTotal.WithLabelValues(string(src)).Inc()
			log.Warn("extractor failed", "source", src, "error", err)
			continue
		}
		accepted := rec.Apply(src, proposals)
		metrics.ExtractorFieldsTotal.WithLabelValues(string(src)).Add(float64(len(accepted)))
		if len(accepted) > 0 {
			log.Debug("extractor populated fields", "source", src, "fields", accepted)
		}
	}

	// ── 4. RECONCILING ──
	enter(StateReconciling)
	final := rec.Record()
	prov := rec.Provenance()
	if job.Secondary != nil {
		final, res.Secondary = d.fillFromSecondary(scrapeCtx, job, final, prov)
	}
	res.Record = record.Finalize(final)
	res.Provenance = prov
	for f := range res.Provenance {
		if !record.IsSet(&res.Record, f) {
			delete(res.Provenance, f)
		}
	}
	res.Timing.ExtractionMs = time.Since(extractStart).Milliseconds()
	log.Info("vessel record extracted",
		"fields", len(res.Provenance),
		"hasCoordinates", res.Record.HasCoordinates(),
	)

	// ── 5. DISPATCHING ──
	// Sinks run on the caller's context; each client bounds its own request.
	enter(StateDispatching)
	res.Sinks = deliver(ctx, job.Sinks, res.Record)
	if res.Secondary != nil {
		res.Sinks = append(res.Sinks, deliver(ctx, job.SecondarySinks, *res.Secondary)...)
	}

	// ── 6. DONE ──
	enter(StateDone)
	res.Timing.TotalMs = time.Since(start).Milliseconds()
	outcome := "partial"
	if res.Record.HasCoordinates() {
		outcome = "success"
	}
	metrics.ObserveScrape(p.Name, outcome, start)
	return res, nil
}

// fillFromSecondary queries the secondary source and merges a valid answer
// into the gaps of rec.
func (d *Dispatcher) fillFromSecondary(ctx context.Context, job Job, rec models.VesselRecord, prov record.Provenance) (models.VesselRecord, *models.VesselRecord) {
	id := rec.Identifier()
	secondary, err := job.Secondary.Lookup(ctx, id)
	if err != nil {
		slog.Warn("secondary lookup failed", "identifier", id, "error", err)
		return rec, nil
	}
	if secondary == nil {
		slog.Info("secondary source has no valid data", "identifier", id)
		return rec, nil
	}
	secondary.ComparisonID = job.ComparisonID

	before := rec
	filled, err := record.Fill(rec, *secondary)
	if err != nil {
		slog.Warn("secondary fill failed", "error", err)
		return rec, secondary
	}
	for _, f := range record.Fields {
		if !record.IsSet(&before, f) && record.IsSet(&filled, f) {
			prov[f] = record.SourceSecondary
		}
	}
	return filled, secondary
}

// callerIdentifiers runs the caller's mmsi and imo through the Normalizer,
// dropping values it would reject ("0000000", "n/a"), and returns what is
// left.
func callerIdentifiers(rec *models.VesselRecord) (mmsi, imo string) {
	clean := func(f record.Field, v *string) *string {
		if v == nil {
			return nil
		}
		n, ok := record.Normalize(f, *v)
		if !ok {
			return nil
		}
		s, ok := n.(string)
		if !ok {
			return nil
		}
		return &s
	}
	rec.MMSI = clean(record.MMSI, rec.MMSI)
	rec.IMO = clean(record.IMO, rec.IMO)
	if rec.MMSI != nil {
		mmsi = *rec.MMSI
	}
	if rec.IMO != nil {
		imo = *rec.IMO
	}
	return mmsi, imo
}

// deliver sends rec to every sink and never fails.
func deliver(ctx context.Context, sinks []Sink, rec models.VesselRecord) []models.SinkOutcome {
	out := make([]models.SinkOutcome, 0, len(sinks))
	for _, s := range sinks {
		err := s.Send(ctx, rec)
		metrics.SinkDeliveriesTotal.WithLabelValues(s.Name(), metrics.Result(err)).Inc()
		o := models.SinkOutcome{Sink: s.Name(), Success: err == nil}
		if err != nil {
			o.Diagnostic = err.Error()
			slog.Warn("sink delivery failed", "sink", s.Name(), "error", err)
		}
		out = append(out, o)
	}
	return out
}

// reportFailure tells every interested sink that the invocation failed.
func (d *Dispatcher) reportFailure(ctx context.Context, job Job, rec models.VesselRecord, cause error) {
	for _, s := range job.Sinks {
		fr, ok := s.(FailureReporter)
		if !ok {
			continue
		}
		if err := fr.ReportFailure(ctx, rec, cause); err != nil {
			slog.Warn("failure report not delivered", "sink", s.Name(), "error", err)
		}
	}
}

// runExtractor isolates one extractor so a panic surfaces as an error.
func runExtractor(ctx context.Context, ex extract.Extractor, current models.VesselRecord, ev *extract.Evidence) (proposals []record.Proposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("extractor panic", "source", ex.Source(), "stack", string(debug.Stack()))
			proposals, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return ex.Extract(ctx, current, ev)
}

// orderedExtractors sorts extractors by the declared Priority ranking.
func orderedExtractors(in []extract.Extractor) []extract.Extractor {
	bySource := make(map[record.Source][]extract.Extractor, len(in))
	sources := make([]record.Source, 0, len(in))
	for _, ex := range in {
		s := ex.Source()
		if _, seen := bySource[s]; !seen {
			sources = append(sources, s)
		}
		bySource[s] = append(bySource[s], ex)
	}
	out := make([]extract.Extractor, 0, len(in))
	for _, s := range record.Ordered(sources) {
		out = append(out, bySource[s]...)
	}
	return out
}

// asSessionError keeps typed errors and wraps anything else as a session
// fault.
func asSessionError(err error, msg string) error {
	if se := models.AsScrapeError(err); se.Code != models.ErrCodeInternal {
		return se
	}
	return models.NewScrapeError(models.ErrCodeSession, msg, err)
}
