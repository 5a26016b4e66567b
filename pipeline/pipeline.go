// Package pipeline turns scrape requests into dispatcher jobs and
// dispatcher results into responses. The CLI and the HTTP API share it.
package pipeline

import (
	"github.com/use-agent/vesselscout/analytics"
	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
	"github.com/use-agent/vesselscout/store"
	"github.com/use-agent/vesselscout/trigger"
)

// Builder holds the clients sinks are built from. Nil members disable the
// matching request switch.
type Builder struct {
	Analytics *analytics.Client
	Trigger   *trigger.Client
	Secondary engine.SecondarySource
	Store     store.Store
}

// Job builds the dispatcher job for req. Call req.Defaults first.
func (b *Builder) Job(req models.ScrapeRequest) (engine.Job, error) {
	p, err := provider.Lookup(req.Provider)
	if err != nil {
		return engine.Job{}, err
	}
	job := engine.Job{
		Provider:     p,
		MMSI:         req.MMSI,
		IMO:          req.IMO,
		ComparisonID: req.ComparisonID,
	}

	if req.SendToPostHog {
		if b.Analytics == nil {
			return engine.Job{}, unavailable("analytics")
		}
		job.Sinks = append(job.Sinks, analytics.NewSink(b.Analytics, p))
	}
	if req.Store {
		if b.Store == nil {
			return engine.Job{}, unavailable("store")
		}
		job.Sinks = append(job.Sinks, store.NewSink(b.Store))
	}
	if req.ChainProvider != "" {
		if b.Trigger == nil {
			return engine.Job{}, unavailable("trigger")
		}
		next, err := provider.Lookup(req.ChainProvider)
		if err != nil {
			return engine.Job{}, err
		}
		headless := req.Headless == nil || *req.Headless
		job.Sinks = append(job.Sinks, trigger.NewSink(b.Trigger, next, headless, req.SendToPostHog))
	}
	if req.FetchDataDocked {
		if b.Secondary == nil {
			return engine.Job{}, unavailable("secondary data source")
		}
		job.Secondary = b.Secondary
		if req.SendToPostHog {
			job.SecondarySinks = append(job.SecondarySinks, analytics.NewSecondarySink(b.Analytics, provider.Secondary()))
		}
	}
	return job, nil
}

// Response renders a dispatcher outcome. res may be nil when err is set.
func Response(res *engine.Result, err error) models.ScrapeResponse {
	var out models.ScrapeResponse
	if res != nil {
		rec := res.Record
		out.Record = &rec
		out.Provenance = res.Provenance.Strings()
		out.States = res.StateNames()
		out.Sinks = res.Sinks
		out.Secondary = res.Secondary
		out.Timing = res.Timing
		out.Success = res.Success()
	}
	switch {
	case err != nil:
		out.Success = false
		out.Error = models.AsScrapeError(err).ToDetail()
	case !out.Success:
		out.Error = &models.ErrorDetail{
			Code:    models.ErrCodeNoCoordinates,
			Message: "no coordinates found",
		}
	}
	return out
}

func unavailable(what string) error {
	return models.NewScrapeError(models.ErrCodeInvalidInput, what+" is not configured", nil)
}
