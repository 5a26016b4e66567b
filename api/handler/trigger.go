package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/vesselscout/metrics"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
	"github.com/use-agent/vesselscout/trigger"
)

// Dispatcher starts remote jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req trigger.Request) (models.TriggerResult, error)
	DispatchAll(ctx context.Context, req trigger.Request) ([]models.TriggerResult, error)
}

// Deduper claims trigger requests. Claim reports false for a request
// already claimed within its window.
type Deduper interface {
	Claim(ctx context.Context, provider, identifier, comparisonID string) (bool, error)
	Release(ctx context.Context, provider, identifier, comparisonID string) error
}

// Trigger returns a handler for POST /api/v1/trigger. dedup may be nil.
//
//  1. Parse & validate request, apply defaults.
//  2. Claim the request; an identical claim inside the window is a 409.
//  3. Dispatch to one provider or to all of them.
//  4. Release the claim if any dispatch failed, so a retry is possible.
func Trigger(d Dispatcher, dedup Deduper) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.TriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondTriggerError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			respondTriggerError(c, err)
			return
		}
		tr := trigger.Request{
			MMSI:                     req.MMSI,
			IMO:                      req.IMO,
			ComparisonID:             req.ComparisonID,
			Headless:                 *req.Headless,
			SendToPostHog:            req.SendToPostHog,
			FetchDataDocked:          req.FetchDataDocked,
			FetchDataDockedSatellite: req.FetchDataDockedSatellite,
		}
		if req.Provider != "all" {
			p, err := provider.Lookup(req.Provider)
			if err != nil {
				respondTriggerError(c, err)
				return
			}
			tr.Provider = p
		}

		// ── 2. De-duplicate ─────────────────────────────────────────
		id := req.MMSI
		if id == "" {
			id = req.IMO
		}
		if dedup != nil {
			fresh, err := dedup.Claim(ctx, req.Provider, id, req.ComparisonID)
			switch {
			case err != nil:
				// Redis trouble must not block dispatching.
				slog.Warn("trigger dedup unavailable", "error", err)
			case !fresh:
				metrics.TriggerDedupTotal.WithLabelValues("hit").Inc()
				respondTriggerError(c, models.NewScrapeError(models.ErrCodeDuplicate,
					"an identical trigger request is already in flight", nil))
				return
			default:
				metrics.TriggerDedupTotal.WithLabelValues("miss").Inc()
			}
		}

		// ── 3. Dispatch ─────────────────────────────────────────────
		var (
			results []models.TriggerResult
			err     error
		)
		if req.Provider == "all" {
			results, err = d.DispatchAll(ctx, tr)
		} else {
			var r models.TriggerResult
			r, err = d.Dispatch(ctx, tr)
			results = []models.TriggerResult{r}
		}

		ok := err == nil
		for _, r := range results {
			ok = ok && r.Success
		}

		// ── 4. Release on failure ───────────────────────────────────
		if !ok && dedup != nil {
			if rerr := dedup.Release(ctx, req.Provider, id, req.ComparisonID); rerr != nil {
				slog.Warn("trigger dedup release failed", "error", rerr)
			}
		}

		if err != nil {
			if errors.Is(err, trigger.ErrDisabled) {
				err = models.NewScrapeError(models.ErrCodeTriggerFailed, err.Error(), err)
			}
			respondTriggerError(c, err)
			return
		}
		resp := models.TriggerResponse{Success: ok, Results: results}
		if !ok {
			resp.Error = &models.ErrorDetail{
				Code:    models.ErrCodeTriggerFailed,
				Message: "one or more dispatches were rejected",
			}
			c.JSON(http.StatusBadGateway, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func respondTriggerError(c *gin.Context, err error) {
	se := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.TriggerResponse{Success: false, Error: se.ToDetail()})
}
