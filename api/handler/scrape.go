package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/pipeline"
	"github.com/use-agent/vesselscout/store"
)

// Runner executes one dispatcher job.
type Runner interface {
	Run(ctx context.Context, job engine.Job) (*engine.Result, error)
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Build the job: provider, sinks, secondary source.
//  3. Run the dispatcher on the request context.
//  4. Respond 200 with the record, or the mapped error status.
//
// The browser is shared by the server, so the per-request headless switch
// is ignored here.
func Scrape(runner Runner, builder *pipeline.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			respondError(c, err)
			return
		}

		// ── 2. Build job ────────────────────────────────────────────
		job, err := builder.Job(req)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Run ──────────────────────────────────────────────────
		res, err := runner.Run(c.Request.Context(), job)

		// ── 4. Respond ──────────────────────────────────────────────
		resp := pipeline.Response(res, err)
		if err != nil {
			c.JSON(mapErrorToStatus(models.AsScrapeError(err)), resp)
			return
		}
		slog.Info("scrape finished",
			"provider", job.Provider.Name,
			"mmsi", req.MMSI,
			"imo", req.IMO,
			"success", resp.Success,
			"total_ms", resp.Timing.TotalMs,
		)
		c.JSON(http.StatusOK, resp)
	}
}

// Vessel returns a handler for GET /api/v1/vessels/:mmsi.
func Vessel(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.Get(c.Request.Context(), c.Param("mmsi"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = models.NewScrapeError(models.ErrCodeNotFound, "no record for mmsi "+c.Param("mmsi"), err)
			}
			se := models.AsScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.VesselResponse{Success: false, Error: se.ToDetail()})
			return
		}
		c.JSON(http.StatusOK, models.VesselResponse{Success: true, Record: rec})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	se := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.ScrapeResponse{
		Success: false,
		Error:   se.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeTriggerFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeSession:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput, models.ErrCodeMissingIdentifier:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeDuplicate:
		return http.StatusConflict // 409
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
