package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/use-agent/vesselscout/api/handler"
	"github.com/use-agent/vesselscout/api/middleware"
	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/pipeline"
	"github.com/use-agent/vesselscout/store"
)

// Deps are the collaborators the handlers run against.
type Deps struct {
	Sessions handler.SessionStats
	Runner   handler.Runner
	Builder  *pipeline.Builder
	Trigger  handler.Dispatcher
	// Dedup is optional; nil disables trigger de-duplication.
	Dedup handler.Deduper
	Store store.Store
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds the rate limiter's background sweep.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	// Health, no auth.
	v1.GET("/health", handler.Health(deps.Sessions, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(deps.Runner, deps.Builder))

	// Remote jobs
	protected.POST("/trigger", handler.Trigger(deps.Trigger, deps.Dedup))

	// Stored records
	if deps.Store != nil {
		protected.GET("/vessels/:mmsi", handler.Vessel(deps.Store))
	}

	return r
}
