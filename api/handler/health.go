package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/vesselscout/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SessionStats reports browser session utilisation.
type SessionStats interface {
	Stats() (active, max int)
}

// Health returns a handler for GET /api/v1/health.
//
// Reports session utilisation and degrades status when every session slot
// is busy.
func Health(sessions SessionStats, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, limit := sessions.Stats()

		status := "healthy"
		if limit > 0 && active >= limit {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         status,
			Uptime:         time.Since(startTime).Round(time.Second).String(),
			ActiveSessions: active,
			MaxSessions:    limit,
			Version:        Version,
		})
	}
}
