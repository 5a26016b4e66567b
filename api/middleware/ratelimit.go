package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/models"
)

const (
	limiterIdle  = time.Hour
	limiterSweep = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiters holds one token bucket per identity.
type limiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func (l *limiters) get(identity string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[identity]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[identity] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep evicts identities not seen since cutoff.
func (l *limiters) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, id)
		}
	}
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate. Rejected requests carry a
// Retry-After header.
//
// Identities unused for an hour are evicted every five minutes until ctx
// ends.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	l := &limiters{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}

	go func() {
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now.Add(-limiterIdle))
			}
		}
	}()

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.ClientIP()
		if key, ok := c.Get(identityKey); ok {
			identity = key.(string)
		}

		now := time.Now()
		res := l.get(identity, now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			if res.OK() {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			}
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited,
				"rate limit exceeded, please slow down")
			return
		}

		c.Next()
	}
}
