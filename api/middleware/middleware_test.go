package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/vesselscout/config"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", Auth([]string{"alpha", " beta "}), ok)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "alpha", http.StatusOK},
		{"bearer", "Authorization", "Bearer beta", http.StatusOK},
		{"wrong key", "X-API-Key", "gamma", http.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic alpha", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(r, tt.header, tt.value).Code)
		})
	}
}

func TestAuthWithoutKeysIsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/", Auth([]string{"", "  "}), ok)
	assert.Equal(t, http.StatusOK, serve(r, "", "").Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.GET("/", Auth([]string{"alpha", "beta"}), RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.1, Burst: 2}), ok)

	assert.Equal(t, http.StatusOK, serve(r, "X-API-Key", "alpha").Code)
	assert.Equal(t, http.StatusOK, serve(r, "X-API-Key", "alpha").Code)

	w := serve(r, "X-API-Key", "alpha")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Buckets are per key.
	assert.Equal(t, http.StatusOK, serve(r, "X-API-Key", "beta").Code)
}

func TestLimiterSweep(t *testing.T) {
	l := &limiters{entries: map[string]*limiterEntry{}, limit: 1, burst: 1}
	now := time.Now()
	l.get("old", now.Add(-2*time.Hour))
	l.get("new", now)

	l.sweep(now.Add(-limiterIdle))
	assert.NotContains(t, l.entries, "old")
	assert.Contains(t, l.entries, "new")
}
