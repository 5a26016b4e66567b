package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Scraper.SettleMax)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraper.NetworkIdle)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, "https://app.posthog.com", cfg.Analytics.Host)
	assert.Equal(t, 30*time.Second, cfg.Trigger.Timeout)
	assert.False(t, cfg.Analytics.Enabled())
	assert.False(t, cfg.Trigger.Enabled())
	assert.False(t, cfg.VesselFinder.HasCredentials())
}

func TestLoadLegacyNames(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"POSTHOG_API_KEY":       "phc_test",
		"GITHUB_TOKEN":          "ghp_test",
		"GITHUB_REPO_OWNER":     "fleet-ops",
		"VESSELFINDER_EMAIL":    "ops@example.com",
		"VESSELFINDER_PASSWORD": "secret",
		"VESSELSCOUT_API_KEYS":  "k1, k2",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Analytics.Enabled())
	assert.True(t, cfg.Trigger.Enabled())
	assert.Equal(t, "marine-traffic-scrapping", cfg.Trigger.Repo)
	assert.True(t, cfg.VesselFinder.HasCredentials())
	assert.Len(t, cfg.Auth.APIKeys, 2)
}

func TestLoadRejectsShortTimeout(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"VESSELSCOUT_TIMEOUT": "5s",
	}))
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"VESSELSCOUT_SETTLE_MAX": "soon",
	}))
	assert.Error(t, err)
}
