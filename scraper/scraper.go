package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/metrics"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// Scraper owns the browser process and hands out one incognito session per
// scrape. It is safe for concurrent use.
type Scraper struct {
	browser        *rod.Browser
	cfg            *config.Config
	slots          chan struct{}
	fallback       *httpFetcher
	activeSessions atomic.Int32
	startTime      time.Time
}

// New launches a browser and prepares the session slots.
func New(cfg *config.Config) (*Scraper, error) {
	browserCfg := cfg.Browser
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), "1920,1080")
	l.Set(flags.Flag("user-agent"), chromeUA)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSession,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", browserCfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSession,
			"failed to connect to browser",
			err,
		)
	}

	return &Scraper{
		browser:   browser,
		cfg:       cfg,
		slots:     make(chan struct{}, browserCfg.MaxSessions),
		fallback:  newHTTPFetcher(browserCfg.DefaultProxy),
		startTime: time.Now(),
	}, nil
}

// Open waits for a free slot and starts an isolated incognito session for
// one vessel page. The caller must Close it.
func (s *Scraper) Open(ctx context.Context, p provider.Provider) (engine.Session, error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, categorizeError(ctx.Err(), "waiting for a browser session")
	}
	release := func() { <-s.slots }

	incognito, err := s.browser.Incognito()
	if err != nil {
		release()
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to open incognito context", err)
	}
	sess, err := newSession(s, incognito, p)
	if err != nil {
		_ = incognito.Close()
		release()
		return nil, err
	}
	s.activeSessions.Add(1)
	metrics.ActiveSessions.Inc()
	sess.release = func() {
		s.activeSessions.Add(-1)
		metrics.ActiveSessions.Dec()
		release()
	}
	return sess, nil
}

// Stats reports the current session usage.
func (s *Scraper) Stats() (active, max int) {
	return int(s.activeSessions.Load()), cap(s.slots)
}

// Uptime is the time since the browser was launched.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close kills the browser process. Call this on shutdown to prevent zombie
// Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
