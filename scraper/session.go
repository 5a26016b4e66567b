package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/provider"
)

// fetchJS requests a JSON endpoint with the page's own cookies.
const fetchJS = `(u) => fetch(u, {credentials: 'include', headers: {'Accept': 'application/json'}})
	.then(r => r.ok ? r.text() : Promise.reject(new Error('HTTP ' + r.status)))`

// Session is one incognito browser context bound to a single vessel page.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. newSession   – page, stealth and the hijack capture, all before navigation
//  2. Load         – optional login, then navigation
//  3. Settle       – readiness wait, content expansion
//  4. Evidence     – HTML, visible text and the captured responses
//  5. Close        – stop the router, dispose the context, free the slot
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	capture  *capture
	fallback *httpFetcher
	prov     provider.Provider
	cfg      config.ScraperConfig
	creds    config.VesselFinderConfig
	pageURL  string
	release  func()
}

func newSession(s *Scraper, incognito *rod.Browser, p provider.Provider) (*Session, error) {
	// ── 1a. Page ──
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to create page", err)
	}

	// ── 1b. Stealth injection (before navigation!) ──
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	// ── 1c. Capture router (before navigation!) ──
	cfg := s.cfg.Scraper
	c := newCapture(
		newCaptureClient(s.cfg.Browser.DefaultProxy, cfg.NavigationTimeout),
		extract.NewNetwork(p.NetworkKeywords),
		cfg.BlockedResourceTypes,
		cfg.BlockTrackers,
		cfg.MaxCaptureBytes,
	)
	c.cookies = func(u string) string { return cookieHeader(page, u) }
	router, err := c.install(page)
	if err != nil {
		_ = page.Close()
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to install request capture", err)
	}

	return &Session{
		browser:  incognito,
		page:     page,
		router:   router,
		capture:  c,
		fallback: s.fallback,
		prov:     p,
		cfg:      cfg,
		creds:    s.cfg.VesselFinder,
	}, nil
}

// Load signs in when the provider has a login page and credentials are
// configured, then navigates to targetURL.
func (s *Session) Load(ctx context.Context, targetURL string) error {
	// ── 2a. Login ──
	if s.prov.LoginURL != "" && s.creds.HasCredentials() {
		if err := login(ctx, s.page, s.prov.LoginURL, s.creds, func() { s.quiet(ctx, actionTimeout) }); err != nil {
			return err
		}
	}

	// ── 2b. Navigate ──
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()
	if err := s.page.Context(navCtx).Navigate(targetURL); err != nil {
		return categorizeError(err, "navigation to vessel page failed")
	}
	s.pageURL = targetURL
	slog.Debug("page navigated", "provider", s.prov.Name, "url", targetURL)
	return nil
}

// Settle waits for the page to become ready and expands lazily rendered
// content. A page that never becomes ready is still extracted.
func (s *Session) Settle(ctx context.Context) error {
	// ── 3a. Readiness ──
	ready := Readiness{
		Selector:    s.prov.ReadySelector,
		NetworkIdle: s.cfg.NetworkIdle,
		MaxWait:     s.cfg.SettleMax,
	}
	if !ready.Wait(ctx, s.page, s.capture.LastActivity) {
		slog.Info("page not quiet before settle bound, extracting anyway",
			"provider", s.prov.Name, "maxWait", s.cfg.SettleMax)
	}
	if err := ctx.Err(); err != nil {
		return categorizeError(err, "waiting for page readiness")
	}

	// ── 3b. Content expansion ──
	if s.cfg.ExpandContent {
		expandContent(ctx, s.page, func() { s.quiet(ctx, s.cfg.SettleMax/2) })
	}
	return nil
}

// quiet waits for the network to go idle for at most maxWait.
func (s *Session) quiet(ctx context.Context, maxWait time.Duration) {
	waitQuiet(ctx, time.Now, sleepCtx, s.capture.LastActivity, s.cfg.NetworkIdle, maxWait, pollInterval)
}

// Evidence snapshots the page for the extractors.
func (s *Session) Evidence(ctx context.Context) (*extract.Evidence, error) {
	p := s.page.Context(ctx)

	// ── 4a. Rendered HTML ──
	html, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	// ── 4b. Visible text and final URL (best-effort) ──
	text := evalStringOrEmpty(p, `() => document.body ? document.body.innerText : ''`)
	pageURL := evalStringOrEmpty(p, `() => window.location.href`)
	if pageURL == "" {
		pageURL = s.pageURL
	}

	return &extract.Evidence{
		PageURL: pageURL,
		HTML:    html,
		Text:    text,
		Network: s.capture.Responses(),
		Script:  s,
		Fetch:   s,
	}, nil
}

// Eval runs js in the page and returns its value.
func (s *Session) Eval(ctx context.Context, js string) (gson.JSON, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

// FetchJSON requests u from inside the page so the site's cookies and
// origin apply. When that fails the utls fetcher retries with the page's
// cookie header.
func (s *Session) FetchJSON(ctx context.Context, u string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	res, err := s.page.Context(fetchCtx).Eval(fetchJS, u)
	if err == nil {
		return []byte(res.Value.Str()), nil
	}
	slog.Debug("in-page fetch failed, retrying over utls", "url", u, "error", err)

	body, ferr := s.fallback.fetchJSON(fetchCtx, u, cookieHeader(s.page, u), s.pageURL)
	if ferr != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, errors.Join(err, ferr))
	}
	return body, nil
}

// Close releases the page, its incognito context and the session slot.
func (s *Session) Close() error {
	// ── 5. Cleanup ──
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return errors.Join(errs...)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
