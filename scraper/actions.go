package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/vesselscout/config"
	"github.com/use-agent/vesselscout/models"
)

// actionTimeout is the per-action deadline.
const actionTimeout = 10 * time.Second

// expandJS clicks "show more" style buttons, expand toggles and the first
// vessel-related tab, then reports how many elements it clicked.
const expandJS = `() => {
	const visible = el => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	let clicked = 0;
	const texts = ['show more', 'show all', 'expand', 'more details', 'view more', 'see more', 'full details'];
	for (const b of document.querySelectorAll('button')) {
		const t = (b.innerText || '').toLowerCase();
		if (visible(b) && texts.some(x => t.includes(x))) { try { b.click(); clicked++; } catch (e) {} }
	}
	for (const el of document.querySelectorAll('.expand, .show-more, .toggle, .accordion-toggle')) {
		if (visible(el)) { try { el.click(); clicked++; } catch (e) {} }
	}
	const words = ['general', 'details', 'info', 'vessel', 'ship', 'position', 'voyage'];
	const tabs = document.querySelectorAll('a[href*="tab"], .tab, .nav-tab, .tab-link, button[role="tab"], [data-tab]');
	for (const tab of tabs) {
		const t = (tab.innerText || '').toLowerCase();
		if (visible(tab) && !tab.disabled && words.some(w => t.includes(w))) {
			try { tab.click(); clicked++; } catch (e) {}
			break;
		}
	}
	return clicked;
}`

// scrollSteps are the scroll positions visited to trigger lazy content,
// as fractions of the document height.
var scrollSteps = []float64{0.5, 1, 0}

// expandContent reveals lazily rendered detail panels. Failures are logged
// and never abort the scrape.
func expandContent(ctx context.Context, page *rod.Page, settle func()) {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	p := page.Context(actionCtx)

	for _, frac := range scrollSteps {
		if _, err := p.Eval(`(f) => window.scrollTo(0, document.body.scrollHeight * f)`, frac); err != nil {
			slog.Debug("expand: scroll failed", "error", err)
			break
		}
		settle()
	}

	res, err := p.Eval(expandJS)
	if err != nil {
		slog.Debug("expand: click pass failed", "error", err)
		return
	}
	if n := res.Value.Int(); n > 0 {
		slog.Debug("expand: clicked elements", "count", n)
		settle()
	}
}

// Login form selectors.
const (
	emailSelector    = `input[type='email'], input[name='email'], input#email`
	passwordSelector = `input[type='password'], input[name='password'], input#password`
	submitSelector   = `button[type='submit'], input[type='submit'], button.btn-login`
)

// login signs in through loginURL with the configured account. A page that
// is still on the login URL afterwards counts as a failed login.
func login(ctx context.Context, page *rod.Page, loginURL string, creds config.VesselFinderConfig, settle func()) error {
	loginCtx, cancel := context.WithTimeout(ctx, 3*actionTimeout)
	defer cancel()
	p := page.Context(loginCtx)

	if err := p.Navigate(loginURL); err != nil {
		return categorizeError(err, "navigation to login page failed")
	}

	email, err := p.Element(emailSelector)
	if err != nil {
		return loginError("login form not found", err)
	}
	password, err := p.Element(passwordSelector)
	if err != nil {
		return loginError("password field not found", err)
	}
	if err := fill(email, creds.Email); err != nil {
		return loginError("entering email failed", err)
	}
	if err := fill(password, creds.Password); err != nil {
		return loginError("entering password failed", err)
	}
	submit, err := p.Element(submitSelector)
	if err != nil {
		return loginError("login button not found", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return loginError("clicking login button failed", err)
	}
	_ = p.WaitLoad()
	settle()

	info, err := p.Info()
	if err != nil {
		return loginError("reading page after login failed", err)
	}
	if strings.Contains(strings.ToLower(info.URL), "login") {
		return loginError("still on the login page after submitting", nil)
	}
	slog.Info("login successful", "url", info.URL)
	return nil
}

// fill replaces the element's current text with value.
func fill(el *rod.Element, value string) error {
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func loginError(msg string, err error) error {
	return models.NewScrapeError(models.ErrCodeSession, fmt.Sprintf("login: %s", msg), err)
}
