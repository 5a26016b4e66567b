package scraper

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/vesselscout/extract"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// capturedTypes are the resource types whose bodies are recorded.
var capturedTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeXHR:   {},
	proto.NetworkResourceTypeFetch: {},
	proto.NetworkResourceTypeOther: {},
}

// trackerDomains are ad and analytics hosts that never carry vessel data.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"facebook.net":          {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"hotjar.com":            {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"consensu.org":          {},
}

// isTrackerDomain checks if a hostname (or any parent domain) is blocklisted.
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// capture records the responses a page loads and when the last request
// started. It is shared between the hijack goroutines and the session.
type capture struct {
	client    *http.Client
	cookies   func(u string) string
	keywords  *extract.Network
	maxBytes  int
	blocked   map[proto.NetworkResourceType]struct{}
	blockAds  bool
	lastStart atomic.Int64

	mu        sync.Mutex
	responses []extract.NetworkResponse
}

func newCapture(client *http.Client, keywords *extract.Network, blockedTypes []string, blockAds bool, maxBytes int) *capture {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[strings.TrimSpace(name)]; ok {
			blocked[rt] = struct{}{}
		}
	}
	c := &capture{
		client:   client,
		keywords: keywords,
		maxBytes: maxBytes,
		blocked:  blocked,
		blockAds: blockAds,
	}
	c.touch(time.Now())
	return c
}

func (c *capture) touch(t time.Time) { c.lastStart.Store(t.UnixNano()) }

// LastActivity is when the most recent request was seen.
func (c *capture) LastActivity() time.Time { return time.Unix(0, c.lastStart.Load()) }

// Responses returns a copy of the captured responses in arrival order.
func (c *capture) Responses() []extract.NetworkResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]extract.NetworkResponse, len(c.responses))
	copy(out, c.responses)
	return out
}

func (c *capture) add(r extract.NetworkResponse) {
	c.mu.Lock()
	c.responses = append(c.responses, r)
	c.mu.Unlock()
}

// wanted reports whether a request's response body should be recorded.
// Only data requests whose URL matches a provider keyword qualify.
func (c *capture) wanted(rt proto.NetworkResourceType, u string) bool {
	if _, ok := capturedTypes[rt]; !ok {
		return false
	}
	return c.keywords.MatchesURL(u)
}

// handle is the per-request hijack callback.
func (c *capture) handle(h *rod.Hijack) {
	c.touch(time.Now())
	rt := h.Request.Type()

	// ── 1. Block heavy resources and trackers ──
	if _, ok := c.blocked[rt]; ok {
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	u := h.Request.URL()
	if c.blockAds && u != nil && isTrackerDomain(u.Hostname()) {
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}

	// ── 2. Pass through everything that is not a data request ──
	if u == nil || !c.wanted(rt, u.String()) {
		h.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}

	// ── 3. Load data requests ourselves so the body can be kept ──
	req := h.Request.Req()
	// Let the transport negotiate gzip so the body arrives decoded.
	req.Header.Del("Accept-Encoding")
	if c.cookies != nil && req.Header.Get("Cookie") == "" {
		if cookie := c.cookies(u.String()); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}
	if err := h.LoadResponse(c.client, true); err != nil {
		h.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}

	body := h.Response.Payload().Body
	if c.maxBytes > 0 && len(body) > c.maxBytes {
		body = body[:c.maxBytes]
	}
	kept := make([]byte, len(body))
	copy(kept, body)
	c.add(extract.NetworkResponse{
		URL:          u.String(),
		ResourceType: strings.ToLower(string(rt)),
		MIMEType:     h.Response.Headers().Get("Content-Type"),
		Status:       h.Response.Payload().ResponseCode,
		Body:         kept,
	})
	c.touch(time.Now())
}

// install mounts the capture on page and starts the router. The caller
// must Stop the returned router.
func (c *capture) install(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	if err := router.Add("*", "", c.handle); err != nil {
		return nil, err
	}
	// router.Run() blocks, so it must live in its own goroutine.
	go router.Run()
	return router, nil
}

// cookieHeader renders the page's cookies for u as a Cookie header value.
func cookieHeader(page *rod.Page, u string) string {
	cookies, err := page.Cookies([]string{u})
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// newCaptureClient builds the client that replays intercepted data
// requests. It honours the browser proxy for http(s) proxies.
func newCaptureClient(proxy string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		// Redirects are handed back to the browser untouched.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}
