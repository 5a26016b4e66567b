package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	tls2 "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxFetchBytes caps fallback response bodies.
const maxFetchBytes = 10 * 1024 * 1024

// httpFetcher performs HTTP requests with a Chrome TLS fingerprint (utls).
// It is the fallback when an in-page fetch of a JSON endpoint fails.
type httpFetcher struct {
	defaultProxy string
}

// newHTTPFetcher creates a new HTTP fetcher.
func newHTTPFetcher(defaultProxy string) *httpFetcher {
	return &httpFetcher{defaultProxy: defaultProxy}
}

// fetchJSON retrieves targetURL carrying the browser session's cookie
// header and referer.
func (f *httpFetcher) fetchJSON(ctx context.Context, targetURL, cookie, referer string) ([]byte, error) {
	proxy := f.defaultProxy

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr)
		},
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	return body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via
// utls. ALPN is narrowed to http/1.1 because the transport cannot speak h2
// over a custom dialer.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		return nil, fmt.Errorf("utls spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("utls preset: %w", err)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
