package extract

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// skippedResourceTypes never carry vessel JSON.
var skippedResourceTypes = map[string]struct{}{
	"image":      {},
	"font":       {},
	"media":      {},
	"stylesheet": {},
}

// Network reads JSON bodies of captured responses whose URL matches one of
// the provider's keywords.
type Network struct {
	keywords []string
}

// NewNetwork creates the network extractor. An empty keyword list accepts
// every JSON response.
func NewNetwork(keywords []string) *Network {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &Network{keywords: lower}
}

func (n *Network) Source() record.Source { return record.SourceNetwork }

func (n *Network) Extract(_ context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	var out []record.Proposal
	for _, resp := range ev.Network {
		if !n.Relevant(resp) {
			continue
		}
		doc, err := DecodeJSON(bytes.TrimSpace(resp.Body))
		if err != nil {
			slog.Debug("network: skip undecodable body", "url", resp.URL, "error", err)
			continue
		}
		out = append(out, Walk(doc)...)
	}
	return out, nil
}

// Relevant reports whether resp may carry vessel data: a successful,
// non-binary JSON response on a keyword-matching URL.
func (n *Network) Relevant(resp NetworkResponse) bool {
	if resp.Status >= 400 {
		return false
	}
	if _, skip := skippedResourceTypes[strings.ToLower(resp.ResourceType)]; skip {
		return false
	}
	mime := strings.ToLower(resp.MIMEType)
	if strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "font/") ||
		strings.Contains(mime, "svg") || strings.Contains(mime, "octet-stream") {
		return false
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || (body[0] != '{' && body[0] != '[') {
		return false
	}
	return n.MatchesURL(resp.URL)
}

// MatchesURL reports whether u contains one of the keywords.
func (n *Network) MatchesURL(u string) bool {
	if len(n.keywords) == 0 {
		return true
	}
	u = strings.ToLower(u)
	for _, k := range n.keywords {
		if strings.Contains(u, k) {
			return true
		}
	}
	return false
}
