// Package extract turns the raw evidence of a loaded vessel page into field
// proposals. Each Extractor reads one kind of evidence and never writes to
// the record; merging is left to record.Reconciler.
package extract

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ysmood/gson"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// NetworkResponse is one response the page received while loading.
type NetworkResponse struct {
	URL          string
	ResourceType string
	MIMEType     string
	Status       int
	Body         []byte
}

// ScriptRunner evaluates JavaScript in the page context.
type ScriptRunner interface {
	Eval(ctx context.Context, js string) (gson.JSON, error)
}

// Fetcher retrieves a JSON document using the page's session.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// Evidence is a read-only snapshot of a loaded page.
type Evidence struct {
	// PageURL is the URL the page ended up on after redirects.
	PageURL string
	// HTML is the serialized DOM.
	HTML string
	// Text is the visible body text, one block per line. Left empty it is
	// derived from HTML.
	Text string
	// Network holds the captured responses in arrival order.
	Network []NetworkResponse

	Script ScriptRunner
	Fetch  Fetcher

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// Document parses HTML once and shares the result between extractors.
func (ev *Evidence) Document() (*goquery.Document, error) {
	ev.docOnce.Do(func() {
		ev.doc, ev.docErr = goquery.NewDocumentFromReader(strings.NewReader(ev.HTML))
	})
	return ev.doc, ev.docErr
}

// VisibleText returns ev.Text, deriving it from the HTML when empty.
func (ev *Evidence) VisibleText() string {
	if strings.TrimSpace(ev.Text) != "" {
		return ev.Text
	}
	return VisibleText([]byte(ev.HTML))
}

// Extractor reads one evidence source and proposes field values. current is
// the record reconciled so far; extractors may use it to skip work but the
// proposals they return are always merged first-writer-wins.
type Extractor interface {
	Source() record.Source
	Extract(ctx context.Context, current models.VesselRecord, ev *Evidence) ([]record.Proposal, error)
}

// Options configures the standard extractor chain for one provider.
type Options struct {
	// Keywords filter captured network responses by URL.
	Keywords []string
	// PositionAPI is the direct position endpoint template containing
	// "{id}". Empty disables the direct API extractor.
	PositionAPI string
}

// Standard returns the extractor chain in record.Priority order.
func Standard(opts Options) []Extractor {
	return []Extractor{
		NewNetwork(opts.Keywords),
		NewDirectAPI(opts.PositionAPI),
		NewJSGlobals(),
		NewDOMAttributes(),
		NewDOMText(),
		NewEmbeddedJSON(),
	}
}
