package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

var (
	rowSelector   = cascadia.MustCompile("tr")
	cellSelector  = cascadia.MustCompile("td, th")
	termSelector  = cascadia.MustCompile("dt")
	colonCarriers = cascadia.MustCompile("li, p, span, div, label, strong")
)

// DOMText parses the visible text: label/value lines, table rows,
// definition lists and colon-bearing elements first, then the ordered
// free-text pattern library.
type DOMText struct{}

// NewDOMText creates the DOM text extractor.
func NewDOMText() *DOMText { return &DOMText{} }

func (d *DOMText) Source() record.Source { return record.SourceDOMText }

func (d *DOMText) Extract(ctx context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	text := ev.VisibleText()
	var out []record.Proposal

	// ── 1. Label/value lines ──
	ls := lines(text)
	for i, l := range ls {
		label, value, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		// "Speed:" rendered in its own node, value on the next line.
		if strings.TrimSpace(value) == "" && i+1 < len(ls) && !strings.Contains(ls[i+1], ":") {
			value = ls[i+1]
		}
		out = append(out, LabelProposals(label, value)...)
	}

	// ── 2. Structured markup ──
	if doc, err := ev.Document(); err == nil {
		doc.FindMatcher(rowSelector).Each(func(_ int, row *goquery.Selection) {
			cells := row.FindMatcher(cellSelector)
			if cells.Length() < 2 {
				return
			}
			out = append(out, LabelProposals(cells.Eq(0).Text(), cells.Eq(1).Text())...)
		})
		doc.FindMatcher(termSelector).Each(func(_ int, dt *goquery.Selection) {
			dd := dt.NextFiltered("dd")
			if dd.Length() == 0 {
				return
			}
			out = append(out, LabelProposals(dt.Text(), dd.Text())...)
		})
		doc.FindMatcher(colonCarriers).Each(func(_ int, s *goquery.Selection) {
			if s.Children().Length() > 0 {
				return
			}
			if label, value, ok := strings.Cut(s.Text(), ":"); ok {
				out = append(out, LabelProposals(label, value)...)
			}
		})
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	// ── 3. Free-text patterns ──
	if lat, lon, ok := hemispherePair(text); ok {
		out = append(out, record.Propose(record.Lat, lat), record.Propose(record.Lon, lon))
	}
	for _, p := range textPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			out = append(out, record.Propose(p.field, strings.TrimSpace(m[1])))
		}
	}
	return out, nil
}
