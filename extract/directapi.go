package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

var (
	reURLShipID = regexp.MustCompile(`/(\d+)/`)

	reSourceShipID = []*regexp.Regexp{
		regexp.MustCompile(`"shipId"\s*:\s*"?(\d+)`),
		regexp.MustCompile(`"vesselId"\s*:\s*"?(\d+)`),
		regexp.MustCompile(`shipId\s*[:=]\s*"?(\d+)`),
		regexp.MustCompile(`vesselId\s*[:=]\s*"?(\d+)`),
	}
)

const jsShipID = `() => { const v = window.shipId || window.vesselId; return v ? String(v) : null }`

// DirectAPI resolves the site's internal ship id and fetches the position
// endpoint with the page's session.
type DirectAPI struct {
	template string
}

// NewDirectAPI creates the direct API extractor. template must contain
// "{id}"; an empty template disables the extractor.
func NewDirectAPI(template string) *DirectAPI {
	return &DirectAPI{template: template}
}

func (d *DirectAPI) Source() record.Source { return record.SourceDirectAPI }

func (d *DirectAPI) Extract(ctx context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	if d.template == "" || ev.Fetch == nil {
		return nil, nil
	}
	id := ShipID(ctx, ev)
	if id == "" {
		return nil, nil
	}
	endpoint := strings.ReplaceAll(d.template, "{id}", id)
	body, err := ev.Fetch.FetchJSON(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("direct api %s: %w", endpoint, err)
	}
	doc, err := DecodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("direct api %s: decode: %w", endpoint, err)
	}
	return Walk(doc), nil
}

// ShipID finds the site-internal ship id: the page globals first, then a
// numeric path segment of the page URL, then id assignments in the source.
func ShipID(ctx context.Context, ev *Evidence) string {
	if ev.Script != nil {
		if v, err := ev.Script.Eval(ctx, jsShipID); err == nil && !v.Nil() {
			if s := strings.TrimSpace(v.Str()); s != "" {
				return s
			}
		}
	}
	if m := reURLShipID.FindStringSubmatch(ev.PageURL); m != nil {
		return m[1]
	}
	for _, re := range reSourceShipID {
		if m := re.FindStringSubmatch(ev.HTML); m != nil {
			return m[1]
		}
	}
	return ""
}
