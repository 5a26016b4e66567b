package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

type attrRule struct {
	attr  string
	field record.Field
	sel   cascadia.Selector
}

func newAttrRule(attr string, f record.Field) attrRule {
	return attrRule{attr: attr, field: f, sel: cascadia.MustCompile("[" + attr + "]")}
}

var dataAttributes = []attrRule{
	newAttrRule("data-mmsi", record.MMSI),
	newAttrRule("data-imo", record.IMO),
	newAttrRule("data-callsign", record.Callsign),
	newAttrRule("data-type", record.Type),
	newAttrRule("data-lat", record.Lat),
	newAttrRule("data-latitude", record.Lat),
	newAttrRule("data-lon", record.Lon),
	newAttrRule("data-lng", record.Lon),
	newAttrRule("data-longitude", record.Lon),
	newAttrRule("data-speed", record.Speed),
	newAttrRule("data-course", record.Course),
	newAttrRule("data-heading", record.Heading),
	newAttrRule("data-destination", record.Destination),
	newAttrRule("data-status", record.NavStatus),
	newAttrRule("data-draught", record.Draught),
}

var markerSelector = cascadia.MustCompile(
	".leaflet-marker, .map-marker, .vessel-marker, .ship-marker, " +
		".leaflet-popup, .map-popup, .coordinates, .lat-lon, " +
		".position-display, .coordinate-display, .vessel-position, .ship-position")

var classFields = []struct {
	sel   cascadia.Selector
	field record.Field
}{
	{cascadia.MustCompile(".lat, .latitude"), record.Lat},
	{cascadia.MustCompile(".lon, .longitude"), record.Lon},
	{cascadia.MustCompile(".destination"), record.Destination},
	{cascadia.MustCompile(".nav-status, .status"), record.NavStatus},
	{cascadia.MustCompile(".draught"), record.Draught},
}

var nameSelector = cascadia.MustCompile("h1, .page-title, .vessel-name, .ship-name")

// siteNames are headings the sites render in place of a vessel name.
var siteNames = map[string]struct{}{
	"marinetraffic":  {},
	"marine traffic": {},
	"vesselfinder":   {},
	"vessel finder":  {},
	"map":            {},
}

// DOMAttributes reads data-* attributes, map marker text and well-known
// classes of the rendered DOM.
type DOMAttributes struct{}

// NewDOMAttributes creates the DOM attribute extractor.
func NewDOMAttributes() *DOMAttributes { return &DOMAttributes{} }

func (d *DOMAttributes) Source() record.Source { return record.SourceDOMAttributes }

func (d *DOMAttributes) Extract(_ context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	doc, err := ev.Document()
	if err != nil {
		return nil, fmt.Errorf("dom attributes: parse html: %w", err)
	}
	var out []record.Proposal

	for _, rule := range dataAttributes {
		doc.FindMatcher(rule.sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(rule.attr); ok {
				out = append(out, record.Propose(rule.field, v))
			}
		})
	}

	doc.FindMatcher(markerSelector).Each(func(_ int, s *goquery.Selection) {
		if lat, lon, ok := ParseCoordinatePair(s.Text()); ok {
			out = append(out, record.Propose(record.Lat, lat), record.Propose(record.Lon, lon))
		}
	})

	for _, c := range classFields {
		doc.FindMatcher(c.sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, record.Propose(c.field, s.Text()))
		})
	}

	doc.FindMatcher(nameSelector).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if len(name) <= 2 || IsSiteName(name) {
			return
		}
		out = append(out, record.Propose(record.Name, name))
	})

	return out, nil
}

// IsSiteName reports whether s is a tracking site's own title.
func IsSiteName(s string) bool {
	_, ok := siteNames[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
