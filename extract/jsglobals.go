package extract

import (
	"context"
	"log/slog"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// objectGlobals hold whole vessel objects, walked with the key synonyms.
var objectGlobals = []string{
	"window.vessel || window.vesselData || window.ship",
	"window.markers || window.vesselMarkers",
	"window.aisData || window.ais",
}

// fieldGlobals hold single values.
var fieldGlobals = []struct {
	field record.Field
	expr  string
}{
	{record.Lat, "window.vesselLat || window.shipLat"},
	{record.Lon, "window.vesselLon || window.shipLon"},
	{record.Speed, "window.vesselSpeed"},
	{record.Course, "window.vesselCourse"},
	{record.Heading, "window.vesselHeading"},
	{record.Destination, "window.vesselDestination"},
	{record.NavStatus, "window.vesselStatus"},
}

// mapCenter reads the Leaflet-style map center. It is the weakest position
// hint in this source and is evaluated last.
const mapCenter = "(typeof map !== 'undefined' && map && map.getCenter) ? map.getCenter() : null"

// globalExpr wraps expr so that missing globals, throwing getters and
// unserializable objects all evaluate to null.
func globalExpr(expr string) string {
	return `() => { try { const v = (` + expr + `); ` +
		`return (v === undefined || v === null) ? null : JSON.parse(JSON.stringify(v)) } ` +
		`catch (e) { return null } }`
}

// JSGlobals inspects well-known page globals.
type JSGlobals struct{}

// NewJSGlobals creates the JS globals extractor.
func NewJSGlobals() *JSGlobals { return &JSGlobals{} }

func (j *JSGlobals) Source() record.Source { return record.SourceJSGlobals }

// Extract evaluates each global independently. A failed evaluation counts
// as "no value" and does not stop the others.
func (j *JSGlobals) Extract(ctx context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	if ev.Script == nil {
		return nil, nil
	}
	var out []record.Proposal

	walkGlobal := func(expr string) {
		v, err := ev.Script.Eval(ctx, globalExpr(expr))
		if err != nil {
			slog.Debug("js globals: eval failed", "expr", expr, "error", err)
			return
		}
		if v.Nil() {
			return
		}
		doc, err := DecodeJSON([]byte(v.JSON("", "")))
		if err != nil {
			return
		}
		out = append(out, Walk(doc)...)
	}

	walkGlobal(objectGlobals[0])
	for _, g := range fieldGlobals {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		v, err := ev.Script.Eval(ctx, globalExpr(g.expr))
		if err != nil {
			slog.Debug("js globals: eval failed", "expr", g.expr, "error", err)
			continue
		}
		if v.Nil() {
			continue
		}
		out = append(out, record.Propose(g.field, v.Val()))
	}
	for _, expr := range objectGlobals[1:] {
		walkGlobal(expr)
	}
	walkGlobal(mapCenter)
	return out, ctx.Err()
}
