package models

import (
	"strings"
	"time"
)

// VesselRecord is the unit of work and output of one scrape invocation.
//
// Every optional field is a pointer: nil means "absent". A zero speed or a
// coordinate on the equator is a value, not absence.
type VesselRecord struct {
	Provider     string `json:"provider" bson:"provider"`
	DataSource   string `json:"data_source" bson:"data_source"`
	ComparisonID string `json:"comparison_id,omitempty" bson:"comparison_id,omitempty"`

	MMSI     *string `json:"mmsi" bson:"mmsi,omitempty"`
	IMO      *string `json:"imo" bson:"imo,omitempty"`
	Name     *string `json:"name" bson:"name,omitempty"`
	Callsign *string `json:"callsign" bson:"callsign,omitempty"`
	Type     *string `json:"type" bson:"type,omitempty"`

	Lat     *float64 `json:"lat" bson:"lat,omitempty"`
	Lon     *float64 `json:"lon" bson:"lon,omitempty"`
	Speed   *float64 `json:"speed" bson:"speed,omitempty"`
	Course  *float64 `json:"course" bson:"course,omitempty"`
	Heading *float64 `json:"heading" bson:"heading,omitempty"`
	Draught *float64 `json:"draught" bson:"draught,omitempty"`

	NavStatus   *string `json:"nav_status" bson:"nav_status,omitempty"`
	Destination *string `json:"destination" bson:"destination,omitempty"`

	// VesselFinder detail fields.
	Flag   *string  `json:"flag,omitempty" bson:"flag,omitempty"`
	Length *float64 `json:"length,omitempty" bson:"length,omitempty"`
	Width  *float64 `json:"width,omitempty" bson:"width,omitempty"`
	Built  *string  `json:"built,omitempty" bson:"built,omitempty"`
	ETA    *string  `json:"eta,omitempty" bson:"eta,omitempty"`

	Timestamp *time.Time `json:"timestamp" bson:"timestamp,omitempty"`
}

// NewVesselRecord creates an empty record carrying only the caller-supplied
// identifiers and tags. Blank identifiers stay nil.
func NewVesselRecord(provider, mmsi, imo, comparisonID string) VesselRecord {
	rec := VesselRecord{
		Provider:     provider,
		DataSource:   provider,
		ComparisonID: comparisonID,
	}
	if v := TrimIdentifier(mmsi); v != "" {
		rec.MMSI = &v
	}
	if v := TrimIdentifier(imo); v != "" {
		rec.IMO = &v
	}
	return rec
}

// TrimIdentifier strips whitespace and wrapping quote characters that some
// upstream sources leave around mmsi/imo values.
func TrimIdentifier(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'` ")
}

// HasIdentifier reports whether mmsi or imo is known.
func (r *VesselRecord) HasIdentifier() bool {
	return r.MMSI != nil || r.IMO != nil
}

// Identifier returns the mmsi, falling back to the imo.
func (r *VesselRecord) Identifier() string {
	switch {
	case r.MMSI != nil:
		return *r.MMSI
	case r.IMO != nil:
		return *r.IMO
	}
	return ""
}

// HasCoordinates reports whether both lat and lon are present.
func (r *VesselRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// Flatten returns the record as a flat property bag for analytics capture.
// Absent fields are reported as nil so every capture carries the same keys.
func (r *VesselRecord) Flatten() map[string]any {
	props := map[string]any{
		"provider":      r.Provider,
		"data_source":   r.DataSource,
		"comparison_id": r.ComparisonID,
		"mmsi":          deref(r.MMSI),
		"imo":           deref(r.IMO),
		"name":          deref(r.Name),
		"callsign":      deref(r.Callsign),
		"type":          deref(r.Type),
		"lat":           deref(r.Lat),
		"lon":           deref(r.Lon),
		"speed":         deref(r.Speed),
		"course":        deref(r.Course),
		"heading":       deref(r.Heading),
		"draught":       deref(r.Draught),
		"nav_status":    deref(r.NavStatus),
		"destination":   deref(r.Destination),
		"flag":          deref(r.Flag),
		"length":        deref(r.Length),
		"width":         deref(r.Width),
		"built":         deref(r.Built),
		"eta":           deref(r.ETA),
		"timestamp":     nil,
	}
	if r.Timestamp != nil {
		props["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339)
	}
	return props
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
