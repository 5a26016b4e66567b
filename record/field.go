// Package record holds the vessel field catalogue and the merge rules that
// turn extractor proposals into one VesselRecord: the declared source
// Priority, the SetIfAbsent primitive, the Reconciler and the Normalizer.
package record

import (
	"time"

	"github.com/use-agent/vesselscout/models"
)

// Field names one VesselRecord field. The string value is the JSON key.
type Field string

const (
	MMSI        Field = "mmsi"
	IMO         Field = "imo"
	Name        Field = "name"
	Callsign    Field = "callsign"
	Type        Field = "type"
	Lat         Field = "lat"
	Lon         Field = "lon"
	Speed       Field = "speed"
	Course      Field = "course"
	Heading     Field = "heading"
	Draught     Field = "draught"
	NavStatus   Field = "nav_status"
	Destination Field = "destination"
	Flag        Field = "flag"
	Length      Field = "length"
	Width       Field = "width"
	Built       Field = "built"
	ETA         Field = "eta"
	Timestamp   Field = "timestamp"
)

// Kind is the semantic type a field is coerced to.
type Kind int

const (
	KindText Kind = iota
	KindIdentifier
	KindNumber
	KindTime
)

// Fields lists every extractable field in catalogue order.
var Fields = []Field{
	MMSI, IMO, Name, Callsign, Type,
	Lat, Lon, Speed, Course, Heading, Draught,
	NavStatus, Destination,
	Flag, Length, Width, Built, ETA,
	Timestamp,
}

var kinds = map[Field]Kind{
	MMSI:        KindIdentifier,
	IMO:         KindIdentifier,
	Name:        KindText,
	Callsign:    KindText,
	Type:        KindText,
	Lat:         KindNumber,
	Lon:         KindNumber,
	Speed:       KindNumber,
	Course:      KindNumber,
	Heading:     KindNumber,
	Draught:     KindNumber,
	NavStatus:   KindText,
	Destination: KindText,
	Flag:        KindText,
	Length:      KindNumber,
	Width:       KindNumber,
	Built:       KindText,
	ETA:         KindText,
	Timestamp:   KindTime,
}

// Kind returns the semantic type of f. Unknown fields report KindText.
func (f Field) Kind() Kind {
	return kinds[f]
}

// Known reports whether f is part of the catalogue.
func (f Field) Known() bool {
	_, ok := kinds[f]
	return ok
}

// IsSet reports whether f is populated in rec.
func IsSet(rec *models.VesselRecord, f Field) bool {
	switch f {
	case MMSI:
		return rec.MMSI != nil
	case IMO:
		return rec.IMO != nil
	case Name:
		return rec.Name != nil
	case Callsign:
		return rec.Callsign != nil
	case Type:
		return rec.Type != nil
	case Lat:
		return rec.Lat != nil
	case Lon:
		return rec.Lon != nil
	case Speed:
		return rec.Speed != nil
	case Course:
		return rec.Course != nil
	case Heading:
		return rec.Heading != nil
	case Draught:
		return rec.Draught != nil
	case NavStatus:
		return rec.NavStatus != nil
	case Destination:
		return rec.Destination != nil
	case Flag:
		return rec.Flag != nil
	case Length:
		return rec.Length != nil
	case Width:
		return rec.Width != nil
	case Built:
		return rec.Built != nil
	case ETA:
		return rec.ETA != nil
	case Timestamp:
		return rec.Timestamp != nil
	}
	return false
}

// assign stores an already-normalized value. It always allocates a fresh
// pointer so copies of rec made before the call never observe the change.
func assign(rec *models.VesselRecord, f Field, v any) {
	switch val := v.(type) {
	case string:
		s := val
		switch f {
		case MMSI:
			rec.MMSI = &s
		case IMO:
			rec.IMO = &s
		case Name:
			rec.Name = &s
		case Callsign:
			rec.Callsign = &s
		case Type:
			rec.Type = &s
		case NavStatus:
			rec.NavStatus = &s
		case Destination:
			rec.Destination = &s
		case Flag:
			rec.Flag = &s
		case Built:
			rec.Built = &s
		case ETA:
			rec.ETA = &s
		}
	case float64:
		n := val
		switch f {
		case Lat:
			rec.Lat = &n
		case Lon:
			rec.Lon = &n
		case Speed:
			rec.Speed = &n
		case Course:
			rec.Course = &n
		case Heading:
			rec.Heading = &n
		case Draught:
			rec.Draught = &n
		case Length:
			rec.Length = &n
		case Width:
			rec.Width = &n
		}
	case time.Time:
		if f == Timestamp {
			t := val
			rec.Timestamp = &t
		}
	}
}

// unset resets f to absent.
func unset(rec *models.VesselRecord, f Field) {
	switch f {
	case MMSI:
		rec.MMSI = nil
	case IMO:
		rec.IMO = nil
	case Name:
		rec.Name = nil
	case Callsign:
		rec.Callsign = nil
	case Type:
		rec.Type = nil
	case Lat:
		rec.Lat = nil
	case Lon:
		rec.Lon = nil
	case Speed:
		rec.Speed = nil
	case Course:
		rec.Course = nil
	case Heading:
		rec.Heading = nil
	case Draught:
		rec.Draught = nil
	case NavStatus:
		rec.NavStatus = nil
	case Destination:
		rec.Destination = nil
	case Flag:
		rec.Flag = nil
	case Length:
		rec.Length = nil
	case Width:
		rec.Width = nil
	case Built:
		rec.Built = nil
	case ETA:
		rec.ETA = nil
	case Timestamp:
		rec.Timestamp = nil
	}
}

// value returns the current value of f, or nil when absent.
func value(rec *models.VesselRecord, f Field) any {
	if !IsSet(rec, f) {
		return nil
	}
	switch f {
	case MMSI:
		return *rec.MMSI
	case IMO:
		return *rec.IMO
	case Name:
		return *rec.Name
	case Callsign:
		return *rec.Callsign
	case Type:
		return *rec.Type
	case Lat:
		return *rec.Lat
	case Lon:
		return *rec.Lon
	case Speed:
		return *rec.Speed
	case Course:
		return *rec.Course
	case Heading:
		return *rec.Heading
	case Draught:
		return *rec.Draught
	case NavStatus:
		return *rec.NavStatus
	case Destination:
		return *rec.Destination
	case Flag:
		return *rec.Flag
	case Length:
		return *rec.Length
	case Width:
		return *rec.Width
	case Built:
		return *rec.Built
	case ETA:
		return *rec.ETA
	case Timestamp:
		return *rec.Timestamp
	}
	return nil
}
