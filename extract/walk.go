package extract

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/use-agent/vesselscout/record"
)

// synonyms maps normalized JSON keys to record fields. Bare "status" and
// "type" are left out: API envelopes use them for request status and
// GeoJSON geometry kinds.
var synonyms = map[string]record.Field{
	"mmsi": record.MMSI,
	"imo":  record.IMO,

	"name":       record.Name,
	"shipname":   record.Name,
	"vesselname": record.Name,
	"callsign":   record.Callsign,

	"shiptype":    record.Type,
	"vesseltype":  record.Type,
	"typename":    record.Type,
	"typesummary": record.Type,

	"lat":       record.Lat,
	"latitude":  record.Lat,
	"lon":       record.Lon,
	"lng":       record.Lon,
	"long":      record.Lon,
	"longitude": record.Lon,

	"speed":            record.Speed,
	"sog":              record.Speed,
	"speedoverground":  record.Speed,
	"course":           record.Course,
	"cog":              record.Course,
	"courseoverground": record.Course,
	"heading":          record.Heading,
	"hdg":              record.Heading,
	"trueheading":      record.Heading,
	"draught":          record.Draught,
	"draft":            record.Draught,

	"navigationalstatus": record.NavStatus,
	"navigationstatus":   record.NavStatus,
	"navstatus":          record.NavStatus,
	"navstat":            record.NavStatus,

	"destination": record.Destination,
	"dest":        record.Destination,
	"nextport":    record.Destination,

	"flag":      record.Flag,
	"country":   record.Flag,
	"length":    record.Length,
	"loa":       record.Length,
	"width":     record.Width,
	"beam":      record.Width,
	"breadth":   record.Width,
	"built":     record.Built,
	"yearbuilt": record.Built,
	"eta":       record.ETA,

	"timestamp":  record.Timestamp,
	"lastpos":    record.Timestamp,
	"lastupdate": record.Timestamp,
}

// maxWalkDepth stops runaway recursion on pathological documents.
const maxWalkDepth = 32

// normalizeKey lowercases k and drops separators so "nav_status",
// "navStatus" and "NAV-STATUS" compare equal.
func normalizeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FieldForKey resolves a JSON key or label to a record field.
func FieldForKey(k string) (record.Field, bool) {
	f, ok := synonyms[normalizeKey(k)]
	return f, ok
}

// DecodeJSON parses data keeping numbers as json.Number so identifiers
// survive without float rounding.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Walk collects proposals from a decoded JSON value. At every object the
// scalar keys are visited in sorted order before nested containers; arrays
// are visited in index order. The result is therefore deterministic for a
// given document.
func Walk(v any) []record.Proposal {
	var out []record.Proposal
	walk(v, 0, &out)
	return out
}

func walk(v any, depth int, out *[]record.Proposal) {
	if depth > maxWalkDepth {
		return
	}
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var nested []string
		for _, k := range keys {
			val := t[k]
			switch val.(type) {
			case map[string]any, []any:
				nested = append(nested, k)
				continue
			case nil:
				continue
			}
			f, ok := FieldForKey(k)
			if !ok {
				continue
			}
			*out = append(*out, record.Propose(f, scaleCoordinate(f, val)))
		}
		for _, k := range nested {
			walk(t[k], depth+1, out)
		}
	case []any:
		for _, item := range t {
			walk(item, depth+1, out)
		}
	}
}

// scaleCoordinate converts micro-degree coordinates (|v| > 180) to degrees.
// Other fields and unparsable values pass through untouched.
func scaleCoordinate(f record.Field, v any) any {
	if f != record.Lat && f != record.Lon {
		return v
	}
	var n float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return v
		}
		n = x
	case float64:
		n = t
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return v
		}
		n = x
	default:
		return v
	}
	if math.Abs(n) > 180 {
		return n / 1e6
	}
	return n
}
