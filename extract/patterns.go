package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/use-agent/vesselscout/record"
)

// labelRule maps label phrases, compared word by word, to a field.
type labelRule struct {
	field   record.Field
	phrases []string
}

// labelRules are tried in order; the first rule with a matching phrase
// claims the label position it matched.
var labelRules = []labelRule{
	{record.MMSI, []string{"mmsi"}},
	{record.IMO, []string{"imo"}},
	{record.Callsign, []string{"call sign", "callsign"}},
	{record.Type, []string{"vessel type", "ship type", "type"}},
	{record.Lat, []string{"latitude", "lat"}},
	{record.Lon, []string{"longitude", "lon", "lng"}},
	{record.Speed, []string{"speed", "sog"}},
	{record.Course, []string{"course", "cog"}},
	{record.Heading, []string{"heading", "hdg"}},
	{record.Draught, []string{"draught", "draft"}},
	{record.Destination, []string{"destination", "port of call", "next port"}},
	{record.NavStatus, []string{"navigational status", "navigation status", "nav status", "status"}},
	{record.Flag, []string{"flag"}},
	{record.Length, []string{"length", "loa"}},
	{record.Width, []string{"width", "beam", "breadth"}},
	{record.Built, []string{"year built", "built"}},
	{record.ETA, []string{"eta"}},
}

// positionLabels carry a coordinate pair in their value.
var positionLabels = []string{"position", "coordinates", "location"}

var (
	reIMO7  = regexp.MustCompile(`\b(\d{7})\b`)
	reMMSI9 = regexp.MustCompile(`\b(\d{9})\b`)
)

func labelWords(label string) []string {
	return strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// phraseAt reports the word index where phrase starts in words, or -1.
func phraseAt(words []string, phrase string) int {
	pw := strings.Fields(phrase)
	for i := 0; i+len(pw) <= len(words); i++ {
		match := true
		for j, w := range pw {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// LabelFields resolves a label such as "Speed/Course" to the fields it
// names, in the order they appear in the label.
func LabelFields(label string) []record.Field {
	words := labelWords(label)
	if len(words) == 0 || len(words) > 6 {
		return nil
	}
	type hit struct {
		at    int
		field record.Field
	}
	var hits []hit
	claimed := make(map[int]bool)
	for _, rule := range labelRules {
		for _, p := range rule.phrases {
			at := phraseAt(words, p)
			if at < 0 || claimed[at] {
				continue
			}
			for k := range strings.Fields(p) {
				claimed[at+k] = true
			}
			hits = append(hits, hit{at, rule.field})
			break
		}
	}
	// insertion sort by position; hits is tiny
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]record.Field, len(hits))
	for i, h := range hits {
		out[i] = h.field
	}
	return out
}

// LabelProposals turns one label/value pair into proposals. Compound labels
// ("Speed/Course", "Length / Beam") split the value on "/" pairwise.
func LabelProposals(label, value string) []record.Proposal {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	fields := LabelFields(label)
	if len(fields) == 0 {
		words := labelWords(label)
		for _, p := range positionLabels {
			if phraseAt(words, p) >= 0 {
				if lat, lon, ok := ParseCoordinatePair(value); ok {
					return []record.Proposal{record.Propose(record.Lat, lat), record.Propose(record.Lon, lon)}
				}
			}
		}
		return nil
	}
	if len(fields) == 1 {
		if v, ok := labelValue(fields[0], value); ok {
			return []record.Proposal{record.Propose(fields[0], v)}
		}
		return nil
	}
	parts := strings.Split(value, "/")
	if len(parts) != len(fields) {
		return nil
	}
	var out []record.Proposal
	for i, f := range fields {
		if v, ok := labelValue(f, strings.TrimSpace(parts[i])); ok {
			out = append(out, record.Propose(f, v))
		}
	}
	return out
}

func labelValue(f record.Field, value string) (string, bool) {
	switch f {
	case record.IMO:
		m := reIMO7.FindStringSubmatch(value)
		if m == nil {
			return "", false
		}
		return m[1], true
	case record.MMSI:
		m := reMMSI9.FindStringSubmatch(value)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
	return value, value != ""
}

// fieldPattern is one entry of the free-text regex library. The first
// capture group holds the value.
type fieldPattern struct {
	field record.Field
	re    *regexp.Regexp
}

// textPatterns is the ordered free-text library, applied after the
// structured label/value passes found nothing for a field.
var textPatterns = []fieldPattern{
	{record.Lat, regexp.MustCompile(`(?i)\blat(?:itude)?\b[:\s]*([+-]?\d+(?:\.\d+)?)`)},
	{record.Lon, regexp.MustCompile(`(?i)\b(?:lon|lng|longitude)\b[:\s]*([+-]?\d+(?:\.\d+)?)`)},
	{record.Speed, regexp.MustCompile(`(?i)\bspeed\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Speed, regexp.MustCompile(`(?i)\bsog\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Speed, regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kn|knots)\b`)},
	{record.Course, regexp.MustCompile(`(?i)\bcourse\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Course, regexp.MustCompile(`(?i)\bcog\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Heading, regexp.MustCompile(`(?i)\bheading\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Heading, regexp.MustCompile(`(?i)\bhdg\b[:\s]+(\d+(?:\.\d+)?)`)},
	{record.Destination, regexp.MustCompile(`(?i)\bdestination\b[:\s]+([^,\n\r]+)`)},
	{record.Destination, regexp.MustCompile(`(?i)\bport of call\b[:\s]+([^,\n\r]+)`)},
	{record.Destination, regexp.MustCompile(`(?i)\bnext port\b[:\s]+([^,\n\r]+)`)},
	{record.Destination, regexp.MustCompile(`(?i)\bbound for\b[:\s]+([^,\n\r]+)`)},
	{record.NavStatus, regexp.MustCompile(`(?i)\bnavigation(?:al)? status\b[:\s]+([^,\n\r]+)`)},
	{record.NavStatus, regexp.MustCompile(`(?i)\bnav status\b[:\s]+([^,\n\r]+)`)},
	{record.NavStatus, regexp.MustCompile(`(?i)\bcurrent status\b[:\s]+([^,\n\r]+)`)},
	{record.NavStatus, regexp.MustCompile(`(?i)\bstatus\b[:\s]+([^,\n\r]+)`)},
	{record.Draught, regexp.MustCompile(`(?i)\b(?:draught|draft)\b[:\s]*(\d+(?:\.\d+)?)`)},
	{record.IMO, regexp.MustCompile(`(?i)\bIMO\b[:\s]*(\d{7})\b`)},
	{record.MMSI, regexp.MustCompile(`(?i)\bMMSI\b[:\s]*(\d{9})\b`)},
	{record.Callsign, regexp.MustCompile(`(?i)\bcall\s*sign\b[:\s]*([A-Z0-9]+)`)},
	{record.Type, regexp.MustCompile(`(?i)\b(?:vessel|ship)\s*type\b[:\s]*([^,\n\r]+)`)},
	{record.Type, regexp.MustCompile(`(?i)\btype\b[:\s]+([^,\n\r]+)`)},
}

var (
	reHemispherePair = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d+)?)\s*°?\s*([NS])[\s,/]*(\d{1,3}(?:\.\d+)?)\s*°?\s*([EW])\b`)
	reLabelledPair   = regexp.MustCompile(`(?i)\blat(?:itude)?\b[:\s]*([+-]?\d{1,2}\.\d+)[,\s/]*\b(?:lon|lng|longitude)\b[:\s]*([+-]?\d{1,3}\.\d+)`)
	reDecimalPair    = regexp.MustCompile(`([+-]?\d{1,2}\.\d+)\s*[,/\s]\s*([+-]?\d{1,3}\.\d+)`)
)

// ParseCoordinatePair finds a latitude/longitude pair in text. It accepts
// hemisphere notation ("12.5 N 45.1 W"), labelled pairs and bare decimal
// pairs, and rejects pairs outside the valid ranges.
func ParseCoordinatePair(text string) (lat, lon float64, ok bool) {
	if lat, lon, ok = hemispherePair(text); ok {
		return lat, lon, true
	}
	for _, re := range []*regexp.Regexp{reLabelledPair, reDecimalPair} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(m[1], 64)
		lon, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && validPair(lat, lon) {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

// hemispherePair matches only the explicit N/S E/W notation.
func hemispherePair(text string) (lat, lon float64, ok bool) {
	m := reHemispherePair.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	lat, _ = strconv.ParseFloat(m[1], 64)
	lon, _ = strconv.ParseFloat(m[3], 64)
	if strings.EqualFold(m[2], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[4], "W") {
		lon = -lon
	}
	return lat, lon, validPair(lat, lon)
}

func validPair(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
