package record

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/vesselscout/models"
)

// maxTextLen bounds free-text fields; longer candidates are page noise.
const maxTextLen = 200

var placeholders = map[string]struct{}{
	"":                  {},
	"unknown":           {},
	"n/a":               {},
	"-":                 {},
	"upgrade to unlock": {},
}

// IsPlaceholder reports whether s is one of the strings sites show instead
// of a value. Comparison is case-insensitive and ignores surrounding space.
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

type bounds struct{ min, max float64 }

// ranges holds the accepted interval per numeric field. Values outside are
// rejected, never clamped.
var ranges = map[Field]bounds{
	Lat:     {-90, 90},
	Lon:     {-180, 180},
	Speed:   {0, 102.2}, // 102.3 is the AIS "not available" marker
	Course:  {0, 360},
	Heading: {0, 360}, // 511 is the AIS "not available" marker
	Draught: {0, 30},
	Length:  {1, 500},
	Width:   {1, 100},
}

var (
	reNumber = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	reDigits = regexp.MustCompile(`^\d+$`)
	reZeros  = regexp.MustCompile(`^0+$`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// Normalize coerces candidate to the semantic type of f: string for text
// and identifier fields, float64 for numeric fields, time.Time for the
// timestamp. It reports false for placeholders, unparsable input and
// out-of-range numbers. It is the default Validator.
func Normalize(f Field, candidate any) (any, bool) {
	if candidate == nil || !f.Known() {
		return nil, false
	}
	switch f.Kind() {
	case KindIdentifier:
		return normalizeIdentifier(f, candidate)
	case KindNumber:
		n, ok := toFloat(candidate)
		if !ok {
			return nil, false
		}
		if b, bounded := ranges[f]; bounded && (n < b.min || n > b.max) {
			return nil, false
		}
		return n, true
	case KindTime:
		return toTime(candidate)
	default:
		s, ok := toText(candidate)
		if !ok {
			return nil, false
		}
		s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
		if IsPlaceholder(s) || len(s) > maxTextLen {
			return nil, false
		}
		return s, true
	}
}

func normalizeIdentifier(f Field, candidate any) (any, bool) {
	s, ok := toText(candidate)
	if !ok {
		return nil, false
	}
	s = models.TrimIdentifier(s)
	if IsPlaceholder(s) {
		return nil, false
	}
	if f == IMO && len(s) > 3 && strings.EqualFold(s[:3], "imo") {
		s = strings.TrimSpace(s[3:])
	}
	// "0" is the sites' own placeholder for an unknown identifier.
	if !reDigits.MatchString(s) || reZeros.MatchString(s) {
		return nil, false
	}
	return s, true
}

func toText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case float32:
		n = float64(val)
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case int32:
		n = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		if IsPlaceholder(val) {
			return 0, false
		}
		m := reNumber.FindString(val)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

func toTime(v any) (any, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return nil, false
		}
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		if IsPlaceholder(s) {
			return nil, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return nil, false
	}
	n, ok := toFloat(v)
	if !ok || n <= 0 {
		return nil, false
	}
	// Epoch milliseconds are common in AIS feeds.
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Unix(int64(n), 0).UTC(), true
}

// Finalize re-validates every populated field of rec and drops values that
// no longer pass, so records assembled outside the Reconciler (caller
// input, stored documents) obey the same invariants.
func Finalize(rec models.VesselRecord) models.VesselRecord {
	out := rec
	for _, f := range Fields {
		v := value(&out, f)
		if v == nil {
			continue
		}
		n, ok := Normalize(f, v)
		if !ok {
			unset(&out, f)
			continue
		}
		assign(&out, f, n)
	}
	return out
}
