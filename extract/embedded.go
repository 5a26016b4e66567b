package extract

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/titanous/json5"
	"golang.org/x/net/html"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

const (
	// maxCandidates bounds the object literals tried per page.
	maxCandidates = 500
	// maxCandidateLen skips literals too large to be a vessel object.
	maxCandidateLen = 1 << 20
	// maxNesting bounds the descent into literals that failed to parse.
	maxNesting = 4
)

// sourceCoordinates is the last-resort pass over the raw page source.
var sourceCoordinates = []fieldPattern{
	{record.Lat, regexp.MustCompile(`(?i)["']?\b(?:lat|latitude)\b["']?\s*[:=]\s*([+-]?\d+(?:\.\d+)?)`)},
	{record.Lon, regexp.MustCompile(`(?i)["']?\b(?:lon|lng|longitude)\b["']?\s*[:=]\s*([+-]?\d+(?:\.\d+)?)`)},
}

// EmbeddedJSON parses object literals found in inline scripts.
type EmbeddedJSON struct{}

// NewEmbeddedJSON creates the embedded JSON extractor.
func NewEmbeddedJSON() *EmbeddedJSON { return &EmbeddedJSON{} }

func (e *EmbeddedJSON) Source() record.Source { return record.SourceEmbeddedJSON }

func (e *EmbeddedJSON) Extract(ctx context.Context, _ models.VesselRecord, ev *Evidence) ([]record.Proposal, error) {
	var out []record.Proposal
	budget := maxCandidates
	for _, script := range InlineScripts([]byte(ev.HTML)) {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, parseLiterals(script, 0, &budget)...)
	}
	for _, p := range sourceCoordinates {
		if m := p.re.FindStringSubmatch(ev.HTML); m != nil {
			out = append(out, record.Propose(p.field, m[1]))
		}
	}
	return out, nil
}

// parseLiterals walks every parsable top-level literal in src. Literals
// that fail to parse (function bodies, template code) are searched for
// nested literals instead.
func parseLiterals(src string, depth int, budget *int) []record.Proposal {
	var out []record.Proposal
	for _, lit := range ObjectLiterals(src) {
		if *budget <= 0 {
			return out
		}
		*budget--
		if len(lit) > maxCandidateLen {
			continue
		}
		if doc, ok := decodeLenient([]byte(lit)); ok {
			out = append(out, Walk(doc)...)
			continue
		}
		if depth < maxNesting && len(lit) > 2 {
			out = append(out, parseLiterals(lit[1:len(lit)-1], depth+1, budget)...)
		}
	}
	return out
}

// decodeLenient tries strict JSON first, then JSON5 for unquoted keys,
// single quotes and trailing commas.
func decodeLenient(lit []byte) (any, bool) {
	if doc, err := DecodeJSON(lit); err == nil {
		return doc, true
	}
	var doc any
	if err := json5.Unmarshal(lit, &doc); err == nil {
		return doc, true
	}
	return nil, false
}

// InlineScripts returns the bodies of <script> elements without a src
// attribute whose type is JavaScript or JSON.
func InlineScripts(page []byte) []string {
	tokenizer := html.NewTokenizer(bytes.NewReader(page))
	var scripts []string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return scripts
		case html.StartTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "script" {
				continue
			}
			inline := true
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				switch string(key) {
				case "src":
					inline = false
				case "type":
					inline = inline && scriptType(string(val))
				}
			}
			if !inline {
				continue
			}
			if tokenizer.Next() == html.TextToken {
				if body := strings.TrimSpace(string(tokenizer.Text())); body != "" {
					scripts = append(scripts, body)
				}
			}
		}
	}
}

func scriptType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "", "module", "text/javascript", "application/javascript",
		"application/json", "application/ld+json":
		return true
	}
	return false
}

// ObjectLiterals returns the outermost brace-balanced {...} spans of src.
// Braces inside string literals and comments do not count.
func ObjectLiterals(src string) []string {
	var out []string
	depth := 0
	start := -1
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
					i += nl
				} else {
					i = len(src)
				}
			} else if i+1 < len(src) && src[i+1] == '*' {
				if end := strings.Index(src[i+2:], "*/"); end >= 0 {
					i += end + 3
				} else {
					i = len(src)
				}
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, src[start:i+1])
				start = -1
			}
		}
	}
	return out
}
