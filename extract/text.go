package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// VisibleText extracts the text inside <body>, one text node per line,
// skipping <script>, <style> and <noscript> content.
func VisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimRight(buf.String(), "\n")
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte('\n')
				}
			}
		}
	}
}

// lines splits text into trimmed, non-empty lines.
func lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
