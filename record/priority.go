package record

import "sort"

// Source names the evidence source an extractor reads.
type Source string

const (
	SourceNetwork       Source = "network"
	SourceDirectAPI     Source = "direct_api"
	SourceJSGlobals     Source = "js_globals"
	SourceDOMAttributes Source = "dom_attributes"
	SourceDOMText       Source = "dom_text"
	SourceEmbeddedJSON  Source = "embedded_json"

	// SourceCaller marks identifiers supplied with the request.
	SourceCaller Source = "caller"
	// SourceSecondary marks fields filled from the secondary data-source API.
	SourceSecondary Source = "secondary"
)

// Priority is the declared reconciliation ranking, highest first. Both
// providers share it. A field set by an earlier source is never replaced by
// a later one.
var Priority = []Source{
	SourceNetwork,
	SourceDirectAPI,
	SourceJSGlobals,
	SourceDOMAttributes,
	SourceDOMText,
	SourceEmbeddedJSON,
}

// Rank returns the position of s in Priority, or len(Priority) for sources
// outside the ranking.
func Rank(s Source) int {
	for i, p := range Priority {
		if p == s {
			return i
		}
	}
	return len(Priority)
}

// Ordered returns sources sorted by Rank. Unranked sources keep their
// relative order after the ranked ones.
func Ordered(sources []Source) []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i]) < Rank(out[j])
	})
	return out
}
