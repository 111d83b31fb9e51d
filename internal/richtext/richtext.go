// Package richtext renders post text with byte-range facets as HTML.
package richtext

import (
	"net/url"
	"sort"
	"strings"

	"sequoia-server/internal/atproto"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape escapes &, <, > and " for use in HTML text and quoted attributes.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Link targets for mention and tag facets.
const (
	ProfileBaseURL = atproto.AppBaseURL + "/profile/"
	HashtagBaseURL = atproto.AppBaseURL + "/hashtag/"
)

// Render converts text and its facets to HTML. Facet ranges are byte offsets
// into the UTF-8 encoding of text and are processed in ascending start order.
//
// Malformed ranges never panic: offsets are clamped to the text, a range that
// starts inside an earlier facet is trimmed to begin where that facet ended,
// and a range left empty (or reversed) is skipped.
func Render(text string, facets []atproto.Facet) string {
	if len(facets) == 0 {
		return Escape(text)
	}

	sorted := make([]atproto.Facet, len(facets))
	copy(sorted, facets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index.ByteStart < sorted[j].Index.ByteStart
	})

	b := []byte(text)
	var sb strings.Builder
	sb.Grow(len(text) + 64*len(sorted))

	lastEnd := 0
	for _, f := range sorted {
		start := clamp(f.Index.ByteStart, lastEnd, len(b))
		end := clamp(f.Index.ByteEnd, 0, len(b))
		if end <= start {
			continue
		}

		if start > lastEnd {
			sb.WriteString(Escape(decode(b[lastEnd:start])))
		}
		writeFacet(&sb, decode(b[start:end]), f.Features)
		lastEnd = end
	}

	if lastEnd < len(b) {
		sb.WriteString(Escape(decode(b[lastEnd:])))
	}
	return sb.String()
}

// writeFacet renders the facet text according to its first feature only.
func writeFacet(sb *strings.Builder, text string, features []atproto.Feature) {
	if len(features) == 0 {
		sb.WriteString(Escape(text))
		return
	}

	var href string
	switch f := features[0]; f.Type {
	case atproto.FeatureLink:
		if !safeLink(f.URI) {
			sb.WriteString(Escape(text))
			return
		}
		href = f.URI
	case atproto.FeatureMention:
		href = ProfileBaseURL + f.DID
	case atproto.FeatureTag:
		href = HashtagBaseURL + f.Tag
	default:
		sb.WriteString(Escape(text))
		return
	}

	sb.WriteString(`<a href="`)
	sb.WriteString(Escape(href))
	sb.WriteString(`" target="_blank" rel="noopener noreferrer">`)
	sb.WriteString(Escape(text))
	sb.WriteString(`</a>`)
}

// safeLink reports whether uri may be used as an href. Only web and mail
// links are rendered as anchors.
func safeLink(uri string) bool {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	}
	return false
}

// decode turns a byte slice back into text, replacing sequences cut mid-rune.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
