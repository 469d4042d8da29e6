package models

import "strings"

// SpanKind distinguishes plain text from hyperlinks inside a RichText.
type SpanKind string

const (
	SpanText SpanKind = "text"
	SpanLink SpanKind = "link"
)

// Span is a run of text, optionally pointing at a URL.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
	URL  string   `json:"url,omitempty"`
}

// RichText is the only markup a bot message may carry: plain text
// interleaved with allow-listed links.
type RichText []Span

// Plain flattens the spans into text, rendering links as "label (url)"
// unless the label already names the target.
func (r RichText) Plain() string {
	var b strings.Builder
	for _, s := range r {
		b.WriteString(s.Text)
		if s.Kind == SpanLink && s.URL != s.Text && s.URL != "mailto:"+s.Text {
			b.WriteString(" (")
			b.WriteString(s.URL)
			b.WriteString(")")
		}
	}
	return b.String()
}

// Links returns the link spans in order.
func (r RichText) Links() []Span {
	var links []Span
	for _, s := range r {
		if s.Kind == SpanLink {
			links = append(links, s)
		}
	}
	return links
}
