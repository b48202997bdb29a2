// Package insertion decides whether a batch of document changes looks like an
// accepted code suggestion, and extracts the inserted text.
package insertion

import (
	"strings"
	"unicode/utf8"
)

// Change is a single edit: Text replaced RangeLength characters of the
// document. Pure insertions have RangeLength 0.
type Change struct {
	Text        string `json:"text"`
	RangeLength int    `json:"rangeLength"`
}

const (
	DefaultMinChars         = 3
	DefaultSignificantChars = 15
)

// codeMarkers are case-sensitive fragments that suggest the text is code.
var codeMarkers = []string{
	"function",
	"const",
	"let",
	"var",
	"class",
	"import",
	"export",
	"=>",
	"if (",
	"for (",
	"while (",
	"return ",
	"console.",
	"document.",
	"window.",
}

// Detector holds the size thresholds for Significant.
type Detector struct {
	// MinChars is the shortest insertion considered at all.
	MinChars int
	// SignificantChars is the length above which any insertion counts even
	// without a newline or code marker.
	SignificantChars int
}

// DefaultDetector returns a Detector with the default thresholds.
func DefaultDetector() Detector {
	return Detector{MinChars: DefaultMinChars, SignificantChars: DefaultSignificantChars}
}

// Significant reports whether any change is a pure insertion of at least
// MinChars characters that either contains a code marker, spans lines, or is
// longer than SignificantChars.
func (d Detector) Significant(changes []Change) bool {
	for _, c := range changes {
		if d.significant(c) {
			return true
		}
	}
	return false
}

func (d Detector) significant(c Change) bool {
	n := utf8.RuneCountInString(c.Text)
	if n < d.MinChars || c.RangeLength != 0 {
		return false
	}
	return HasCodeMarker(c.Text) || strings.Contains(c.Text, "\n") || n > d.SignificantChars
}

// HasCodeMarker reports whether text contains one of the code markers.
func HasCodeMarker(text string) bool {
	for _, m := range codeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Snippet joins the text of all changes in order.
func Snippet(changes []Change) string {
	var b strings.Builder
	for _, c := range changes {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Diff returns the single change that turns before into after, found by
// trimming their common prefix and suffix. RangeLength counts runes of before
// that were replaced. Identical inputs yield the zero Change.
func Diff(before, after string) Change {
	a := []rune(before)
	b := []rune(after)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	return Change{
		Text:        string(b[prefix : len(b)-suffix]),
		RangeLength: len(a) - prefix - suffix,
	}
}
