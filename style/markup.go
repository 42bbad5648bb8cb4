package style

import (
	"fmt"
	"strings"
)

// Segment is maximal run of characters sharing the same attributes.
type Segment struct {
	Text  string
	Attrs Attrs
}

// Compress merges consecutive characters with identical attributes.
func Compress(text []rune, attrs []Attrs) []Segment {
	var (
		segs  []Segment
		start int
	)
	for i := 1; i <= len(text); i++ {
		if i < len(text) && attrs[i] == attrs[start] {
			continue
		}
		segs = append(segs, Segment{Text: string(text[start:i]), Attrs: attrs[start]})
		start = i
	}
	return segs
}

// Render serializes segments into inline markup. Whitespace around a
// segment is kept outside of wrapping, blank segments are never wrapped.
func Render(segs []Segment, m Markup) string {
	var b strings.Builder
	for _, seg := range segs {
		core := strings.TrimFunc(seg.Text, IsSpace)
		if core == "" || seg.Attrs.Plain() {
			b.WriteString(seg.Text)
			continue
		}
		lead := seg.Text[:strings.IndexFunc(seg.Text, func(r rune) bool { return !IsSpace(r) })]
		trail := seg.Text[len(lead)+len(core):]

		out := core
		if seg.Attrs.Bold {
			out = fmt.Sprintf(m.Bold, out)
		}
		if seg.Attrs.Italic {
			out = fmt.Sprintf(m.Italic, out)
		}
		if seg.Attrs.Color != "" {
			out = fmt.Sprintf(m.Color, out, seg.Attrs.Color)
		}
		b.WriteString(lead)
		b.WriteString(out)
		b.WriteString(trail)
	}
	return b.String()
}
