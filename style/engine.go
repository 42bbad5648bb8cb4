package style

// Result describes how single text node was styled.
type Result struct {
	Text     string
	Compact  string
	Match    Match
	Segments []Segment
	Skipped  bool
}

// Style aligns text against the page and returns it with minimal markup.
// Text without any non-whitespace character is returned unchanged and
// marked as skipped.
func (p *Page) Style(text string) Result {
	runes := []rune(text)
	proj := Project(runes)
	if proj.Len() == 0 {
		return Result{Text: text, Skipped: true}
	}

	m := LongestMatch(p.compact, proj.Runes)
	attrs := MapAttributes(runes, proj, p.chars, m)
	Smooth(runes, attrs)

	markerEnd := 0
	if _, _, full, ok := markerSpan(p.opts.marker, text); ok {
		markerEnd = full
	}
	Reduce(runes, attrs, markerEnd, p.opts)

	segs := Compress(runes, attrs)
	return Result{
		Text:     Render(segs, p.opts.markup),
		Compact:  string(proj.Runes),
		Match:    m,
		Segments: segs,
	}
}
