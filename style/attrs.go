package style

// Attrs is style triple of a single character.
type Attrs struct {
	Bold   bool
	Italic bool
	Color  string
}

// Plain reports whether attributes describe ambient style.
func (a Attrs) Plain() bool {
	return !a.Bold && !a.Italic && a.Color == ""
}

// MapAttributes copies page styles onto node characters covered by match.
// Characters outside of the matched run keep ambient style.
func MapAttributes(text []rune, proj Projection, page []Char, m Match) []Attrs {
	attrs := make([]Attrs, len(text))
	for i := 0; i < m.Size; i++ {
		attrs[proj.Index[m.B+i]] = page[m.A+i].Attrs()
	}
	return attrs
}

// Smooth lets whitespace between two identically styled characters take
// their style so runs are not broken on every space. Leading and trailing
// whitespace is left alone.
func Smooth(text []rune, attrs []Attrs) {
	for i := 1; i < len(text)-1; i++ {
		if !IsSpace(text[i]) {
			continue
		}
		l := i - 1
		for l >= 0 && IsSpace(text[l]) {
			l--
		}
		r := i + 1
		for r < len(text) && IsSpace(text[r]) {
			r++
		}
		if l < 0 || r >= len(text) {
			continue
		}
		if attrs[l] == attrs[r] {
			attrs[i] = attrs[l]
		}
	}
}
