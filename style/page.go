package style

import "slices"

// Char is style of a single non-whitespace page character. Empty Color
// means ambient document color.
type Char struct {
	Rune   rune
	Bold   bool
	Italic bool
	Color  string
}

// Attrs returns style triple of the character.
func (c Char) Attrs() Attrs {
	return Attrs{Bold: c.Bold, Italic: c.Italic, Color: c.Color}
}

// Page is read-only style sequence of the whole page, built once and used
// to style every content node of that page.
type Page struct {
	chars   []Char
	compact []rune
	opts    *Options
}

// NewPage flattens style rows into per-character sequence covering every
// non-whitespace character of every row in order.
func NewPage(rows []Row, opts *Options) *Page {
	if opts == nil {
		opts = DefaultOptions()
	}
	p := &Page{opts: opts}
	for _, row := range rows {
		p.chars = append(p.chars, rowChars(row, opts)...)
	}
	p.compact = make([]rune, len(p.chars))
	for i, c := range p.chars {
		p.compact[i] = c.Rune
	}
	return p
}

// Len returns number of styled characters on the page.
func (p *Page) Len() int {
	return len(p.chars)
}

func rowChars(row Row, opts *Options) []Char {
	phrase := []rune(row.Phrase)

	base := Attrs{Bold: opts.IsBold(row.Tag), Italic: opts.IsItalic(row.Tag), Color: canonicalColor(row.Color)}
	attrs := make([]Attrs, len(phrase))
	for i := range attrs {
		attrs[i] = base
	}

	for _, o := range row.Overrides {
		oa := Attrs{Bold: opts.IsBold(o.Tag), Italic: opts.IsItalic(o.Tag), Color: canonicalColor(o.Color)}
		for _, m := range findToken(phrase, []rune(o.Text)) {
			for i := m[0]; i < m[1]; i++ {
				attrs[i] = oa
			}
		}
	}

	// markers never carry emphasis
	if start, end, _, ok := markerSpan(opts.marker, row.Phrase); ok {
		for i := start; i < end; i++ {
			attrs[i] = Attrs{}
		}
	}

	chars := make([]Char, 0, len(phrase))
	for i, r := range phrase {
		if IsSpace(r) {
			continue
		}
		chars = append(chars, Char{Rune: r, Bold: attrs[i].Bold, Italic: attrs[i].Italic, Color: attrs[i].Color})
	}
	return chars
}

// findToken returns non-overlapping occurrences of token in phrase, left to
// right. Token starting (ending) with word character does not match when
// preceded (followed) by another word character.
func findToken(phrase, token []rune) [][2]int {
	n := len(token)
	if n == 0 || n > len(phrase) {
		return nil
	}
	checkStart, checkEnd := isWord(token[0]), isWord(token[n-1])

	var res [][2]int
	for i := 0; i+n <= len(phrase); {
		if !slices.Equal(phrase[i:i+n], token) ||
			(checkStart && i > 0 && isWord(phrase[i-1])) ||
			(checkEnd && i+n < len(phrase) && isWord(phrase[i+n])) {
			i++
			continue
		}
		res = append(res, [2]int{i, i + n})
		i += n
	}
	return res
}
