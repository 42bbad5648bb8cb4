package style

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// IsSpace reports whether rune is treated as whitespace for alignment.
// Text layers sometimes use BEL as word separator, so it counts too.
func IsSpace(r rune) bool {
	return r == '\a' || unicode.IsSpace(r)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Projection is whitespace-stripped view of a text with back references
// from compact positions to original rune positions.
type Projection struct {
	Runes []rune
	Index []int
}

// Project builds compact projection of text runes.
func Project(text []rune) Projection {
	p := Projection{
		Runes: make([]rune, 0, len(text)),
		Index: make([]int, 0, len(text)),
	}
	for i, r := range text {
		if IsSpace(r) {
			continue
		}
		p.Runes = append(p.Runes, r)
		p.Index = append(p.Index, i)
	}
	return p
}

// Len returns number of compact runes.
func (p Projection) Len() int {
	return len(p.Runes)
}

// markerSpan locates leading list marker in text. It returns rune range of
// the marker glyphs proper (first capture group when pattern has one) and
// rune offset where the whole match ends, including trailing whitespace.
// ok is false when there is no marker.
func markerSpan(re *regexp.Regexp, text string) (start, end, full int, ok bool) {
	if re == nil {
		return 0, 0, 0, false
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil || loc[0] != 0 || loc[1] == 0 {
		return 0, 0, 0, false
	}
	bs, be := loc[0], loc[1]
	if len(loc) >= 4 && loc[2] >= 0 {
		bs, be = loc[2], loc[3]
	}
	return utf8.RuneCountInString(text[:bs]), utf8.RuneCountInString(text[:be]),
		utf8.RuneCountInString(text[:loc[1]]), true
}
