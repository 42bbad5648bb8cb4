package style

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedTable is returned (wrapped) when style table cannot be parsed.
var ErrMalformedTable = errors.New("malformed style table")

const (
	overrideSeparator = "||"
	overrideFieldSep  = "|"
	utf8BOM           = "\ufeff"
)

// Column names of the style table header.
const (
	ColPhrase    = "phrase"
	ColFont      = "font_family"
	ColSize      = "size"
	ColColor     = "color_hex"
	ColTag       = "style_tag"
	ColOverrides = "overrides"
)

var requiredColumns = []string{ColPhrase, ColFont, ColSize, ColColor, ColTag, ColOverrides}

// Override is token scoped style exception layered onto row dominant style.
type Override struct {
	Text  string
	Font  string
	Size  float64
	Color string
	Tag   string
}

// Row describes single line of text detected on the page.
type Row struct {
	Phrase    string
	Font      string
	Size      float64
	Color     string
	Tag       string
	Overrides []Override
}

// ReadTable parses style table. Rows with empty phrase are dropped.
func ReadTable(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header", ErrMalformedTable)
		}
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedTable, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, name)
		}
	}

	var rows []Row
	for n := 2; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedTable, n, err)
		}
		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedTable, n, err)
		}
		if row.Phrase == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string, cols map[string]int) (Row, error) {
	field := func(name string) string {
		return rec[cols[name]]
	}

	row := Row{
		Phrase: field(ColPhrase),
		Font:   strings.TrimSpace(field(ColFont)),
		Color:  canonicalColor(field(ColColor)),
		Tag:    strings.TrimSpace(field(ColTag)),
	}
	if row.Phrase == "" {
		return row, nil
	}

	var err error
	if row.Size, err = parseSize(field(ColSize)); err != nil {
		return row, err
	}
	row.Overrides = parseOverrides(field(ColOverrides))
	return row, nil
}

// parseOverrides decodes "text|font|size|color|tag||..." list. Incomplete
// tokens carry no usable style and are ignored.
func parseOverrides(s string) []Override {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var res []Override
	for _, item := range strings.Split(s, overrideSeparator) {
		parts := strings.Split(item, overrideFieldSep)
		if len(parts) < 5 {
			continue
		}
		o := Override{
			Text:  strings.TrimSpace(parts[0]),
			Font:  strings.TrimSpace(parts[1]),
			Color: canonicalColor(parts[3]),
			Tag:   strings.TrimSpace(parts[4]),
		}
		if o.Text == "" {
			continue
		}
		// size is informational only
		o.Size, _ = parseSize(parts[2])
		res = append(res, o)
	}
	return res
}

func parseSize(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	return v, nil
}

func canonicalColor(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
