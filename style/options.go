// Package style recovers typographic attributes of extracted text from the
// page style table and renders them as minimal inline markup.
package style

import (
	"fmt"
	"regexp"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultMarkerPattern = `^[\s\p{Z}\a\v\x{85}]*([a-zA-Z0-9]{1,3}[.)]|[●•\-–➝])(?:[\s\p{Z}\a\v\x{85}]+|$)`
	DefaultBoldForm      = `\bf{%s}`
	DefaultItalicForm    = `\it{%s}`
	DefaultColorForm     = `\color{"%s", %s}`
)

var (
	DefaultNearBlack  = []string{"#181715", "#231f20", "#000000"}
	DefaultBoldTags   = []string{"bold", "medium", "black", "heavy"}
	DefaultItalicTags = []string{"italic", "oblique", "italique"}
)

// Markup holds fmt patterns used to wrap styled segments. Color pattern
// receives wrapped text first and hex value second.
type Markup struct {
	Bold   string
	Italic string
	Color  string
}

// Options is immutable engine configuration. Create it with NewOptions or
// DefaultOptions and share freely between goroutines.
type Options struct {
	marker     *regexp.Regexp
	nearBlack  []colorful.Color
	boldTags   []string
	italicTags []string
	markup     Markup
}

// Settings is plain description of Options as it comes from configuration.
type Settings struct {
	MarkerPattern string
	NearBlack     []string
	BoldTags      []string
	ItalicTags    []string
	Markup        Markup
}

// DefaultSettings returns settings matching built-in behavior.
func DefaultSettings() Settings {
	return Settings{
		MarkerPattern: DefaultMarkerPattern,
		NearBlack:     append([]string(nil), DefaultNearBlack...),
		BoldTags:      append([]string(nil), DefaultBoldTags...),
		ItalicTags:    append([]string(nil), DefaultItalicTags...),
		Markup: Markup{
			Bold:   DefaultBoldForm,
			Italic: DefaultItalicForm,
			Color:  DefaultColorForm,
		},
	}
}

// DefaultOptions returns options with built-in settings. It panics only if
// defaults are broken.
func DefaultOptions() *Options {
	opts, err := NewOptions(DefaultSettings())
	if err != nil {
		panic(err)
	}
	return opts
}

// NewOptions validates settings and prepares immutable options.
func NewOptions(s Settings) (*Options, error) {
	opts := &Options{markup: s.Markup}

	var err error
	if opts.marker, err = CompileMarker(s.MarkerPattern); err != nil {
		return nil, err
	}
	for _, hex := range s.NearBlack {
		c, err := ParseColor(hex)
		if err != nil {
			return nil, err
		}
		opts.nearBlack = append(opts.nearBlack, c)
	}
	opts.boldTags = lowerAll(s.BoldTags)
	opts.italicTags = lowerAll(s.ItalicTags)

	if opts.markup.Bold == "" {
		opts.markup.Bold = DefaultBoldForm
	}
	if opts.markup.Italic == "" {
		opts.markup.Italic = DefaultItalicForm
	}
	if opts.markup.Color == "" {
		opts.markup.Color = DefaultColorForm
	}
	return opts, nil
}

// CompileMarker compiles list marker pattern. Empty pattern disables marker
// detection.
func CompileMarker(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad marker pattern %q: %w", pattern, err)
	}
	return re, nil
}

// ParseColor parses hex color specification ("#rgb" or "#rrggbb").
func ParseColor(hex string) (colorful.Color, error) {
	hex = strings.TrimSpace(hex)
	if len(hex) == 4 && hex[0] == '#' {
		// colorful only understands long form
		hex = string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	if len(hex) != 7 || hex[0] != '#' {
		return colorful.Color{}, fmt.Errorf("bad color %q: expected #rrggbb", hex)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("bad color %q: %w", hex, err)
	}
	return c, nil
}

// IsNearBlack reports whether color belongs to near-black palette. Unset
// color is never near-black, it is simply absent.
func (o *Options) IsNearBlack(color string) bool {
	if color == "" {
		return false
	}
	c, err := ParseColor(color)
	if err != nil {
		return false
	}
	for _, b := range o.nearBlack {
		if b.Hex() == c.Hex() {
			return true
		}
	}
	return false
}

// IsBold reports whether style tag denotes bold weight.
func (o *Options) IsBold(tag string) bool {
	return containsAny(tag, o.boldTags)
}

// IsItalic reports whether style tag denotes italic shape.
func (o *Options) IsItalic(tag string) bool {
	return containsAny(tag, o.italicTags)
}

// Fingerprint returns stable textual description of options, suitable for
// detecting configuration changes between runs.
func (o *Options) Fingerprint() string {
	var b strings.Builder
	if o.marker != nil {
		b.WriteString(o.marker.String())
	}
	b.WriteByte(0)
	for _, c := range o.nearBlack {
		b.WriteString(c.Hex())
		b.WriteByte(',')
	}
	b.WriteByte(0)
	b.WriteString(strings.Join(o.boldTags, ","))
	b.WriteByte(0)
	b.WriteString(strings.Join(o.italicTags, ","))
	b.WriteByte(0)
	b.WriteString(o.markup.Bold)
	b.WriteByte(0)
	b.WriteString(o.markup.Italic)
	b.WriteByte(0)
	b.WriteString(o.markup.Color)
	return b.String()
}

func containsAny(s string, subs []string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
