package style

import (
	"strings"
	"testing"
)

func attrsOf(colors ...string) []Attrs {
	res := make([]Attrs, len(colors))
	for i, c := range colors {
		res[i].Color = c
	}
	return res
}

func colorsOf(attrs []Attrs) []string {
	res := make([]string, len(attrs))
	for i, a := range attrs {
		res[i] = a.Color
	}
	return res
}

func TestReduce_Colors(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"none", []string{"", "", ""}, []string{"", "", ""}},
		{"uniform accent", []string{"#e6007e", "", "#e6007e"}, []string{"", "", ""}},
		{"black is baseline", []string{"#231f20", "#e6007e", "#181715"}, []string{"", "#e6007e", ""}},
		{"majority is baseline", []string{"#ff0000", "#0000ff", "#0000ff"}, []string{"#ff0000", "", ""}},
		{"tie picks first seen", []string{"#ff0000", "#0000ff"}, []string{"", "#0000ff"}},
		{"black palette case", []string{"#000000", "#FFFFFF"}, []string{"", "#FFFFFF"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := []rune(strings.Repeat("x", len(tt.in)))
			attrs := attrsOf(tt.in...)
			Reduce(text, attrs, 0, opts)
			got := colorsOf(attrs)
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Reduce() colors = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestReduce_BoldItalic(t *testing.T) {
	opts := DefaultOptions()
	text := []rune("ab cd")

	attrs := []Attrs{{Bold: true}, {Bold: true, Italic: true}, {}, {Bold: true}, {Bold: true}}
	Reduce(text, attrs, 0, opts)
	for i, a := range attrs {
		if a.Bold {
			t.Errorf("attrs[%d].Bold must be cleared when all valid characters are bold", i)
		}
	}
	if !attrs[1].Italic {
		t.Error("partial italic must survive")
	}
}

func TestReduce_MarkerExcludedFromValid(t *testing.T) {
	opts := DefaultOptions()
	text := []rune("1. ab")
	attrs := []Attrs{{}, {}, {}, {Bold: true}, {Bold: true}}
	Reduce(text, attrs, 3, opts)
	for i, a := range attrs {
		if !a.Plain() {
			t.Errorf("attrs[%d] = %+v, want plain", i, a)
		}
	}
}

func TestReduce_SafetyPassWithoutValid(t *testing.T) {
	opts := DefaultOptions()
	text := []rune("   ")
	attrs := []Attrs{{Color: "#000000"}, {}, {}}
	Reduce(text, attrs, 0, opts)
	if attrs[0].Color != "" {
		t.Errorf("near-black must always be cleared, got %q", attrs[0].Color)
	}
}

func TestSmooth(t *testing.T) {
	b := Attrs{Bold: true}
	text := []rune(" a  b c ")
	attrs := []Attrs{{}, b, {}, {}, b, {}, {}, {}}
	Smooth(text, attrs)

	want := []Attrs{{}, b, b, b, b, {}, {}, {}}
	for i := range want {
		if attrs[i] != want[i] {
			t.Errorf("attrs[%d] = %+v, want %+v", i, attrs[i], want[i])
		}
	}
}
