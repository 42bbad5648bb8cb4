package style

import "testing"

func TestCompress(t *testing.T) {
	b := Attrs{Bold: true}
	text := []rune("ab cd")
	attrs := []Attrs{{}, {}, b, b, {}}

	segs := Compress(text, attrs)
	want := []Segment{{"ab", Attrs{}}, {" c", b}, {"d", Attrs{}}}
	if len(segs) != len(want) {
		t.Fatalf("Compress() = %+v, want %+v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], want[i])
		}
	}

	if got := Compress(nil, nil); len(got) != 0 {
		t.Errorf("Compress(nil) = %+v, want empty", got)
	}
}

func TestRender(t *testing.T) {
	m := DefaultOptions().markup

	tests := []struct {
		name string
		segs []Segment
		want string
	}{
		{"plain", []Segment{{"abc", Attrs{}}}, "abc"},
		{"blank styled", []Segment{{"a", Attrs{}}, {"  ", Attrs{Bold: true}}, {"b", Attrs{}}}, "a  b"},
		{"spaces outside", []Segment{{" mot ", Attrs{Italic: true}}}, ` \it{mot} `},
		{"all wraps", []Segment{{"x", Attrs{Bold: true, Italic: true, Color: "#e6007e"}}}, `\color{"\it{\bf{x}}", #e6007e}`},
		{"inner spaces kept", []Segment{{"a  b", Attrs{Bold: true}}}, `\bf{a  b}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.segs, m); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
