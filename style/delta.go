package style

// Reduce removes attributes which are the node's ambient style, so only
// real deviations survive to markup. markerEnd is rune offset where leading
// list marker (with its trailing whitespace) ends, 0 when there is none.
func Reduce(text []rune, attrs []Attrs, markerEnd int, opts *Options) {
	for i := 0; i < markerEnd && i < len(attrs); i++ {
		attrs[i] = Attrs{}
	}

	valid := make([]int, 0, len(text))
	for i := markerEnd; i < len(text); i++ {
		if !IsSpace(text[i]) {
			valid = append(valid, i)
		}
	}

	if len(valid) > 0 {
		allBold, allItalic := true, true
		for _, i := range valid {
			allBold = allBold && attrs[i].Bold
			allItalic = allItalic && attrs[i].Italic
		}
		if allBold {
			for i := range attrs {
				attrs[i].Bold = false
			}
		}
		if allItalic {
			for i := range attrs {
				attrs[i].Italic = false
			}
		}
		reduceColor(attrs, valid, opts)
	}

	// near-black is never emitted explicitly
	for i := range attrs {
		if opts.IsNearBlack(attrs[i].Color) {
			attrs[i].Color = ""
		}
	}
}

func reduceColor(attrs []Attrs, valid []int, opts *Options) {
	var (
		order  []string
		counts = make(map[string]int)
	)
	for _, i := range valid {
		c := attrs[i].Color
		if c == "" {
			continue
		}
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}

	switch len(order) {
	case 0:
		return
	case 1:
		clearColor(attrs, func(string) bool { return true })
		return
	}

	for _, c := range order {
		if opts.IsNearBlack(c) {
			clearColor(attrs, opts.IsNearBlack)
			return
		}
	}

	// no black present, most frequent color is the baseline
	baseline := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[baseline] {
			baseline = c
		}
	}
	clearColor(attrs, func(c string) bool { return c == baseline })
}

func clearColor(attrs []Attrs, match func(string) bool) {
	for i := range attrs {
		if attrs[i].Color != "" && match(attrs[i].Color) {
			attrs[i].Color = ""
		}
	}
}
