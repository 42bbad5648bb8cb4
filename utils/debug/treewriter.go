// Package debug renders human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines. Zero value is not usable, use
// NewTreeWriter.
type TreeWriter struct {
	w *strings.Builder
}

// Run is a piece of text with a short tag describing its properties.
type Run struct {
	Tag  string
	Text string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Runs writes label followed by one line per run, untagged runs are marked
// with "-".
func (tw TreeWriter) Runs(depth int, label string, runs []Run) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(":\n")
	for _, r := range runs {
		tag := r.Tag
		if tag == "" {
			tag = "-"
		}
		tw.indent(depth + 1)
		fmt.Fprintf(tw.w, "[%s] %s\n", tag, encodeText(r.Text))
	}
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
