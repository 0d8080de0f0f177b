package debug

import (
	"fmt"
	"strconv"
	"strings"
)

type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// OptText is TextBlock for optional values, nil prints nothing.
func (tw TreeWriter) OptText(depth int, label string, value *string) {
	if value == nil {
		return
	}
	tw.TextBlock(depth, label, *value)
}

// Series prints a one-line summary of a float series: length plus up to max
// leading values.
func (tw TreeWriter) Series(depth int, label string, values []float64, max int) {
	shown := values
	ellipsis := ""
	if len(values) > max {
		shown = values[:max]
		ellipsis = " ..."
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	tw.Line(depth, "%s: [%d] %s%s", label, len(values), strings.Join(parts, " "), ellipsis)
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
