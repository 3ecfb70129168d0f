// Package transcript renders recognized segments and writes transcript files.
package transcript

import (
	"fmt"
	"math"
	"strings"

	"live-transcriber/internal/domain"
)

// FormatTimestamp renders an offset as MM:SS.ff, minutes floored and the
// remaining seconds zero-padded to width 5 with two decimals.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := math.Floor(seconds / 60)
	rest := seconds - minutes*60
	return fmt.Sprintf("%02d:%05.2f", int(minutes), rest)
}

// FormatLine renders one segment as "[MM:SS.ff] text".
func FormatLine(seg domain.Segment) string {
	return fmt.Sprintf("[%s] %s", FormatTimestamp(seg.Start.Seconds()), seg.Text)
}

// Transcript is an append-only sequence of rendered lines.
type Transcript struct {
	lines []string
}

// Append adds one rendered line.
func (t *Transcript) Append(line string) {
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the rendered lines in arrival order.
func (t *Transcript) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Len returns the number of lines.
func (t *Transcript) Len() int {
	return len(t.lines)
}

// Text joins all lines with newlines, without a trailing newline.
func (t *Transcript) Text() string {
	return strings.Join(t.lines, "\n")
}
