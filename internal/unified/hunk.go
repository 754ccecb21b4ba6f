package unified

import (
	"fmt"
	"io"
)

// line is one output line of a unified diff: ' ', '-' or '+' and the text.
type line struct {
	op   byte
	text string
}

// hunk accumulates lines until enough common lines follow the last change.
// See https://www.gnu.org/software/diffutils/manual/html_node/Hunks.html.
type hunk struct {
	// Zero-based offsets and line counts per side, as in "@@ -15,3 +17,5 @@".
	origOffset, origCount int
	modOffset, modCount   int

	lines []line

	// Common lines since the last change. With c lines of context, a run
	// of 2c+1 common lines closes the hunk: c trail this hunk, c lead the
	// next, and at least one is hidden.
	common  int
	context int

	err error
}

func newHunk(origOffset, modOffset int, leading []line, context int) *hunk {
	n := len(leading)
	return &hunk{
		origOffset: origOffset - n,
		origCount:  n,
		modOffset:  modOffset - n,
		modCount:   n,
		lines:      leading,
		context:    context,
	}
}

func (h *hunk) add(l line) {
	h.lines = append(h.lines, l)
	switch l.op {
	case ' ':
		h.common++
		h.origCount++
		h.modCount++
	case '-':
		h.common = 0
		h.origCount++
	case '+':
		h.common = 0
		h.modCount++
	}
}

func (h *hunk) complete() bool {
	return h.common > 2*h.context
}

// trim drops the common lines beyond the trailing context and returns them.
func (h *hunk) trim() []line {
	extra := h.common - h.context
	if extra <= 0 {
		return nil
	}
	cut := len(h.lines) - extra
	dropped := h.lines[cut:]
	h.lines = h.lines[:cut]
	h.origCount -= extra
	h.modCount -= extra
	h.common = h.context
	return dropped
}

// GNU diff names an empty range by the line before it.
func location(offset, count int) string {
	switch count {
	case 0:
		return fmt.Sprintf("%d,0", offset)
	case 1:
		return fmt.Sprintf("%d", offset+1)
	default:
		return fmt.Sprintf("%d,%d", offset+1, count)
	}
}

func (h *hunk) writeTo(w io.Writer) error {
	h.printf(w, "@@ -%s +%s @@\n", location(h.origOffset, h.origCount), location(h.modOffset, h.modCount))
	for _, l := range h.lines {
		h.printf(w, "%c%s\n", l.op, l.text)
	}
	return h.err
}

func (h *hunk) printf(w io.Writer, format string, a ...interface{}) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(w, format, a...)
}
