package unified

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/nicolagi/chunkdiff/internal/chunk"
	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/opcode"
)

const (
	tabWidth = 4

	ansiReverse = "\x1b[7m"
	ansiReset   = "\x1b[0m"
)

type SideBySideOptions struct {
	// Total width of each row, in terminal columns.
	Width int

	// Rows kept around the hidden middle of collapsible chunks. Negative
	// shows everything.
	ContextLines int

	// Highlight intraline changes with ANSI escapes.
	Color bool
}

type renderer struct {
	w      *bufio.Writer
	opts   SideBySideOptions
	digits int
	col    int
	err    error
}

// WriteSideBySide renders chunks in two columns, originals on the left.
// The gutter between the columns shows '|' for replaced lines, '<' for
// deleted ones, '>' for inserted ones, and '~' for lines only differing in
// indentation.
func WriteSideBySide(w io.Writer, chunks []chunk.Chunk, opts SideBySideOptions) error {
	if opts.Width <= 0 {
		opts.Width = 130
	}
	r := &renderer{w: bufio.NewWriter(w), opts: opts}
	var n int
	if len(chunks) > 0 {
		last := chunks[len(chunks)-1].Opcode
		n = max(last.OrigEnd, last.ModEnd)
	}
	r.digits = len(strconv.Itoa(n))
	r.col = (opts.Width - 3) / 2
	if r.col < r.digits+2 {
		r.col = r.digits + 2
	}
	for _, c := range chunks {
		r.chunk(c)
	}
	if r.err != nil {
		return r.err
	}
	return r.w.Flush()
}

func (r *renderer) chunk(c chunk.Chunk) {
	for _, m := range c.Moves {
		verb := "moved to"
		if m.Direction == chunk.MovedFrom {
			verb = "moved from"
		}
		r.printf("%*s lines %d-%d %s lines %d-%d\n", r.digits, "#", m.First, m.Last, verb, m.TargetFirst, m.TargetLast)
	}
	rows := c.Rows()
	ctx := r.opts.ContextLines
	if c.Collapsible && ctx >= 0 && rows > 2*ctx {
		r.rows(c, 0, ctx)
		r.fold(c, rows-2*ctx)
		r.rows(c, rows-ctx, rows)
		return
	}
	r.rows(c, 0, rows)
}

func (r *renderer) fold(c chunk.Chunk, hidden int) {
	label := fmt.Sprintf("%d unchanged lines", hidden)
	if hidden == 1 {
		label = "1 unchanged line"
	}
	if h := c.Header.Orig; h != nil {
		label += ": " + strings.TrimSpace(h.Text)
	} else if h := c.Header.Mod; h != nil {
		label += ": " + strings.TrimSpace(h.Text)
	}
	r.printf("%s\n", runewidth.Truncate(fmt.Sprintf("%*s %s", r.digits, "⋯", label), r.opts.Width, "…"))
}

func (r *renderer) rows(c chunk.Chunk, from, to int) {
	if from >= to {
		return
	}
	orig, mod, err := c.Expand(from, to)
	if err != nil {
		r.err = err
		return
	}
	indented := make(map[int]bool)
	for _, ind := range c.Indentation {
		indented[ind.OrigLine] = true
	}
	for k := 0; k < to-from; k++ {
		var o, m *chunk.Line
		if k < len(orig) {
			o = &orig[k]
		}
		if k < len(mod) {
			m = &mod[k]
		}
		gutter := ' '
		switch {
		case c.Tag == opcode.Equal:
		case o != nil && indented[o.Number]:
			gutter = '~'
		case o != nil && m != nil:
			gutter = '|'
		case o != nil:
			gutter = '<'
		case m != nil:
			gutter = '>'
		}
		left := r.cell(o, c.Tag, spansFor(c.OrigSpans, from+k))
		right := r.cell(m, c.Tag, spansFor(c.ModSpans, from+k))
		r.printf("%s", strings.TrimRight(fmt.Sprintf("%s %c %s", left, gutter, right), " "))
		r.printf("\n")
	}
}

func spansFor(spans []intraline.Span, line int) []intraline.Span {
	var out []intraline.Span
	for _, s := range spans {
		if s.Line == line {
			out = append(out, s)
		}
	}
	return out
}

func highlighted(spans []intraline.Span, column int) bool {
	for _, s := range spans {
		if s.Start <= column && column < s.End {
			return true
		}
	}
	return false
}

// cell renders a numbered line into exactly r.col terminal columns,
// expanding tabs and truncating what does not fit.
func (r *renderer) cell(l *chunk.Line, tag opcode.Tag, spans []intraline.Span) string {
	if l == nil {
		return strings.Repeat(" ", r.col)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*d ", r.digits, l.Number)
	avail := r.col - r.digits - 1
	used := 0
	color := r.opts.Color && tag != opcode.Equal
	on := false
	for i, c := range []rune(l.Text) {
		if color {
			want := tag != opcode.Replace || highlighted(spans, i)
			if want != on {
				if want {
					b.WriteString(ansiReverse)
				} else {
					b.WriteString(ansiReset)
				}
				on = want
			}
		}
		s, w := string(c), runewidth.RuneWidth(c)
		if c == '\t' {
			w = tabWidth - used%tabWidth
			s = strings.Repeat(" ", w)
		}
		if used+w > avail {
			break
		}
		b.WriteString(s)
		used += w
	}
	if on {
		b.WriteString(ansiReset)
	}
	b.WriteString(strings.Repeat(" ", avail-used))
	return b.String()
}

func (r *renderer) printf(format string, a ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, a...)
}
