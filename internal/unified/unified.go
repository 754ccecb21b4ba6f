package unified

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nicolagi/chunkdiff/internal/chunk"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

const noNewline = "\n\\ No newline at end of file"

type Options struct {
	ContextLines int

	// If both are empty, the "---" and "+++" lines are omitted.
	OrigName, ModName string
}

// String wraps Write to return a string instead of writing it to a writer.
func String(chunks []chunk.Chunk, orig, mod *seq.Sequence, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, chunks, orig, mod, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the chunks of the diff of orig and mod as a unified diff.
// Nothing is written if there are no differences.
func Write(w io.Writer, chunks []chunk.Chunk, orig, mod *seq.Sequence, opts Options) error {
	lines := diffLines(chunks, orig, mod)
	changed := false
	for _, l := range lines {
		if l.op != ' ' {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	if opts.OrigName != "" || opts.ModName != "" {
		if _, err := fmt.Fprintf(w, "--- %s\n+++ %s\n", opts.OrigName, opts.ModName); err != nil {
			return err
		}
	}
	return unified(w, lines, opts.ContextLines)
}

// diffLines lists every line of both sequences. The last line of a
// sequence not ending with a newline carries the marker diff uses for it.
func diffLines(chunks []chunk.Chunk, orig, mod *seq.Sequence) []line {
	var lines []line
	origLast, modLast := orig.Len(), mod.Len()
	tail := func(s *seq.Sequence, number, last int) string {
		if number == last && !s.FinalNewline() {
			return noNewline
		}
		return ""
	}
	for _, c := range chunks {
		ol, ml := c.OrigLines(), c.ModLines()
		if c.Tag == opcode.Equal {
			for k := range ol {
				o, m := ol[k], ml[k]
				ot, mt := tail(orig, o.Number, origLast), tail(mod, m.Number, modLast)
				if ot != mt {
					// Equal but for the newline at the end.
					lines = append(lines, line{'-', o.Text + ot}, line{'+', m.Text + mt})
					continue
				}
				lines = append(lines, line{' ', o.Text + ot})
			}
			continue
		}
		for _, o := range ol {
			lines = append(lines, line{'-', o.Text + tail(orig, o.Number, origLast)})
		}
		for _, m := range ml {
			lines = append(lines, line{'+', m.Text + tail(mod, m.Number, modLast)})
		}
	}
	return lines
}

func unified(w io.Writer, lines []line, context int) error {
	if context < 0 {
		context = 0
	}

	// Outside of a hunk, cur is nil and the latest common lines wait in
	// leading, to open the next hunk with.
	var cur *hunk
	leading := newRing[line](context)

	var origOffset, modOffset int
	for _, l := range lines {
		switch {
		case cur != nil:
			cur.add(l)
			if cur.complete() {
				for _, c := range cur.trim() {
					leading.push(c)
				}
				if err := cur.writeTo(w); err != nil {
					return err
				}
				cur = nil
			}
		case l.op == ' ':
			leading.push(l)
		default:
			cur = newHunk(origOffset, modOffset, leading.drain(), context)
			cur.add(l)
		}
		if l.op != '+' {
			origOffset++
		}
		if l.op != '-' {
			modOffset++
		}
	}
	if cur != nil {
		cur.trim()
		return cur.writeTo(w)
	}
	return nil
}
