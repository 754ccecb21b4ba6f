// Package chunk groups opcodes into renderable units, attaching line
// numbers, intraline highlights, move and indentation annotations.
package chunk

import (
	"fmt"
	"sort"

	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/moves"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

type Direction uint8

const (
	// MovedTo annotates deleted lines that reappear elsewhere.
	MovedTo Direction = iota
	// MovedFrom annotates inserted lines that were deleted elsewhere.
	MovedFrom
)

func (d Direction) String() string {
	switch d {
	case MovedTo:
		return "moved-to"
	case MovedFrom:
		return "moved-from"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// MoveAnnotation links lines First..Last (1-based, inclusive) of this
// chunk's side with lines TargetFirst..TargetLast on the other side, held by
// chunk TargetChunk. MovedTo annotations refer to original lines, MovedFrom
// annotations to modified lines.
type MoveAnnotation struct {
	Direction   Direction
	First, Last int
	TargetChunk int
	TargetFirst int
	TargetLast  int
}

// IndentationChange reports a pair of lines (1-based) that only differ in
// leading white space.
type IndentationChange struct {
	OrigLine, ModLine     int
	OrigIndent, ModIndent string
}

// Line is a numbered line of one side of a chunk.
type Line struct {
	Number     int
	Text       string
	Provenance opcode.Provenance
}

// Header is the closest line preceding the hidden part of a collapsible
// chunk that looks like the start of a declaration.
type Header struct {
	Orig, Mod *Line
}

// Chunk is the rendering unit for one opcode. Chunks never change after
// Generate returns them; lines are read from the sequences they share with
// their artifact.
type Chunk struct {
	Index  int
	Tag    opcode.Tag
	Opcode opcode.Opcode

	// Intraline highlights. Span lines are offsets within the chunk.
	OrigSpans []intraline.Span
	ModSpans  []intraline.Span

	Moves       []MoveAnnotation
	Indentation []IndentationChange

	// Set on replaced blocks whose lines only differ in white space.
	WhitespaceOnly bool

	// Long equal chunks can be shown as a few lines of context around a
	// hidden middle.
	Collapsible bool
	Header      Header

	orig, mod         *seq.Sequence
	origProv, modProv []opcode.Provenance
}

// OrigFirst is the 1-based number of the first original line. For chunks
// without original lines it is the number the next original line would have.
func (c Chunk) OrigFirst() int { return c.Opcode.OrigStart + 1 }
func (c Chunk) ModFirst() int  { return c.Opcode.ModStart + 1 }
func (c Chunk) OrigLen() int   { return c.Opcode.OrigLen() }
func (c Chunk) ModLen() int    { return c.Opcode.ModLen() }

// Rows is how many rows a side-by-side rendering of the chunk needs.
func (c Chunk) Rows() int {
	if c.OrigLen() > c.ModLen() {
		return c.OrigLen()
	}
	return c.ModLen()
}

func (c Chunk) OrigLines() []Line {
	return lines(c.orig, c.origProv, c.Opcode.OrigStart, c.Opcode.OrigStart, c.Opcode.OrigEnd)
}

func (c Chunk) ModLines() []Line {
	return lines(c.mod, c.modProv, c.Opcode.ModStart, c.Opcode.ModStart, c.Opcode.ModEnd)
}

// Expand returns rows [from, to) of the chunk. Each side is cut to the lines
// it has.
func (c Chunk) Expand(from, to int) (orig, mod []Line, err error) {
	if from < 0 || to < from || to > c.Rows() {
		return nil, nil, errorf("Chunk.Expand", "[%d,%d) of chunk %d with %d rows: %w", from, to, c.Index, c.Rows(), ErrRangeOutOfBounds)
	}
	clip := func(n int) int {
		if n > to {
			return to
		}
		return n
	}
	ofrom, mfrom := c.Opcode.OrigStart+min(from, c.OrigLen()), c.Opcode.ModStart+min(from, c.ModLen())
	orig = lines(c.orig, c.origProv, c.Opcode.OrigStart, ofrom, c.Opcode.OrigStart+clip(c.OrigLen()))
	mod = lines(c.mod, c.modProv, c.Opcode.ModStart, mfrom, c.Opcode.ModStart+clip(c.ModLen()))
	return orig, mod, nil
}

// lines reads [from, to) of s; prov, if not nil, is indexed from base.
func lines(s *seq.Sequence, prov []opcode.Provenance, base, from, to int) []Line {
	if from >= to {
		return nil
	}
	out := make([]Line, 0, to-from)
	for i := from; i < to; i++ {
		l := Line{Number: i + 1, Text: s.Text(i)}
		if prov != nil {
			l.Provenance = prov[i-base]
		}
		out = append(out, l)
	}
	return out
}

// Input collects everything known about a diff before chunking.
type Input struct {
	Opcodes   []opcode.Opcode
	Orig, Mod *seq.Sequence

	// Intraline results of Replace opcodes, by opcode index.
	Intraline map[int]intraline.Result

	Moves moves.Result

	// Only for interdiffs, one entry per line of each side.
	OrigProvenance []opcode.Provenance
	ModProvenance  []opcode.Provenance
}

type Options struct {
	// Equal chunks longer than twice this are collapsible. Negative values
	// disable collapsing.
	ContextLines int
}

// Generate emits one chunk per opcode, in document order.
func Generate(in Input, opts Options) []Chunk {
	if len(in.Opcodes) == 0 {
		return nil
	}
	chunks := make([]Chunk, len(in.Opcodes))
	for k, op := range in.Opcodes {
		c := Chunk{
			Index:  k,
			Tag:    op.Tag,
			Opcode: op,
			orig:   in.Orig,
			mod:    in.Mod,
		}
		if in.OrigProvenance != nil {
			c.origProv = in.OrigProvenance[op.OrigStart:op.OrigEnd]
		}
		if in.ModProvenance != nil {
			c.modProv = in.ModProvenance[op.ModStart:op.ModEnd]
		}
		switch op.Tag {
		case opcode.Replace:
			r := in.Intraline[k]
			c.OrigSpans, c.ModSpans = r.Orig, r.Mod
			c.WhitespaceOnly = whitespaceOnly(in.Orig, in.Mod, op)
		case opcode.Equal:
			if opts.ContextLines >= 0 && op.OrigLen() > 2*opts.ContextLines {
				c.Collapsible = true
				c.Header = header(in.Orig, in.Mod, op, opts.ContextLines)
			}
		}
		chunks[k] = c
	}
	byOrig := func(i int) int {
		return sort.Search(len(in.Opcodes), func(k int) bool {
			return in.Opcodes[k].OrigEnd > i
		})
	}
	byMod := func(j int) int {
		return sort.Search(len(in.Opcodes), func(k int) bool {
			return in.Opcodes[k].ModEnd > j
		})
	}
	for _, mv := range in.Moves.Moves {
		from, to := byOrig(mv.OrigStart), byMod(mv.ModStart)
		chunks[from].Moves = append(chunks[from].Moves, MoveAnnotation{
			Direction:   MovedTo,
			First:       mv.OrigStart + 1,
			Last:        mv.OrigEnd,
			TargetChunk: to,
			TargetFirst: mv.ModStart + 1,
			TargetLast:  mv.ModEnd,
		})
		chunks[to].Moves = append(chunks[to].Moves, MoveAnnotation{
			Direction:   MovedFrom,
			First:       mv.ModStart + 1,
			Last:        mv.ModEnd,
			TargetChunk: from,
			TargetFirst: mv.OrigStart + 1,
			TargetLast:  mv.OrigEnd,
		})
	}
	for _, ind := range in.Moves.Indents {
		c := &chunks[byOrig(ind.Orig)]
		c.Indentation = append(c.Indentation, IndentationChange{
			OrigLine:   ind.Orig + 1,
			ModLine:    ind.Mod + 1,
			OrigIndent: ind.OrigIndent,
			ModIndent:  ind.ModIndent,
		})
		c.OrigSpans = dropLine(c.OrigSpans, ind.Orig-c.Opcode.OrigStart)
		c.ModSpans = dropLine(c.ModSpans, ind.Mod-c.Opcode.ModStart)
	}
	return chunks
}

func dropLine(spans []intraline.Span, line int) []intraline.Span {
	var out []intraline.Span
	for _, s := range spans {
		if s.Line != line {
			out = append(out, s)
		}
	}
	return out
}

func whitespaceOnly(orig, mod *seq.Sequence, op opcode.Opcode) bool {
	if op.OrigLen() != op.ModLen() {
		return false
	}
	for k := 0; k < op.OrigLen(); k++ {
		if seq.CollapseSpace(orig.Text(op.OrigStart+k)) != seq.CollapseSpace(mod.Text(op.ModStart+k)) {
			return false
		}
	}
	return true
}

// Validate checks that replaying chunks reconstructs both sequences.
func Validate(chunks []Chunk, orig, mod *seq.Sequence) error {
	const method = "Validate"
	var i, j int
	for _, c := range chunks {
		for _, l := range c.OrigLines() {
			if l.Number != i+1 || i >= orig.Len() || l.Text != orig.Text(i) {
				return errorf(method, "chunk %d: original line %d does not match", c.Index, i+1)
			}
			i++
		}
		for _, l := range c.ModLines() {
			if l.Number != j+1 || j >= mod.Len() || l.Text != mod.Text(j) {
				return errorf(method, "chunk %d: modified line %d does not match", c.Index, j+1)
			}
			j++
		}
	}
	if i != orig.Len() || j != mod.Len() {
		return errorf(method, "chunks cover %d and %d lines, want %d and %d", i, j, orig.Len(), mod.Len())
	}
	return nil
}
