// Package moves finds blocks of lines that were moved rather than deleted
// and inserted, and lines whose only change is their indentation.
package moves

import (
	"context"
	"fmt"
	"sort"

	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/zeebo/xxh3"
)

// Precedence decides what a line that qualifies both as part of a move and
// as an indentation change is reported as.
type Precedence uint8

const (
	PreferIndentation Precedence = iota
	PreferMoves
)

func (p Precedence) String() string {
	switch p {
	case PreferIndentation:
		return "indentation"
	case PreferMoves:
		return "moves"
	default:
		return fmt.Sprintf("Precedence(%d)", uint8(p))
	}
}

// ParsePrecedence is the inverse of Precedence.String.
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "indentation":
		return PreferIndentation, nil
	case "moves":
		return PreferMoves, nil
	}
	return 0, fmt.Errorf("github.com/nicolagi/chunkdiff/internal/moves.ParsePrecedence: unknown precedence %q", s)
}

// Lines occurring more often than this on either changed side do not
// start a move; runs can still extend through them.
const maxOccurrences = 16

// How many loop iterations pass between context checks.
const checkEvery = 1 << 10

type Options struct {
	// Shortest block reported as a move.
	MinLines int

	// Blocks left unpaired after exact matching are paired if the
	// similarity of their contents reaches this ratio. 1 or more means
	// exact matches only.
	SimilarityThreshold float64

	Precedence Precedence
}

// Move pairs the deleted lines [OrigStart, OrigEnd) with the inserted lines
// [ModStart, ModEnd).
type Move struct {
	OrigStart, OrigEnd int
	ModStart, ModEnd   int
}

func (m Move) Len() int { return m.OrigEnd - m.OrigStart }

// Indent reports that line Orig became line Mod with only its leading
// white space changed.
type Indent struct {
	Orig, Mod             int
	OrigIndent, ModIndent string
}

type Result struct {
	Moves   []Move
	Indents []Indent
}

// changed describes the changed lines of one side: for each line, the index
// of the opcode it belongs to, or -1.
type changed struct {
	s     *seq.Sequence
	op    []int
	norm  []string
	index map[uint64][]int
}

func newChanged(s *seq.Sequence, ops []opcode.Opcode, origSide bool) *changed {
	c := &changed{
		s:     s,
		op:    make([]int, s.Len()),
		norm:  make([]string, s.Len()),
		index: make(map[uint64][]int),
	}
	for i := range c.op {
		c.op[i] = -1
	}
	for k, op := range ops {
		from, to := op.ModStart, op.ModEnd
		if origSide {
			from, to = op.OrigStart, op.OrigEnd
		}
		if op.Tag == opcode.Equal {
			continue
		}
		for i := from; i < to; i++ {
			c.op[i] = k
			c.norm[i] = seq.StripSpace(s.Text(i))
			if c.norm[i] != "" {
				h := xxh3.HashString(c.norm[i])
				c.index[h] = append(c.index[h], i)
			}
		}
	}
	return c
}

func (c *changed) pairs(i int, other *changed, j int) bool {
	return i < len(c.op) && j < len(other.op) &&
		c.op[i] != -1 && other.op[j] != -1 &&
		c.op[i] != other.op[j] &&
		c.norm[i] == other.norm[j]
}

// Detect is a pure function of its inputs. It only fails if ctx is done
// first.
func Detect(ctx context.Context, ops []opcode.Opcode, orig, mod *seq.Sequence, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	minLines := opts.MinLines
	if minLines < 1 {
		minLines = 1
	}
	indents := detectIndents(ops, orig, mod)
	o := newChanged(orig, ops, true)
	m := newChanged(mod, ops, false)

	var excludeOrig, excludeMod map[int]bool
	if opts.Precedence == PreferIndentation {
		excludeOrig = make(map[int]bool)
		excludeMod = make(map[int]bool)
		for _, in := range indents {
			excludeOrig[in.Orig] = true
			excludeMod[in.Mod] = true
		}
	}

	candidates, err := exactRuns(ctx, o, m, minLines, excludeOrig, excludeMod)
	if err != nil {
		return Result{}, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.OrigStart != b.OrigStart {
			return a.OrigStart < b.OrigStart
		}
		return a.ModStart < b.ModStart
	})
	claimedOrig := make([]bool, orig.Len())
	claimedMod := make([]bool, mod.Len())
	var moves []Move
	accept := func(mv Move) {
		for i := mv.OrigStart; i < mv.OrigEnd; i++ {
			if claimedOrig[i] {
				return
			}
		}
		for j := mv.ModStart; j < mv.ModEnd; j++ {
			if claimedMod[j] {
				return
			}
		}
		for i := mv.OrigStart; i < mv.OrigEnd; i++ {
			claimedOrig[i] = true
		}
		for j := mv.ModStart; j < mv.ModEnd; j++ {
			claimedMod[j] = true
		}
		moves = append(moves, mv)
	}
	for k, mv := range candidates {
		if k%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		accept(mv)
	}
	if opts.SimilarityThreshold > 0 && opts.SimilarityThreshold < 1 {
		similar, err := similarBlocks(ctx, ops, o, m, minLines, opts.SimilarityThreshold, excludeOrig, excludeMod)
		if err != nil {
			return Result{}, err
		}
		for _, mv := range similar {
			accept(mv)
		}
	}
	sort.Slice(moves, func(i, j int) bool {
		return moves[i].OrigStart < moves[j].OrigStart
	})

	if opts.Precedence == PreferMoves {
		kept := indents[:0]
		for _, in := range indents {
			if !claimedOrig[in.Orig] && !claimedMod[in.Mod] {
				kept = append(kept, in)
			}
		}
		indents = kept
	}
	if len(indents) == 0 {
		indents = nil
	}
	return Result{Moves: moves, Indents: indents}, nil
}

// exactRuns returns the maximal runs of deleted lines that reappear, in the
// same order, among the inserted lines. Runs are seeded from lines that are
// rare on both sides and extended both ways; every pair of lines joins at
// most one run, so the work is bounded by maxOccurrences times the number
// of changed lines, plus the length of the runs found.
func exactRuns(ctx context.Context, o, m *changed, minLines int, excludeOrig, excludeMod map[int]bool) ([]Move, error) {
	ok := func(i, j int) bool {
		return i >= 0 && j >= 0 && o.pairs(i, m, j) && !excludeOrig[i] && !excludeMod[j]
	}
	// Pairs already part of a run, by diagonal and original line.
	type pair struct{ diag, i int }
	seen := make(map[pair]bool)
	var runs []Move
	steps := 0
	for i := 0; i < len(o.op); i++ {
		if o.op[i] == -1 || o.norm[i] == "" {
			continue
		}
		h := xxh3.HashString(o.norm[i])
		hits := m.index[h]
		if len(hits) > maxOccurrences || len(o.index[h]) > maxOccurrences {
			continue
		}
		for _, j := range hits {
			if steps++; steps%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if !ok(i, j) || seen[pair{i - j, i}] {
				continue
			}
			start, end := i, i+1
			for ok(start-1, j-(i-start)-1) && o.norm[start-1] != "" && o.op[start-1] == o.op[i] && m.op[j-(i-start)-1] == m.op[j] {
				start--
			}
			for ok(end, j+(end-i)) && o.op[end] == o.op[i] && m.op[j+(end-i)] == m.op[j] {
				end++
			}
			for k := start; k < end; k++ {
				seen[pair{i - j, k}] = true
			}
			steps += end - start
			if end-start >= minLines {
				js := j - (i - start)
				runs = append(runs, Move{start, end, js, js + end - start})
			}
		}
	}
	return runs, nil
}

type similar struct {
	mv    Move
	ratio float64
}

// similarBlocks pairs whole deleted blocks with whole inserted blocks whose
// contents are similar enough.
func similarBlocks(ctx context.Context, ops []opcode.Opcode, o, m *changed, minLines int, threshold float64, excludeOrig, excludeMod map[int]bool) ([]Move, error) {
	var deleted, inserted []opcode.Opcode
	for _, op := range ops {
		switch {
		case op.Tag == opcode.Delete && op.OrigLen() >= minLines && !anyIn(excludeOrig, op.OrigStart, op.OrigEnd):
			deleted = append(deleted, op)
		case op.Tag == opcode.Insert && op.ModLen() >= minLines && !anyIn(excludeMod, op.ModStart, op.ModEnd):
			inserted = append(inserted, op)
		}
	}
	var cands []similar
	for _, d := range deleted {
		for _, in := range inserted {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sm := difflib.NewMatcher(o.norm[d.OrigStart:d.OrigEnd], m.norm[in.ModStart:in.ModEnd])
			if r := sm.Ratio(); r >= threshold {
				cands = append(cands, similar{Move{d.OrigStart, d.OrigEnd, in.ModStart, in.ModEnd}, r})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ratio != cands[j].ratio {
			return cands[i].ratio > cands[j].ratio
		}
		return cands[i].mv.OrigStart < cands[j].mv.OrigStart
	})
	out := make([]Move, len(cands))
	for i, c := range cands {
		out[i] = c.mv
	}
	return out, nil
}

func anyIn(set map[int]bool, from, to int) bool {
	for i := from; i < to; i++ {
		if set[i] {
			return true
		}
	}
	return false
}
