// Package intraline finds the changed character ranges within lines that a
// line diff reports as replaced.
package intraline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/nicolagi/chunkdiff/internal/myers"
	"github.com/sergi/go-diff/diffmatchpatch"
)

type Granularity uint8

const (
	// Char compares lines rune by rune.
	Char Granularity = iota
	// Word compares lines by Unicode word segments (UAX #29).
	Word
)

func (g Granularity) String() string {
	switch g {
	case Char:
		return "char"
	case Word:
		return "word"
	default:
		return fmt.Sprintf("Granularity(%d)", uint8(g))
	}
}

// ParseGranularity is the inverse of Granularity.String.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "char":
		return Char, nil
	case "word":
		return Word, nil
	}
	return 0, fmt.Errorf("github.com/nicolagi/chunkdiff/internal/intraline.ParseGranularity: unknown granularity %q", s)
}

type Options struct {
	Granularity Granularity

	// A pair of lines where the changed share of characters exceeds this
	// ratio is highlighted as a whole. Zero disables the check.
	MaxChangeRatio float64

	// Shift and merge edits so that highlights fall on natural boundaries
	// rather than on coincidentally equal characters.
	SemanticCleanup bool

	// Lines longer than this many runes on either side are highlighted as a
	// whole without being compared. Zero disables the check.
	MaxLineLength int
}

// Span marks the rune columns [Start, End) of line Line as changed. Line is
// an offset within the replaced block of its side.
type Span struct {
	Line  int
	Start int
	End   int
	Whole bool `json:",omitempty"`
}

// Result holds the spans of both sides of a replaced block, sorted by line
// and column, never overlapping.
type Result struct {
	Orig []Span
	Mod  []Span
}

// Highlight aligns orig and mod by position and computes spans for each
// pair. Lines without a counterpart get no spans.
func Highlight(ctx context.Context, orig, mod []string, opts Options) (Result, error) {
	var r Result
	n := len(orig)
	if len(mod) < n {
		n = len(mod)
	}
	dmp := diffmatchpatch.New()
	for i := 0; i < n; i++ {
		o, m, err := pair(ctx, dmp, orig[i], mod[i], opts)
		if err != nil {
			return Result{}, err
		}
		for _, s := range o {
			s.Line = i
			r.Orig = append(r.Orig, s)
		}
		for _, s := range m {
			s.Line = i
			r.Mod = append(r.Mod, s)
		}
	}
	return r, nil
}

func pair(ctx context.Context, dmp *diffmatchpatch.DiffMatchPatch, o, m string, opts Options) (origSpans, modSpans []Span, err error) {
	if o == m {
		return nil, nil, nil
	}
	if opts.MaxLineLength > 0 {
		on, mn := utf8.RuneCountInString(o), utf8.RuneCountInString(m)
		if on > opts.MaxLineLength || mn > opts.MaxLineLength {
			return whole(on), whole(mn), nil
		}
	}
	diffs, err := tokenDiff(ctx, o, m, opts.Granularity)
	if err != nil {
		return nil, nil, err
	}
	if opts.SemanticCleanup {
		diffs = cleanup(dmp, diffs)
	}
	var oc, mc, changed int
	for _, d := range diffs {
		k := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oc += k
			mc += k
		case diffmatchpatch.DiffDelete:
			origSpans = appendSpan(origSpans, oc, oc+k)
			oc += k
			changed += k
		case diffmatchpatch.DiffInsert:
			modSpans = appendSpan(modSpans, mc, mc+k)
			mc += k
			changed += k
		}
	}
	if opts.MaxChangeRatio > 0 && float64(changed) > opts.MaxChangeRatio*float64(oc+mc) {
		return whole(oc), whole(mc), nil
	}
	return origSpans, modSpans, nil
}

// cleanup runs semantic cleanup on a copy of diffs and keeps the result only
// if no multi-byte character was split in the process.
func cleanup(dmp *diffmatchpatch.DiffMatchPatch, diffs []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	cleaned := dmp.DiffCleanupSemantic(append([]diffmatchpatch.Diff(nil), diffs...))
	for _, d := range cleaned {
		if !utf8.ValidString(d.Text) {
			return diffs
		}
	}
	return cleaned
}

func whole(n int) []Span {
	if n == 0 {
		return nil
	}
	return []Span{{Start: 0, End: n, Whole: true}}
}

func appendSpan(spans []Span, start, end int) []Span {
	if start == end {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].End == start {
		spans[n-1].End = end
		return spans
	}
	return append(spans, Span{Start: start, End: end})
}

// tokenDiff diffs the token sequences of o and m and expresses the result
// as diff-match-patch operations.
func tokenDiff(ctx context.Context, o, m string, g Granularity) ([]diffmatchpatch.Diff, error) {
	otok, mtok := tokenize(o, g), tokenize(m, g)
	a, b := myers.Intern(otok, mtok)
	matches, err := myers.Diff(ctx, a, b)
	if err != nil {
		return nil, err
	}
	var diffs []diffmatchpatch.Diff
	emit := func(t diffmatchpatch.Operation, tokens []string) {
		if len(tokens) > 0 {
			diffs = append(diffs, diffmatchpatch.Diff{Type: t, Text: strings.Join(tokens, "")})
		}
	}
	i, j := 0, 0
	for _, x := range matches {
		emit(diffmatchpatch.DiffDelete, otok[i:x.A])
		emit(diffmatchpatch.DiffInsert, mtok[j:x.B])
		emit(diffmatchpatch.DiffEqual, otok[x.A:x.A+x.Len])
		i, j = x.A+x.Len, x.B+x.Len
	}
	emit(diffmatchpatch.DiffDelete, otok[i:])
	emit(diffmatchpatch.DiffInsert, mtok[j:])
	return diffs, nil
}

func tokenize(s string, g Granularity) []string {
	var out []string
	if g == Word {
		iter := words.FromString(s)
		for iter.Next() {
			out = append(out, iter.Value())
		}
		return out
	}
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
