package opcode

import (
	"context"

	"github.com/nicolagi/chunkdiff/internal/myers"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

// Config bounds the cost of Diff.
type Config struct {
	// Inputs where either side has more lines than this are diffed with the
	// anchored heuristic rather than the exact algorithm. Zero or negative
	// means always exact.
	LargeFileLineThreshold int

	// Inputs where either side has more lines than this are refused with
	// ErrInputTooLarge. Zero or negative means no limit.
	MaxInputLines int
}

// UsesFallback reports whether sequences of n and m lines take the anchored
// path.
func (c Config) UsesFallback(n, m int) bool {
	return c.LargeFileLineThreshold > 0 && (n > c.LargeFileLineThreshold || m > c.LargeFileLineThreshold)
}

// Diff computes the opcodes turning orig into mod, comparing lines by key.
func Diff(ctx context.Context, orig, mod *seq.Sequence, c Config) ([]Opcode, error) {
	const method = "Diff"
	n, m := orig.Len(), mod.Len()
	if c.MaxInputLines > 0 && (n > c.MaxInputLines || m > c.MaxInputLines) {
		return nil, errorf(method, "%d and %d lines, limit is %d: %w", n, m, c.MaxInputLines, ErrInputTooLarge)
	}
	a, b := myers.Intern(keys(orig), keys(mod))
	var (
		matches []myers.Match
		err     error
	)
	if c.UsesFallback(n, m) {
		matches, err = myers.Anchored(ctx, a, b)
	} else {
		matches, err = myers.Diff(ctx, a, b)
	}
	if err != nil {
		return nil, err
	}
	ops := shift(Generate(matches, n, m), a, b, blanks(orig), blanks(mod))
	if err := Validate(ops, n, m); err != nil {
		// Would be a bug in this package.
		return nil, errorf(method, "%v", err)
	}
	return ops, nil
}

func keys(s *seq.Sequence) []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.Key(i)
	}
	return out
}

func blanks(s *seq.Sequence) []bool {
	out := make([]bool, s.Len())
	for i := range out {
		out[i] = seq.IsBlank(s.Key(i))
	}
	return out
}
