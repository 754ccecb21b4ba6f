// Package opcode turns matches between two line sequences into a complete
// list of edit operations, and computes interdiffs between two such lists.
package opcode

import (
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/myers"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

type Tag uint8

const (
	Equal Tag = iota
	Insert
	Delete
	Replace
)

func (t Tag) String() string {
	switch t {
	case Equal:
		return "equal"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// ParseTag is the inverse of Tag.String.
func ParseTag(s string) (Tag, error) {
	for t := Equal; t <= Replace; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errorf("ParseTag", "unknown tag %q", s)
}

// Opcode describes what happened to the half-open line ranges
// [OrigStart, OrigEnd) and [ModStart, ModEnd).
type Opcode struct {
	Tag                Tag
	OrigStart, OrigEnd int
	ModStart, ModEnd   int
}

func (op Opcode) OrigLen() int { return op.OrigEnd - op.OrigStart }
func (op Opcode) ModLen() int  { return op.ModEnd - op.ModStart }

func (op Opcode) String() string {
	return fmt.Sprintf("%v [%d,%d) [%d,%d)", op.Tag, op.OrigStart, op.OrigEnd, op.ModStart, op.ModEnd)
}

// swapped exchanges the roles of the two sides.
func (op Opcode) swapped() Opcode {
	t := op.Tag
	switch t {
	case Insert:
		t = Delete
	case Delete:
		t = Insert
	}
	return Opcode{Tag: t, OrigStart: op.ModStart, OrigEnd: op.ModEnd, ModStart: op.OrigStart, ModEnd: op.OrigEnd}
}

func tagFor(origLen, modLen int) Tag {
	switch {
	case origLen > 0 && modLen > 0:
		return Replace
	case origLen > 0:
		return Delete
	default:
		return Insert
	}
}

// Generate converts matches, sorted and non-overlapping as returned by the
// myers package, into opcodes covering [0,n) and [0,m). Gaps between matches
// become Insert, Delete or Replace.
func Generate(matches []myers.Match, n, m int) []Opcode {
	var ops []Opcode
	i, j := 0, 0
	gap := func(a, b int) {
		if a > i || b > j {
			ops = append(ops, Opcode{tagFor(a-i, b-j), i, a, j, b})
		}
	}
	for _, mt := range matches {
		gap(mt.A, mt.B)
		ops = append(ops, Opcode{Equal, mt.A, mt.A + mt.Len, mt.B, mt.B + mt.Len})
		i, j = mt.A+mt.Len, mt.B+mt.Len
	}
	gap(n, m)
	return normalize(ops)
}

// normalize drops empty opcodes and merges neighbors that are both Equal or
// both changes.
func normalize(ops []Opcode) []Opcode {
	out := ops[:0]
	for _, op := range ops {
		if op.OrigLen() == 0 && op.ModLen() == 0 {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if (last.Tag == Equal) == (op.Tag == Equal) {
				last.OrigEnd = op.OrigEnd
				last.ModEnd = op.ModEnd
				if last.Tag != Equal {
					last.Tag = tagFor(last.OrigLen(), last.ModLen())
				}
				continue
			}
		}
		out = append(out, op)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks that ops partition [0,n) and [0,m) in order, with no
// gaps, no empty opcodes, and tags consistent with their ranges.
func Validate(ops []Opcode, n, m int) error {
	const method = "Validate"
	i, j := 0, 0
	for k, op := range ops {
		if op.OrigStart != i || op.ModStart != j {
			return errorf(method, "opcode %d (%v) starts at %d,%d, want %d,%d", k, op, op.OrigStart, op.ModStart, i, j)
		}
		if op.OrigEnd < op.OrigStart || op.ModEnd < op.ModStart {
			return errorf(method, "opcode %d (%v) has a negative range", k, op)
		}
		ol, ml := op.OrigLen(), op.ModLen()
		switch op.Tag {
		case Equal:
			if ol != ml || ol == 0 {
				return errorf(method, "opcode %d (%v) is not a proper equal range", k, op)
			}
		case Insert:
			if ol != 0 || ml == 0 {
				return errorf(method, "opcode %d (%v) is not a proper insertion", k, op)
			}
		case Delete:
			if ml != 0 || ol == 0 {
				return errorf(method, "opcode %d (%v) is not a proper deletion", k, op)
			}
		case Replace:
			if ol == 0 || ml == 0 {
				return errorf(method, "opcode %d (%v) is not a proper replacement", k, op)
			}
		default:
			return errorf(method, "opcode %d has unknown tag %v", k, op.Tag)
		}
		i, j = op.OrigEnd, op.ModEnd
	}
	if i != n || j != m {
		return errorf(method, "opcodes end at %d,%d, want %d,%d", i, j, n, m)
	}
	return nil
}

// Check validates ops against the two sequences they were computed from,
// including that Equal ranges really pair equal lines.
func Check(ops []Opcode, orig, mod *seq.Sequence) error {
	if err := Validate(ops, orig.Len(), mod.Len()); err != nil {
		return err
	}
	for _, op := range ops {
		if op.Tag != Equal {
			continue
		}
		for k := 0; k < op.OrigLen(); k++ {
			if orig.Key(op.OrigStart+k) != mod.Key(op.ModStart+k) {
				return errorf("Check", "opcode %v pairs different lines %d and %d", op, op.OrigStart+k, op.ModStart+k)
			}
		}
	}
	return nil
}
