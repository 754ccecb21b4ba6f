package opcode

import (
	"context"
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/seq"
)

// Provenance tells, for one line of an interdiff, whether it differs
// between the two revisions and whether the revision's own diff against its
// original had changed it.
type Provenance uint8

const (
	Unchanged Provenance = iota
	ChangedVsOther
	ChangedVsOriginal
	Both
)

func provenance(vsOther, vsOriginal bool) Provenance {
	switch {
	case vsOther && vsOriginal:
		return Both
	case vsOther:
		return ChangedVsOther
	case vsOriginal:
		return ChangedVsOriginal
	default:
		return Unchanged
	}
}

func (p Provenance) ChangedVsOther() bool    { return p == ChangedVsOther || p == Both }
func (p Provenance) ChangedVsOriginal() bool { return p == ChangedVsOriginal || p == Both }

func (p Provenance) String() string {
	switch p {
	case Unchanged:
		return "unchanged"
	case ChangedVsOther:
		return "changed-vs-other"
	case ChangedVsOriginal:
		return "changed-vs-original"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Provenance(%d)", uint8(p))
	}
}

// ParseProvenance is the inverse of Provenance.String.
func ParseProvenance(s string) (Provenance, error) {
	for p := Unchanged; p <= Both; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, errorf("ParseProvenance", "unknown provenance %q", s)
}

// Side is a previously computed diff: its opcodes and the two sequences
// they relate.
type Side struct {
	Opcodes   []Opcode
	Orig, Mod *seq.Sequence
}

// InterdiffResult relates the modified sequence of the first side (the
// original side of the interdiff) to the modified sequence of the second.
type InterdiffResult struct {
	Opcodes []Opcode

	// One entry per line of the first side's modified sequence.
	OrigProvenance []Provenance

	// One entry per line of the second side's modified sequence.
	ModProvenance []Provenance
}

// Interdiff diffs two revisions of a change against each other. Both sides
// are validated first; a side whose opcodes do not partition its own
// sequences yields ErrMalformedInterdiffInput.
func Interdiff(ctx context.Context, a, b Side, c Config) (*InterdiffResult, error) {
	const method = "Interdiff"
	if err := Check(a.Opcodes, a.Orig, a.Mod); err != nil {
		return nil, errorf(method, "first side: %v: %w", err, ErrMalformedInterdiffInput)
	}
	if err := Check(b.Opcodes, b.Orig, b.Mod); err != nil {
		return nil, errorf(method, "second side: %v: %w", err, ErrMalformedInterdiffInput)
	}
	ops, err := Diff(ctx, a.Mod, b.Mod, c)
	if err != nil {
		return nil, err
	}
	origVsOther := make([]bool, a.Mod.Len())
	modVsOther := make([]bool, b.Mod.Len())
	for _, op := range ops {
		if op.Tag == Equal {
			continue
		}
		mark(origVsOther, op.OrigStart, op.OrigEnd)
		mark(modVsOther, op.ModStart, op.ModEnd)
	}
	return &InterdiffResult{
		Opcodes:        ops,
		OrigProvenance: combine(origVsOther, changedLines(a)),
		ModProvenance:  combine(modVsOther, changedLines(b)),
	}, nil
}

// changedLines marks the lines of s.Mod that s's own diff inserted or
// replaced.
func changedLines(s Side) []bool {
	changed := make([]bool, s.Mod.Len())
	for _, op := range s.Opcodes {
		if op.Tag == Insert || op.Tag == Replace {
			mark(changed, op.ModStart, op.ModEnd)
		}
	}
	return changed
}

func mark(b []bool, from, to int) {
	for i := from; i < to; i++ {
		b[i] = true
	}
}

func combine(vsOther, vsOriginal []bool) []Provenance {
	out := make([]Provenance, len(vsOther))
	for i := range out {
		out[i] = provenance(vsOther[i], vsOriginal[i])
	}
	return out
}
