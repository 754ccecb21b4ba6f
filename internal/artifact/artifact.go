// Package artifact assembles the complete, immutable result of a diff or
// interdiff computation, and serializes it for persistent storage.
package artifact

import (
	"context"
	"fmt"
	"io"

	"github.com/nicolagi/chunkdiff/internal/chunk"
	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/moves"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

type Kind uint8

const (
	KindDiff Kind = iota
	KindInterdiff
)

func (k Kind) String() string {
	switch k {
	case KindDiff:
		return "diff"
	case KindInterdiff:
		return "interdiff"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Options controls everything computed on top of the opcodes.
type Options struct {
	Sequence    seq.Options
	Opcode      opcode.Config
	Intraline   intraline.Options
	DetectMoves bool
	Moves       moves.Options
	Chunk       chunk.Options
}

// Artifact is never modified after Build returns it, so it can be shared
// freely between goroutines.
type Artifact struct {
	Fingerprint Fingerprint
	Kind        Kind

	// For interdiffs, the fingerprints of the two diffs compared.
	Parents [2]Fingerprint

	Orig, Mod *seq.Sequence

	// The character sets the inputs were decoded from, if known.
	OrigCharset, ModCharset string

	Opcodes []opcode.Opcode

	// For interdiffs, the provenance of each line of each side.
	OrigProvenance []opcode.Provenance
	ModProvenance  []opcode.Provenance

	Chunks  []chunk.Chunk
	Summary chunk.Summary

	contextLines int
}

// Build computes intraline highlights, moves and chunks for the opcodes in
// base, and returns the finished artifact.
func Build(ctx context.Context, base Artifact, opts Options) (*Artifact, error) {
	const method = "Build"
	a := base
	in := chunk.Input{
		Opcodes:        a.Opcodes,
		Orig:           a.Orig,
		Mod:            a.Mod,
		Intraline:      make(map[int]intraline.Result),
		OrigProvenance: a.OrigProvenance,
		ModProvenance:  a.ModProvenance,
	}
	for k, op := range a.Opcodes {
		if op.Tag != opcode.Replace {
			continue
		}
		r, err := intraline.Highlight(ctx,
			a.Orig.Texts(op.OrigStart, op.OrigEnd),
			a.Mod.Texts(op.ModStart, op.ModEnd),
			opts.Intraline)
		if err != nil {
			return nil, err
		}
		in.Intraline[k] = r
	}
	if opts.DetectMoves {
		r, err := moves.Detect(ctx, a.Opcodes, a.Orig, a.Mod, opts.Moves)
		if err != nil {
			return nil, err
		}
		in.Moves = r
	}
	a.Chunks = chunk.Generate(in, opts.Chunk)
	if err := chunk.Validate(a.Chunks, a.Orig, a.Mod); err != nil {
		return nil, errorf(method, "%v", err)
	}
	a.Summary = chunk.Summarize(a.Chunks)
	a.contextLines = opts.Chunk.ContextLines
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Side presents the artifact as one input of an interdiff.
func (a *Artifact) Side() opcode.Side {
	return opcode.Side{Opcodes: a.Opcodes, Orig: a.Orig, Mod: a.Mod}
}

// WriteRecords writes the artifact in the line-oriented interchange format.
func (a *Artifact) WriteRecords(w io.Writer) error {
	h := chunk.RecordHeader{
		Kind:             a.Kind.String(),
		Fingerprint:      a.Fingerprint.Hex(),
		OrigFinalNewline: a.Orig.FinalNewline(),
		ModFinalNewline:  a.Mod.FinalNewline(),
		Summary:          a.Summary,
	}
	if a.Kind == KindInterdiff {
		h.Parents = []string{a.Parents[0].Hex(), a.Parents[1].Hex()}
	}
	return chunk.WriteRecords(w, h, a.Chunks, a.contextLines)
}
