package chunkdiff

import (
	"io"

	"github.com/nicolagi/chunkdiff/internal/unified"
)

type (
	UnifiedOptions    = unified.Options
	SideBySideOptions = unified.SideBySideOptions
)

// WriteUnified writes a as a unified diff. Nothing is written for an
// artifact without differences.
func WriteUnified(w io.Writer, a *Artifact, opts UnifiedOptions) error {
	return unified.Write(w, a.Chunks, a.Orig, a.Mod, opts)
}

// UnifiedString is WriteUnified into a string.
func UnifiedString(a *Artifact, opts UnifiedOptions) (string, error) {
	return unified.String(a.Chunks, a.Orig, a.Mod, opts)
}

// WriteSideBySide renders a in two columns.
func WriteSideBySide(w io.Writer, a *Artifact, opts SideBySideOptions) error {
	return unified.WriteSideBySide(w, a.Chunks, opts)
}

// WriteRecords writes a as JSON lines: a header record, then one record
// per chunk.
func WriteRecords(w io.Writer, a *Artifact) error {
	return a.WriteRecords(w)
}
