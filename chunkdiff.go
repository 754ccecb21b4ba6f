package chunkdiff

import (
	"errors"
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/artifact"
	"github.com/nicolagi/chunkdiff/internal/cache"
	"github.com/nicolagi/chunkdiff/internal/chunk"
	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/moves"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
	"github.com/nicolagi/chunkdiff/internal/storage"
)

type (
	Artifact    = artifact.Artifact
	Fingerprint = artifact.Fingerprint
	Kind        = artifact.Kind

	Chunk             = chunk.Chunk
	Line              = chunk.Line
	MoveAnnotation    = chunk.MoveAnnotation
	IndentationChange = chunk.IndentationChange
	Summary           = chunk.Summary

	Opcode     = opcode.Opcode
	Tag        = opcode.Tag
	Side       = opcode.Side
	Provenance = opcode.Provenance
	Sequence   = seq.Sequence
	Span       = intraline.Span

	Granularity = intraline.Granularity
	Precedence  = moves.Precedence

	// Cache is what an Engine needs from its artifact cache.
	Cache = cache.Getter

	ContentKey = storage.Key
)

const (
	KindDiff      = artifact.KindDiff
	KindInterdiff = artifact.KindInterdiff

	Equal   = opcode.Equal
	Insert  = opcode.Insert
	Delete  = opcode.Delete
	Replace = opcode.Replace

	Unchanged         = opcode.Unchanged
	ChangedVsOther    = opcode.ChangedVsOther
	ChangedVsOriginal = opcode.ChangedVsOriginal
	ChangedInBoth     = opcode.Both

	CharGranularity = intraline.Char
	WordGranularity = intraline.Word

	PreferIndentation = moves.PreferIndentation
	PreferMoves       = moves.PreferMoves
)

var (
	ErrEncodingDetectionFailed = seq.ErrEncodingDetectionFailed
	ErrInputTooLarge           = opcode.ErrInputTooLarge
	ErrMalformedInterdiffInput = opcode.ErrMalformedInterdiffInput
	ErrCacheComputationFailed  = cache.ErrCacheComputationFailed

	// ErrUnknownFingerprint is returned when an artifact is requested by a
	// fingerprint the cache does not know.
	ErrUnknownFingerprint = errors.New("unknown fingerprint")

	// ErrContentMismatch is returned when stored content does not hash to
	// the key it was stored under.
	ErrContentMismatch = errors.New("content does not match its key")
)

// NewSequence splits text into lines for use in a Side.
func NewSequence(text string, ignoreWhitespace bool) *Sequence {
	return seq.New(text, seq.Options{IgnoreWhitespace: ignoreWhitespace})
}

// ParseFingerprint parses the hex form of a fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	return artifact.ParseFingerprint(s)
}

// ContentKeyOf is the key under which content is kept in a content store.
func ContentKeyOf(content []byte) ContentKey {
	return storage.ContentKey(content)
}

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff."+typeMethod+": "+format, a...)
}
