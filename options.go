package chunkdiff

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/nicolagi/chunkdiff/internal/artifact"
	"github.com/nicolagi/chunkdiff/internal/chunk"
	"github.com/nicolagi/chunkdiff/internal/config"
	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/moves"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

// Options control how an Engine compares and presents inputs. See
// config.C for the meaning of each field.
type Options struct {
	IgnoreWhitespace       bool
	ContextLines           int
	SimilarityThreshold    float64
	LargeFileLineThreshold int

	MaxInputLines int
	MaxInputBytes int64

	// Declared encodings, tried in order before detection.
	Encodings []string

	IntralineGranularity     Granularity
	IntralineMaxChangeRatio  float64
	IntralineSemanticCleanup bool
	IntralineMaxLineLength   int

	MoveDetection  bool
	MoveMinLines   int
	MovePrecedence Precedence

	// Concurrency of DiffAll; zero or less means one per CPU.
	Parallelism int
}

// DefaultOptions corresponds to an empty configuration file.
func DefaultOptions() Options {
	o, err := OptionsFromConfig(config.Default())
	if err != nil {
		panic(err)
	}
	return o
}

// OptionsFromConfig validates and converts the engine's part of c.
func OptionsFromConfig(c *config.C) (Options, error) {
	const method = "OptionsFromConfig"
	g, err := intraline.ParseGranularity(c.IntralineGranularity)
	if err != nil {
		return Options{}, errorf(method, "%w", err)
	}
	p, err := moves.ParsePrecedence(c.MovePrecedence)
	if err != nil {
		return Options{}, errorf(method, "%w", err)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return Options{}, errorf(method, "similarity threshold %v is not in [0, 1]", c.SimilarityThreshold)
	}
	return Options{
		IgnoreWhitespace:         c.IgnoreWhitespace,
		ContextLines:             c.ContextLines,
		SimilarityThreshold:      c.SimilarityThreshold,
		LargeFileLineThreshold:   c.LargeFileLineThreshold,
		MaxInputLines:            c.MaxInputLines,
		MaxInputBytes:            c.MaxInputBytes,
		Encodings:                append([]string(nil), c.Encodings...),
		IntralineGranularity:     g,
		IntralineMaxChangeRatio:  c.IntralineMaxChangeRatio,
		IntralineSemanticCleanup: c.IntralineSemanticCleanup,
		IntralineMaxLineLength:   c.IntralineMaxLineLength,
		MoveDetection:            c.MoveDetection,
		MoveMinLines:             c.MoveMinLines,
		MovePrecedence:           p,
		Parallelism:              c.Parallelism,
	}, nil
}

func (o Options) sequence() seq.Options {
	return seq.Options{IgnoreWhitespace: o.IgnoreWhitespace}
}

func (o Options) opcode() opcode.Config {
	return opcode.Config{
		LargeFileLineThreshold: o.LargeFileLineThreshold,
		MaxInputLines:          o.MaxInputLines,
	}
}

func (o Options) artifact() artifact.Options {
	return artifact.Options{
		Sequence: o.sequence(),
		Opcode:   o.opcode(),
		Intraline: intraline.Options{
			Granularity:     o.IntralineGranularity,
			MaxChangeRatio:  o.IntralineMaxChangeRatio,
			SemanticCleanup: o.IntralineSemanticCleanup,
			MaxLineLength:   o.IntralineMaxLineLength,
		},
		DetectMoves: o.MoveDetection,
		Moves: moves.Options{
			MinLines:            o.MoveMinLines,
			SimilarityThreshold: o.SimilarityThreshold,
			Precedence:          o.MovePrecedence,
		},
		Chunk: chunk.Options{ContextLines: o.ContextLines},
	}
}

func (o Options) parallelism() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// canonical lists every option that can change an artifact, in a fixed
// order, for fingerprinting. Limits are left out: they decide whether
// there is a result, not what it is.
func (o Options) canonical() string {
	return fmt.Sprintf("ignore-whitespace=%t;context-lines=%d;similarity-threshold=%g;"+
		"large-file-line-threshold=%d;encodings=%s;intraline-granularity=%v;"+
		"intraline-max-change-ratio=%g;intraline-semantic-cleanup=%t;intraline-max-line-length=%d;"+
		"move-detection=%t;move-min-lines=%d;move-precedence=%v",
		o.IgnoreWhitespace, o.ContextLines, o.SimilarityThreshold,
		o.LargeFileLineThreshold, strings.Join(o.Encodings, ","), o.IntralineGranularity,
		o.IntralineMaxChangeRatio, o.IntralineSemanticCleanup, o.IntralineMaxLineLength,
		o.MoveDetection, o.MoveMinLines, o.MovePrecedence)
}
