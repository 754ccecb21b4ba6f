package chunk

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/nicolagi/chunkdiff/internal/intraline"
	"github.com/nicolagi/chunkdiff/internal/moves"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, orig, mod []string, contextLines int) ([]Chunk, *seq.Sequence, *seq.Sequence) {
	t.Helper()
	o := seq.FromLines(orig, seq.Options{})
	m := seq.FromLines(mod, seq.Options{})
	ctx := context.Background()
	ops, err := opcode.Diff(ctx, o, m, opcode.Config{})
	require.NoError(t, err)
	mv, err := moves.Detect(ctx, ops, o, m, moves.Options{MinLines: 2})
	require.NoError(t, err)
	in := Input{
		Opcodes:   ops,
		Orig:      o,
		Mod:       m,
		Intraline: make(map[int]intraline.Result),
		Moves:     mv,
	}
	for k, op := range ops {
		if op.Tag != opcode.Replace {
			continue
		}
		r, err := intraline.Highlight(ctx, o.Texts(op.OrigStart, op.OrigEnd), m.Texts(op.ModStart, op.ModEnd), intraline.Options{MaxChangeRatio: 0.6})
		require.NoError(t, err)
		in.Intraline[k] = r
	}
	return Generate(in, Options{ContextLines: contextLines}), o, m
}

func texts(lines []Line) []string {
	var out []string
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestSingleReplacedLine(t *testing.T) {
	chunks, o, m := build(t, []string{"a", "b", "c"}, []string{"a", "x", "c"}, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, opcode.Equal, chunks[0].Tag)
	assert.Equal(t, opcode.Replace, chunks[1].Tag)
	assert.Equal(t, opcode.Equal, chunks[2].Tag)
	assert.Equal(t, []intraline.Span{{Line: 0, Start: 0, End: 1, Whole: true}}, chunks[1].OrigSpans)
	assert.Equal(t, []intraline.Span{{Line: 0, Start: 0, End: 1, Whole: true}}, chunks[1].ModSpans)
	assert.Equal(t, []Line{{Number: 2, Text: "b"}}, chunks[1].OrigLines())
	assert.Equal(t, []Line{{Number: 2, Text: "x"}}, chunks[1].ModLines())
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.False(t, c.Collapsible)
	}
	assert.NoError(t, Validate(chunks, o, m))
}

func TestIdenticalInputsGiveOneEqualChunk(t *testing.T) {
	lines := []string{"x", "y", "z"}
	chunks, o, m := build(t, lines, lines, 3)
	require.Len(t, chunks, 1)
	assert.Equal(t, opcode.Equal, chunks[0].Tag)
	assert.NoError(t, Validate(chunks, o, m))
	assert.False(t, Summarize(chunks).Changed())
}

func TestFinalNewlineOnlyDifferenceIsAChange(t *testing.T) {
	ctx := context.Background()
	for _, c := range []struct {
		orig, mod string
		want      bool
	}{
		{"a\nb\n", "a\nb", true},
		{"a\nb", "a\nb\n", true},
		{"a\nb", "a\nb", false},
		{"", "\n", false},
	} {
		o, m := seq.New(c.orig, seq.Options{}), seq.New(c.mod, seq.Options{})
		ops, err := opcode.Diff(ctx, o, m, opcode.Config{})
		require.NoError(t, err)
		s := Summarize(Generate(Input{Opcodes: ops, Orig: o, Mod: m}, Options{ContextLines: 3}))
		assert.Equal(t, c.want, s.FinalNewlineChanged, "%q %q", c.orig, c.mod)
		if c.want {
			assert.True(t, s.Changed(), "%q %q", c.orig, c.mod)
		}
	}
}

func TestEmptyInputs(t *testing.T) {
	chunks, o, m := build(t, nil, nil, 3)
	assert.Empty(t, chunks)
	assert.NoError(t, Validate(chunks, o, m))
	chunks, o, m = build(t, nil, []string{"new"}, 3)
	require.Len(t, chunks, 1)
	assert.Equal(t, opcode.Insert, chunks[0].Tag)
	assert.Equal(t, 1, chunks[0].OrigFirst())
	assert.NoError(t, Validate(chunks, o, m))
}

func TestCollapsible(t *testing.T) {
	var common []string
	for i := 0; i < 20; i++ {
		common = append(common, strings.Repeat("c", i+1))
	}
	orig := append([]string{"func main() {"}, common...)
	orig = append(orig, "old")
	mod := append([]string{"func main() {"}, common...)
	mod = append(mod, "new")
	chunks, o, m := build(t, orig, mod, 2)
	require.Len(t, chunks, 2)
	eq := chunks[0]
	require.True(t, eq.Collapsible)
	assert.Equal(t, 21, eq.Rows())
	assert.Equal(t, &Line{Number: 1, Text: "func main() {"}, eq.Header.Orig)
	assert.Equal(t, &Line{Number: 1, Text: "func main() {"}, eq.Header.Mod)
	assert.Len(t, eq.OrigLines(), 21, "collapsing does not lose lines")
	assert.NoError(t, Validate(chunks, o, m))

	t.Run("expand a sub-range", func(t *testing.T) {
		ol, ml, err := eq.Expand(5, 8)
		require.NoError(t, err)
		assert.Equal(t, []string{"ccccc", "cccccc", "ccccccc"}, texts(ol))
		assert.Equal(t, texts(ol), texts(ml))
		assert.Equal(t, 6, ol[0].Number)
	})
	t.Run("expand out of range", func(t *testing.T) {
		_, _, err := eq.Expand(5, 22)
		assert.ErrorIs(t, err, ErrRangeOutOfBounds)
		_, _, err = eq.Expand(-1, 2)
		assert.ErrorIs(t, err, ErrRangeOutOfBounds)
	})
	t.Run("records carry context only", func(t *testing.T) {
		rec := NewRecord(eq, 2)
		assert.Equal(t, &Hidden{Offset: 2, Count: 17}, rec.Hidden)
		var ns []int
		for _, l := range rec.Orig {
			ns = append(ns, l.N)
		}
		assert.Equal(t, []int{1, 2, 20, 21}, ns)
		require.NotNil(t, rec.Declaration)
		assert.Equal(t, "func main() {", rec.Declaration.Orig.Text)
	})
	t.Run("no collapsing when disabled", func(t *testing.T) {
		chunks, _, _ := build(t, orig, mod, -1)
		assert.False(t, chunks[0].Collapsible)
	})
}

func TestMoveAnnotationsAreSymmetric(t *testing.T) {
	chunks, o, m := build(t, []string{"1", "2", "3", "4"}, []string{"3", "4", "1", "2"}, 3)
	require.NoError(t, Validate(chunks, o, m))
	var annotations []MoveAnnotation
	for _, c := range chunks {
		for _, mv := range c.Moves {
			annotations = append(annotations, mv)
			other := chunks[mv.TargetChunk]
			var back *MoveAnnotation
			for i := range other.Moves {
				if other.Moves[i].TargetChunk == c.Index {
					back = &other.Moves[i]
				}
			}
			require.NotNil(t, back, "chunk %d has no annotation pointing back to %d", other.Index, c.Index)
			assert.NotEqual(t, mv.Direction, back.Direction)
			assert.Equal(t, mv.First, back.TargetFirst)
			assert.Equal(t, mv.Last, back.TargetLast)
		}
	}
	assert.Len(t, annotations, 2)
	assert.Equal(t, 2, Summarize(chunks).Moved)
}

func TestIndentationReplacesHighlights(t *testing.T) {
	chunks, _, _ := build(t, []string{"if x {", "foo()", "}"}, []string{"if x {", "\tfoo()", "}"}, 3)
	require.Len(t, chunks, 3)
	c := chunks[1]
	assert.Equal(t, []IndentationChange{{OrigLine: 2, ModLine: 2, OrigIndent: "", ModIndent: "\t"}}, c.Indentation)
	assert.Empty(t, c.OrigSpans)
	assert.Empty(t, c.ModSpans)
	assert.True(t, c.WhitespaceOnly)
}

func TestProvenanceReachesLines(t *testing.T) {
	o := seq.FromLines([]string{"a", "b"}, seq.Options{})
	m := seq.FromLines([]string{"a", "b", "c"}, seq.Options{})
	ops := []opcode.Opcode{
		{Tag: opcode.Equal, OrigStart: 0, OrigEnd: 2, ModStart: 0, ModEnd: 2},
		{Tag: opcode.Insert, OrigStart: 2, OrigEnd: 2, ModStart: 2, ModEnd: 3},
	}
	chunks := Generate(Input{
		Opcodes:        ops,
		Orig:           o,
		Mod:            m,
		OrigProvenance: []opcode.Provenance{opcode.Unchanged, opcode.ChangedVsOriginal},
		ModProvenance:  []opcode.Provenance{opcode.Unchanged, opcode.ChangedVsOriginal, opcode.Both},
	}, Options{ContextLines: 3})
	require.Len(t, chunks, 2)
	assert.Equal(t, []Line{{Number: 3, Text: "c", Provenance: opcode.Both}}, chunks[1].ModLines())
	assert.Equal(t, opcode.ChangedVsOriginal, chunks[0].ModLines()[1].Provenance)
	rec := NewRecord(chunks[1], 3)
	assert.Equal(t, "both", rec.Mod[0].Provenance)
}

func TestChunksReconstructInputs(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	words := []string{"a", "b", "c", "", "  a", "d"}
	random := func() []string {
		out := make([]string, r.Intn(25))
		for i := range out {
			out[i] = words[r.Intn(len(words))]
		}
		return out
	}
	f := func(seed int64, contextLines uint8) bool {
		r.Seed(seed)
		chunks, o, m := build(t, random(), random(), int(contextLines%4))
		if err := Validate(chunks, o, m); err != nil {
			t.Error(err)
			return false
		}
		for k, c := range chunks {
			if c.Index != k || c.Opcode.Tag != c.Tag {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 300}); err != nil {
		t.Error(err)
	}
}

func TestRecords(t *testing.T) {
	chunks, _, _ := build(t, []string{"a", "b", "c"}, []string{"a", "x", "c"}, 3)
	var buf bytes.Buffer
	h := RecordHeader{Kind: "diff", Fingerprint: "abc", OrigFinalNewline: true, ModFinalNewline: true, Summary: Summarize(chunks)}
	require.NoError(t, WriteRecords(&buf, h, chunks, 3))
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))

	gotHeader, records, err := ReadRecords(&buf)
	require.NoError(t, err)
	h.Format, h.Version = FormatName, FormatVersion
	if diff := cmp.Diff(h, gotHeader); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	require.Len(t, records, 3)
	want := Record{
		Index:     1,
		Tag:       "replace",
		OrigFirst: 2,
		OrigCount: 1,
		ModFirst:  2,
		ModCount:  1,
		Orig:      []RecordLine{{N: 2, Text: "b"}},
		Mod:       []RecordLine{{N: 2, Text: "x"}},
		OrigSpans: []RecordSpan{{Line: 0, Start: 0, End: 1, Whole: true}},
		ModSpans:  []RecordSpan{{Line: 0, Start: 0, End: 1, Whole: true}},
	}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}
}

func TestReadRecordsRejectsOtherVersions(t *testing.T) {
	_, _, err := ReadRecords(strings.NewReader(`{"format":"chunkdiff","version":99}` + "\n"))
	assert.Error(t, err)
	_, _, err = ReadRecords(strings.NewReader("not json"))
	assert.Error(t, err)
}
