package opcode

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/nicolagi/chunkdiff/internal/myers"
	"github.com/nicolagi/chunkdiff/internal/seq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(s string) *seq.Sequence {
	if s == "" {
		return seq.FromLines(nil, seq.Options{})
	}
	return seq.FromLines(strings.Split(s, " "), seq.Options{})
}

func TestGenerate(t *testing.T) {
	cases := []struct {
		name    string
		matches []myers.Match
		n, m    int
		want    []Opcode
	}{
		{"both empty", nil, 0, 0, nil},
		{"all inserted", nil, 0, 2, []Opcode{{Insert, 0, 0, 0, 2}}},
		{"all deleted", nil, 3, 0, []Opcode{{Delete, 0, 3, 0, 0}}},
		{"all replaced", nil, 1, 2, []Opcode{{Replace, 0, 1, 0, 2}}},
		{
			"replace in the middle",
			[]myers.Match{{A: 0, B: 0, Len: 1}, {A: 2, B: 2, Len: 1}}, 3, 3,
			[]Opcode{{Equal, 0, 1, 0, 1}, {Replace, 1, 2, 1, 2}, {Equal, 2, 3, 2, 3}},
		},
		{
			"adjacent matches are merged",
			[]myers.Match{{A: 0, B: 0, Len: 1}, {A: 1, B: 1, Len: 2}}, 3, 4,
			[]Opcode{{Equal, 0, 3, 0, 3}, {Insert, 3, 3, 3, 4}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Generate(c.matches, c.n, c.m)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			assert.NoError(t, Validate(got, c.n, c.m))
		})
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		ops  []Opcode
		n, m int
	}{
		{"gap", []Opcode{{Equal, 0, 1, 0, 1}, {Equal, 2, 3, 2, 3}}, 3, 3},
		{"short", []Opcode{{Equal, 0, 1, 0, 1}}, 2, 1},
		{"bad insert", []Opcode{{Insert, 0, 1, 0, 1}}, 1, 1},
		{"bad delete", []Opcode{{Delete, 0, 1, 0, 1}}, 1, 1},
		{"unequal equal", []Opcode{{Equal, 0, 1, 0, 2}}, 1, 2},
		{"empty replace", []Opcode{{Replace, 0, 0, 0, 1}}, 0, 1},
		{"unknown tag", []Opcode{{Tag(9), 0, 1, 0, 1}}, 1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Error(t, Validate(c.ops, c.n, c.m))
		})
	}
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	t.Run("single replaced line", func(t *testing.T) {
		got, err := Diff(ctx, lines("a b c"), lines("a x c"), Config{})
		require.NoError(t, err)
		want := []Opcode{{Equal, 0, 1, 0, 1}, {Replace, 1, 2, 1, 2}, {Equal, 2, 3, 2, 3}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
	t.Run("identical inputs", func(t *testing.T) {
		got, err := Diff(ctx, lines("a b c"), lines("a b c"), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Opcode{{Equal, 0, 3, 0, 3}}, got)
	})
	t.Run("empty inputs", func(t *testing.T) {
		got, err := Diff(ctx, lines(""), lines(""), Config{})
		require.NoError(t, err)
		assert.Empty(t, got)
		got, err = Diff(ctx, lines(""), lines("a b"), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Opcode{{Insert, 0, 0, 0, 2}}, got)
		got, err = Diff(ctx, lines("a b"), lines(""), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Opcode{{Delete, 0, 2, 0, 0}}, got)
	})
	t.Run("insertion ends on a blank line", func(t *testing.T) {
		orig := seq.FromLines([]string{"", "b", "z"}, seq.Options{})
		mod := seq.FromLines([]string{"", "b", "", "b", "z"}, seq.Options{})
		got, err := Diff(ctx, orig, mod, Config{})
		require.NoError(t, err)
		want := []Opcode{{Equal, 0, 1, 0, 1}, {Insert, 1, 1, 1, 3}, {Equal, 1, 3, 3, 5}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
	t.Run("too large", func(t *testing.T) {
		_, err := Diff(ctx, lines("a b c"), lines("a"), Config{MaxInputLines: 2})
		assert.True(t, errors.Is(err, ErrInputTooLarge), "got %v", err)
	})
	t.Run("large inputs use the fallback", func(t *testing.T) {
		c := Config{LargeFileLineThreshold: 2}
		assert.True(t, c.UsesFallback(3, 1))
		assert.False(t, c.UsesFallback(2, 2))
		got, err := Diff(ctx, lines("a b c d"), lines("a x c d"), c)
		require.NoError(t, err)
		assert.NoError(t, Validate(got, 4, 4))
	})
}

func randomLines(r *rand.Rand) *seq.Sequence {
	words := []string{"a", "b", "c", "", "d"}
	out := make([]string, r.Intn(30))
	for i := range out {
		out[i] = words[r.Intn(len(words))]
	}
	return seq.FromLines(out, seq.Options{})
}

func TestDiffPartitionsBothSequences(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	f := func(seed int64, large bool) bool {
		r.Seed(seed)
		orig, mod := randomLines(r), randomLines(r)
		c := Config{}
		if large {
			c.LargeFileLineThreshold = 5
		}
		ops, err := Diff(context.Background(), orig, mod, c)
		if err != nil {
			t.Error(err)
			return false
		}
		if err := Check(ops, orig, mod); err != nil {
			t.Error(err)
			return false
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func side(t *testing.T, orig, mod *seq.Sequence) Side {
	t.Helper()
	ops, err := Diff(context.Background(), orig, mod, Config{})
	require.NoError(t, err)
	return Side{Opcodes: ops, Orig: orig, Mod: mod}
}

func TestInterdiff(t *testing.T) {
	ctx := context.Background()
	x, y := lines("a b"), lines("a b c")
	t.Run("region introduced by the second revision", func(t *testing.T) {
		got, err := Interdiff(ctx, side(t, x, x), side(t, x, y), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Opcode{{Equal, 0, 2, 0, 2}, {Insert, 2, 2, 2, 3}}, got.Opcodes)
		assert.Equal(t, []Provenance{Unchanged, Unchanged}, got.OrigProvenance)
		assert.Equal(t, []Provenance{Unchanged, Unchanged, Both}, got.ModProvenance)
		assert.True(t, got.ModProvenance[2].ChangedVsOther())
	})
	t.Run("unchanged between revisions but originally inserted", func(t *testing.T) {
		got, err := Interdiff(ctx, side(t, x, y), side(t, x, y), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Opcode{{Equal, 0, 3, 0, 3}}, got.Opcodes)
		assert.Equal(t, []Provenance{Unchanged, Unchanged, ChangedVsOriginal}, got.ModProvenance)
		assert.Equal(t, []Provenance{Unchanged, Unchanged, ChangedVsOriginal}, got.OrigProvenance)
	})
	t.Run("reverted change", func(t *testing.T) {
		got, err := Interdiff(ctx, side(t, x, y), side(t, x, x), Config{})
		require.NoError(t, err)
		assert.Equal(t, []Provenance{Unchanged, Unchanged, Both}, got.OrigProvenance)
		assert.Equal(t, []Provenance{Unchanged, Unchanged}, got.ModProvenance)
	})
	t.Run("malformed input", func(t *testing.T) {
		bad := Side{Opcodes: []Opcode{{Equal, 0, 1, 0, 1}}, Orig: x, Mod: y}
		_, err := Interdiff(ctx, bad, side(t, x, y), Config{})
		assert.True(t, errors.Is(err, ErrMalformedInterdiffInput), "got %v", err)
		_, err = Interdiff(ctx, side(t, x, y), bad, Config{})
		assert.True(t, errors.Is(err, ErrMalformedInterdiffInput), "got %v", err)
	})
	t.Run("equal opcode over different lines is malformed", func(t *testing.T) {
		bad := Side{Opcodes: []Opcode{{Equal, 0, 2, 0, 2}}, Orig: lines("a b"), Mod: lines("a z")}
		_, err := Interdiff(ctx, bad, side(t, x, y), Config{})
		assert.True(t, errors.Is(err, ErrMalformedInterdiffInput), "got %v", err)
	})
}

func TestTagAndProvenanceNames(t *testing.T) {
	for tag := Equal; tag <= Replace; tag++ {
		got, err := ParseTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}
	for p := Unchanged; p <= Both; p++ {
		got, err := ParseProvenance(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseTag("nope")
	assert.Error(t, err)
}
