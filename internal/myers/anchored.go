package myers

import (
	"context"
	"sort"
)

// Gaps between anchors up to this many elements (both sides together) are
// diffed exactly. Larger gaps only get their common prefix and suffix.
const exactGapLimit = 4096

// Anchored is a bounded-cost alternative to Diff for very large inputs. Elements
// occurring exactly once in each sequence are anchors. The longest run of
// anchors appearing in the same order on both sides is kept, and the gaps
// between consecutive anchors are diffed independently. The result is a
// valid, though not necessarily minimal, edit script.
func Anchored(ctx context.Context, a, b []int) ([]Match, error) {
	anchors := lis(uniqueCommon(a, b))
	d := &differ{a: a, b: b}
	var alo, blo int
	gap := func(ahi, bhi int) error {
		t := task{alo, ahi, blo, bhi}
		if (ahi-alo)+(bhi-blo) <= exactGapLimit {
			return d.run(ctx, t)
		}
		d.trim(t)
		return nil
	}
	for i, an := range anchors {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := gap(an.A, an.B); err != nil {
			return nil, err
		}
		d.matches = append(d.matches, Match{an.A, an.B, 1})
		alo, blo = an.A+1, an.B+1
	}
	if err := gap(len(a), len(b)); err != nil {
		return nil, err
	}
	return coalesce(d.matches), nil
}

// uniqueCommon returns the pairs of positions of elements that occur exactly
// once in a and once in b, ordered by position in b.
func uniqueCommon(a, b []int) []Match {
	type occurrence struct {
		countA, countB int
		posA           int
	}
	occ := make(map[int]*occurrence)
	for i, v := range a {
		o := occ[v]
		if o == nil {
			o = &occurrence{}
			occ[v] = o
		}
		o.countA++
		o.posA = i
	}
	for _, v := range b {
		if o := occ[v]; o != nil {
			o.countB++
		}
	}
	var out []Match
	for j, v := range b {
		if o := occ[v]; o != nil && o.countA == 1 && o.countB == 1 {
			out = append(out, Match{A: o.posA, B: j, Len: 1})
		}
	}
	return out
}

// lis returns the longest subsequence of pairs (already increasing in B)
// that is also increasing in A, using patience sorting.
func lis(pairs []Match) []Match {
	if len(pairs) == 0 {
		return nil
	}
	// tails[k] is the index in pairs of the smallest tail of an increasing
	// subsequence of length k+1.
	var tails []int
	prev := make([]int, len(pairs))
	for i, p := range pairs {
		k := sort.Search(len(tails), func(k int) bool {
			return pairs[tails[k]].A >= p.A
		})
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	out := make([]Match, len(tails))
	for i, k := tails[len(tails)-1], len(tails)-1; k >= 0; i, k = prev[i], k-1 {
		out[k] = pairs[i]
	}
	return out
}
