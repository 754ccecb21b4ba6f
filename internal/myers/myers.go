// Package myers computes a shortest edit script between two sequences of
// interned ids with the O((N+M)D) algorithm of Eugene W. Myers, "An O(ND)
// Difference Algorithm and Its Variations" (1986), using the linear space
// bisection ("middle snake") refinement.
//
// Subproblems are kept on an explicit worklist, so stack depth does not grow
// with the size or the dissimilarity of the inputs.
package myers

import (
	"context"
	"sort"
)

// Match is a run of Len equal elements starting at A in the first sequence
// and at B in the second.
type Match struct {
	A, B, Len int
}

// How many edit distance steps pass between cancellation checks.
const checkEvery = 64

type task struct {
	alo, ahi int
	blo, bhi int
}

type differ struct {
	a, b    []int
	v1, v2  []int
	matches []Match
}

// Diff returns the matches of a minimal edit script turning a into b, sorted
// by position and coalesced. The result is fully determined by the inputs.
func Diff(ctx context.Context, a, b []int) ([]Match, error) {
	d := &differ{a: a, b: b}
	if err := d.run(ctx, task{0, len(a), 0, len(b)}); err != nil {
		return nil, err
	}
	return coalesce(d.matches), nil
}

func (d *differ) run(ctx context.Context, root task) error {
	work := []task{root}
	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := d.trim(work[len(work)-1])
		work = work[:len(work)-1]
		if t.alo == t.ahi || t.blo == t.bhi {
			continue
		}
		x, y, ok, err := d.bisect(ctx, t)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		// The lower half is pushed last so that it is processed first.
		work = append(work, task{x, t.ahi, y, t.bhi}, task{t.alo, x, t.blo, y})
	}
	return nil
}

// trim records the common prefix and suffix of t as matches and returns
// what is left in between.
func (d *differ) trim(t task) task {
	n := 0
	for t.alo+n < t.ahi && t.blo+n < t.bhi && d.a[t.alo+n] == d.b[t.blo+n] {
		n++
	}
	if n > 0 {
		d.matches = append(d.matches, Match{t.alo, t.blo, n})
		t.alo += n
		t.blo += n
	}
	n = 0
	for t.ahi-n > t.alo && t.bhi-n > t.blo && d.a[t.ahi-n-1] == d.b[t.bhi-n-1] {
		n++
	}
	if n > 0 {
		t.ahi -= n
		t.bhi -= n
		d.matches = append(d.matches, Match{t.ahi, t.bhi, n})
	}
	return t
}

// bisect finds the middle snake of t and returns the absolute point where
// the problem can be split into two independent halves. It reports false if
// the two ranges have nothing in common.
func (d *differ) bisect(ctx context.Context, t task) (x, y int, ok bool, err error) {
	a, b := d.a[t.alo:t.ahi], d.b[t.blo:t.bhi]
	n, m := len(a), len(b)
	maxD := (n + m + 1) / 2
	vOffset := maxD
	vLen := 2*maxD + 2
	d.v1 = reset(d.v1, vLen)
	d.v2 = reset(d.v2, vLen)
	v1, v2 := d.v1, d.v2
	v1[vOffset+1] = 0
	v2[vOffset+1] = 0
	delta := n - m
	// If the total number of elements is odd, the front path will collide
	// with the reverse path.
	front := delta%2 != 0
	var k1start, k1end, k2start, k2end int
	for step := 0; step < maxD; step++ {
		if step%checkEvery == checkEvery-1 {
			if err := ctx.Err(); err != nil {
				return 0, 0, false, err
			}
		}
		for k1 := -step + k1start; k1 <= step-k1end; k1 += 2 {
			k1Offset := vOffset + k1
			var x1 int
			if k1 == -step || (k1 != step && v1[k1Offset-1] < v1[k1Offset+1]) {
				x1 = v1[k1Offset+1]
			} else {
				x1 = v1[k1Offset-1] + 1
			}
			y1 := x1 - k1
			for x1 < n && y1 < m && a[x1] == b[y1] {
				x1++
				y1++
			}
			v1[k1Offset] = x1
			switch {
			case x1 > n:
				k1end += 2
			case y1 > m:
				k1start += 2
			case front:
				k2Offset := vOffset + delta - k1
				if k2Offset >= 0 && k2Offset < vLen && v2[k2Offset] != -1 {
					if x2 := n - v2[k2Offset]; x1 >= x2 {
						return d.split(t, x1, y1)
					}
				}
			}
		}
		for k2 := -step + k2start; k2 <= step-k2end; k2 += 2 {
			k2Offset := vOffset + k2
			var x2 int
			if k2 == -step || (k2 != step && v2[k2Offset-1] < v2[k2Offset+1]) {
				x2 = v2[k2Offset+1]
			} else {
				x2 = v2[k2Offset-1] + 1
			}
			y2 := x2 - k2
			for x2 < n && y2 < m && a[n-x2-1] == b[m-y2-1] {
				x2++
				y2++
			}
			v2[k2Offset] = x2
			switch {
			case x2 > n:
				k2end += 2
			case y2 > m:
				k2start += 2
			case !front:
				k1Offset := vOffset + delta - k2
				if k1Offset >= 0 && k1Offset < vLen && v1[k1Offset] != -1 {
					x1 := v1[k1Offset]
					y1 := vOffset + x1 - k1Offset
					if x1 >= n-x2 {
						return d.split(t, x1, y1)
					}
				}
			}
		}
	}
	return 0, 0, false, nil
}

func (d *differ) split(t task, x, y int) (int, int, bool, error) {
	// A split at either corner would not shrink the problem.
	if (x == 0 && y == 0) || (t.alo+x == t.ahi && t.blo+y == t.bhi) {
		return 0, 0, false, nil
	}
	return t.alo + x, t.blo + y, true, nil
}

func reset(v []int, n int) []int {
	if cap(v) < n {
		v = make([]int, n)
	}
	v = v[:n]
	for i := range v {
		v[i] = -1
	}
	return v
}

// coalesce sorts matches and joins the ones that are contiguous in both
// sequences.
func coalesce(matches []Match) []Match {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].A < matches[j].A
	})
	var out []Match
	for _, m := range matches {
		if m.Len == 0 {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.A+last.Len == m.A && last.B+last.Len == m.B {
				last.Len += m.Len
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

// Intern maps equal strings across both slices to equal ids.
func Intern(a, b []string) (x, y []int) {
	ids := make(map[string]int, len(a)+len(b))
	id := func(s string) int {
		if i, ok := ids[s]; ok {
			return i
		}
		i := len(ids)
		ids[s] = i
		return i
	}
	x = make([]int, len(a))
	for i, s := range a {
		x[i] = id(s)
	}
	y = make([]int, len(b))
	for i, s := range b {
		y[i] = id(s)
	}
	return x, y
}
