package unified

// ring keeps the last few common lines seen outside of a hunk, to be used
// as leading context when the next hunk opens. Older lines are overwritten.
// A ring of capacity zero keeps nothing.
type ring[T any] struct {
	buf   []T
	start int
	n     int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	c := len(r.buf)
	if c == 0 {
		return
	}
	r.buf[(r.start+r.n)%c] = v
	if r.n < c {
		r.n++
	} else {
		r.start = (r.start + 1) % c
	}
}

// drain returns the kept values, oldest first, and empties the ring.
func (r *ring[T]) drain() []T {
	if r.n == 0 {
		return nil
	}
	out := make([]T, r.n)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	r.start, r.n = 0, 0
	return out
}
