package opcode

// shift slides each pure insertion or deletion that sits between equal
// ranges along the lines it can equivalently cover. The preferred position
// ends the change on a blank line; otherwise the change moves as far down as
// it can go.
func shift(ops []Opcode, a, b []int, blankA, blankB []bool) []Opcode {
	out := make([]Opcode, 0, len(ops)+1)
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		if (op.Tag != Insert && op.Tag != Delete) || i+1 == len(ops) || ops[i+1].Tag != Equal {
			out = append(out, op)
			continue
		}
		var prev *Opcode
		if n := len(out); n > 0 && out[n-1].Tag == Equal {
			prev = &out[n-1]
		}
		// Work as if the change were always a deletion.
		side, blank := a, blankA
		swap := op.Tag == Insert
		if swap {
			side, blank = b, blankB
			op = op.swapped()
			ops[i+1] = ops[i+1].swapped()
			if prev != nil {
				*prev = prev.swapped()
			}
		}
		next := &ops[i+1]
		s, e := op.OrigStart, op.OrigEnd
		up := 0
		if prev != nil {
			for up < prev.OrigLen() && side[s-up-1] == side[e-up-1] {
				up++
			}
		}
		down := 0
		for down < next.OrigLen() && side[s+down] == side[e+down] {
			down++
		}
		k := down
		for c := down; c >= -up; c-- {
			if blank[e+c-1] {
				k = c
				break
			}
		}
		if k != 0 {
			q := op.ModStart
			if prev == nil {
				out = append(out, Opcode{Tag: Equal, OrigStart: s, OrigEnd: s, ModStart: q, ModEnd: q})
				prev = &out[len(out)-1]
			}
			prev.OrigEnd += k
			prev.ModEnd += k
			op.OrigStart += k
			op.OrigEnd += k
			op.ModStart += k
			op.ModEnd += k
			next.OrigStart += k
			next.ModStart += k
		}
		if swap {
			op = op.swapped()
			*next = next.swapped()
			if prev != nil {
				*prev = prev.swapped()
			}
		}
		out = append(out, op)
	}
	return normalize(out)
}
