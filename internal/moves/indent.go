package moves

import (
	"strings"

	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

// detectIndents looks at the lines of each replaced block, paired by
// position, for pairs that only differ in leading white space.
func detectIndents(ops []opcode.Opcode, orig, mod *seq.Sequence) []Indent {
	var out []Indent
	for _, op := range ops {
		if op.Tag != opcode.Replace {
			continue
		}
		n := op.OrigLen()
		if op.ModLen() < n {
			n = op.ModLen()
		}
		for k := 0; k < n; k++ {
			i, j := op.OrigStart+k, op.ModStart+k
			oi, orest := seq.LeadingSpace(strings.TrimSuffix(orig.Text(i), "\r"))
			mi, mrest := seq.LeadingSpace(strings.TrimSuffix(mod.Text(j), "\r"))
			if orest != "" && orest == mrest && oi != mi {
				out = append(out, Indent{Orig: i, Mod: j, OrigIndent: oi, ModIndent: mi})
			}
		}
	}
	return out
}
