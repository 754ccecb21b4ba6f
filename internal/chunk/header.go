package chunk

import (
	"regexp"

	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
)

// How far back to look for a header line.
const headerSearchLimit = 2000

var headerPattern = regexp.MustCompile(`^\s*(?:(?:export|public|private|protected|static|async|abstract|final)\s+)*(?:func|def|class|function|struct|interface|impl|fn|sub|module|type|enum|trait)\b` +
	`|^[A-Za-z_][\w:<>\*&,\s]*\([^;]*\)\s*\{?\s*$`)

// header finds, on each side, the last declaration-looking line before the
// hidden middle of an equal chunk.
func header(orig, mod *seq.Sequence, op opcode.Opcode, contextLines int) Header {
	return Header{
		Orig: findHeader(orig, op.OrigEnd-contextLines),
		Mod:  findHeader(mod, op.ModEnd-contextLines),
	}
}

func findHeader(s *seq.Sequence, before int) *Line {
	stop := before - headerSearchLimit
	if stop < 0 {
		stop = 0
	}
	for i := before - 1; i >= stop; i-- {
		if t := s.Text(i); headerPattern.MatchString(t) {
			return &Line{Number: i + 1, Text: t}
		}
	}
	return nil
}
