package chunk

import "github.com/nicolagi/chunkdiff/internal/opcode"

// Summary counts lines by what happened to them.
type Summary struct {
	Chunks   int `json:"chunks"`
	Equal    int `json:"equal"`
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
	// Rows of replaced blocks, that is, the larger side of each block.
	Replaced int `json:"replaced"`
	// Original lines that moved elsewhere.
	Moved int `json:"moved"`
	// Both sides have lines but only one ends with a newline.
	FinalNewlineChanged bool `json:"final_newline_changed,omitempty"`
}

func Summarize(chunks []Chunk) Summary {
	s := Summary{Chunks: len(chunks)}
	for _, c := range chunks {
		switch c.Tag {
		case opcode.Equal:
			s.Equal += c.OrigLen()
		case opcode.Insert:
			s.Inserted += c.ModLen()
		case opcode.Delete:
			s.Deleted += c.OrigLen()
		case opcode.Replace:
			s.Replaced += c.Rows()
		}
		for _, m := range c.Moves {
			if m.Direction == MovedTo {
				s.Moved += m.Last - m.First + 1
			}
		}
	}
	if n := len(chunks); n > 0 {
		o, m := chunks[n-1].orig, chunks[n-1].mod
		if o != nil && m != nil && o.Len() > 0 && m.Len() > 0 {
			s.FinalNewlineChanged = o.FinalNewline() != m.FinalNewline()
		}
	}
	return s
}

// Changed reports whether any chunk is not Equal or the sides differ in
// their final newline.
func (s Summary) Changed() bool {
	return s.Inserted+s.Deleted+s.Replaced > 0 || s.FinalNewlineChanged
}
