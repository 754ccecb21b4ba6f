// Package seq turns raw file content into immutable, line-addressable
// sequences. Each line keeps the text as it appeared in the input (without
// its newline) and a comparison key, which is what the differ looks at.
package seq

import (
	"strings"
)

// Line is a single line of a Sequence.
type Line struct {
	// Text is the line as decoded, without the trailing newline.
	Text string

	// Key is what lines are compared by.
	Key string
}

// Sequence is an ordered, 0-indexed list of lines. It must not be modified
// after construction; artifacts and chunks share it.
type Sequence struct {
	lines []Line

	// Whether the last line was terminated by a newline.
	// An empty sequence reports true.
	finalNewline bool
}

// Options controls how comparison keys are derived from line text.
type Options struct {
	IgnoreWhitespace bool
}

// New splits text into lines. A trailing newline does not produce an empty
// last line.
func New(text string, opts Options) *Sequence {
	s := &Sequence{finalNewline: true}
	if text == "" {
		return s
	}
	if !strings.HasSuffix(text, "\n") {
		s.finalNewline = false
	} else {
		text = text[:len(text)-1]
	}
	raw := strings.Split(text, "\n")
	s.lines = make([]Line, len(raw))
	for i, t := range raw {
		s.lines[i] = Line{Text: t, Key: keyFor(t, opts)}
	}
	return s
}

// FromLines builds a sequence from lines that carry no newline characters.
func FromLines(lines []string, opts Options) *Sequence {
	s := &Sequence{
		lines:        make([]Line, len(lines)),
		finalNewline: true,
	}
	for i, t := range lines {
		s.lines[i] = Line{Text: t, Key: keyFor(t, opts)}
	}
	return s
}

func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.lines)
}

func (s *Sequence) Line(i int) Line {
	return s.lines[i]
}

func (s *Sequence) Text(i int) string {
	return s.lines[i].Text
}

func (s *Sequence) Key(i int) string {
	return s.lines[i].Key
}

// Texts returns the text of lines [from, to).
func (s *Sequence) Texts(from, to int) []string {
	out := make([]string, 0, to-from)
	for _, l := range s.lines[from:to] {
		out = append(out, l.Text)
	}
	return out
}

// FinalNewline reports whether the content ended with a newline.
func (s *Sequence) FinalNewline() bool {
	return s == nil || s.finalNewline
}

// String reassembles the sequence into the text it was built from.
func (s *Sequence) String() string {
	if s.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, l := range s.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	if s.finalNewline {
		b.WriteByte('\n')
	}
	return b.String()
}
