package seq

import (
	"strings"
	"unicode"
)

func keyFor(text string, opts Options) string {
	text = strings.TrimSuffix(text, "\r")
	if opts.IgnoreWhitespace {
		return CollapseSpace(text)
	}
	return text
}

// CollapseSpace trims s and replaces every run of white space with a single
// space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripSpace removes all white space from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// LeadingSpace returns the indentation of s and the rest of the line.
func LeadingSpace(s string) (indent, rest string) {
	rest = strings.TrimLeftFunc(s, unicode.IsSpace)
	return s[:len(s)-len(rest)], rest
}

// IsBlank reports whether s only contains white space.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
