package opcode

import (
	"errors"
	"fmt"
)

var (
	// ErrInputTooLarge is returned when an input exceeds the configured
	// hard ceiling on lines.
	ErrInputTooLarge = errors.New("input too large")

	// ErrMalformedInterdiffInput is returned when an opcode list given to
	// Interdiff does not partition its own sequences.
	ErrMalformedInterdiffInput = errors.New("malformed interdiff input")
)

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff/internal/opcode."+typeMethod+": "+format, a...)
}
