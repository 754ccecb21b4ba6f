package chunk

import (
	"errors"
	"fmt"
)

// ErrRangeOutOfBounds is returned when expanding lines a chunk doesn't have.
var ErrRangeOutOfBounds = errors.New("range out of bounds")

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff/internal/chunk."+typeMethod+": "+format, a...)
}
