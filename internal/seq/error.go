package seq

import (
	"errors"
	"fmt"
)

// ErrEncodingDetectionFailed is returned when content cannot be decoded as text.
var ErrEncodingDetectionFailed = errors.New("encoding detection failed")

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff/internal/seq."+typeMethod+": "+format, a...)
}
