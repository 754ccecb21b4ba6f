package cache

import (
	"errors"
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/artifact"
)

// ErrCacheComputationFailed matches, via errors.Is, every error returned
// because the compute function failed.
var ErrCacheComputationFailed = errors.New("cache computation failed")

// ComputeError reports a failed computation to the caller that ran it and
// to all the callers that waited for it.
type ComputeError struct {
	Fingerprint artifact.Fingerprint
	Err         error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("computing %v: %v", e.Fingerprint, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

func (e *ComputeError) Is(target error) bool { return target == ErrCacheComputationFailed }

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff/internal/cache."+typeMethod+": "+format, a...)
}
