package artifact

import "fmt"

func errorf(typeMethod, format string, a ...interface{}) error {
	return fmt.Errorf("github.com/nicolagi/chunkdiff/internal/artifact."+typeMethod+": "+format, a...)
}
