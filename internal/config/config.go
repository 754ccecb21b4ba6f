package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBaseDirectoryPath is where chunkdiff commands look for their
// configuration and keep their data. It defaults to $CHUNKDIFF_BASE if it
// is set, otherwise to $HOME/lib/chunkdiff. Commands override this via the
// -base flag.
var DefaultBaseDirectoryPath string

func init() {
	if base := os.Getenv("CHUNKDIFF_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/chunkdiff")
	}
}

type C struct {
	// Compare lines ignoring whitespace differences.
	IgnoreWhitespace bool

	// Unchanged lines kept visible around each change. Negative
	// disables collapsing.
	ContextLines int

	// Unpaired deleted and inserted blocks at least this similar are
	// reported as moves. 1 means identical after whitespace
	// normalization.
	SimilarityThreshold float64

	// Above this many lines on either side the anchored heuristic
	// replaces the exact algorithm.
	LargeFileLineThreshold int

	// Hard limits; inputs above them are refused.
	MaxInputLines int
	MaxInputBytes int64

	// Encodings to try, in order, before detecting one.
	Encodings []string

	// "char" or "word".
	IntralineGranularity     string
	IntralineMaxChangeRatio  float64
	IntralineSemanticCleanup bool
	IntralineMaxLineLength   int

	MoveDetection bool
	MoveMinLines  int

	// "indentation" or "moves".
	MovePrecedence string

	// Number of artifacts kept in memory. Zero disables the in-memory tier.
	CacheCapacity int

	// Maximum number of diffs computed concurrently by batch operations.
	// Zero means one per CPU.
	Parallelism int

	// Content and artifact storage: "null", "memory", "disk", "s3" or
	// "paired" (disk backed by s3).
	Storage string

	// Only used by the "disk" and "paired" storage types.
	// If the path is relative, it will be assumed relative to the base dir.
	DiskStoreDir string

	// Only used by the "s3" and "paired" storage types.
	S3Region  string
	S3Bucket  string
	S3Profile string

	// A logrus level name.
	LogLevel string

	// Directory holding the config file and other files.
	// Other directories and files are derived from this.
	base string
}

// Default returns the configuration used for keys missing from the
// configuration file.
func Default() *C {
	return &C{
		ContextLines:             3,
		SimilarityThreshold:      1,
		LargeFileLineThreshold:   10000,
		MaxInputLines:            1000000,
		MaxInputBytes:            64 << 20,
		IntralineGranularity:     "word",
		IntralineMaxChangeRatio:  0.6,
		IntralineSemanticCleanup: true,
		IntralineMaxLineLength:   10000,
		MoveDetection:            true,
		MoveMinLines:             2,
		MovePrecedence:           "indentation",
		CacheCapacity:            256,
		Storage:                  "null",
		DiskStoreDir:             "store",
		LogLevel:                 "info",
	}
}

// Load loads the configuration from the file called "config" in the provided base
// directory.
func Load(base string) (*C, error) {
	const method = "Load"
	filename := filepath.Join(base, "config")
	if fi, err := os.Stat(filename); err != nil {
		return nil, errorf(method, "%w", err)
	} else if fi.Mode()&0077 != 0 {
		return nil, errorf(method, "%q: mode is %#o, want at most %#o",
			filename, fi.Mode()&0777, fi.Mode()&0700)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errorf(method, "%w", err)
	}
	defer func() {
		// Ignore error closing file opened only for reading.
		_ = f.Close()
	}()
	c, err := load(f)
	if err != nil {
		return nil, errorf(method, "%q: %w", filename, err)
	}
	c.base = base
	if c.DiskStoreDir != "" && !filepath.IsAbs(c.DiskStoreDir) {
		c.DiskStoreDir = filepath.Clean(filepath.Join(c.base, c.DiskStoreDir))
	}
	return c, nil
}

func load(f io.Reader) (*C, error) {
	c := Default()
	s := bufio.NewScanner(f)
	lineno := 0
	for s.Scan() {
		lineno++
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " 	")
		if i == -1 {
			return nil, fmt.Errorf("load: line %d: no separator in %q", lineno, line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		if err := c.set(key, val); err != nil {
			return nil, fmt.Errorf("load: line %d: %w", lineno, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

func (c *C) set(key, val string) (err error) {
	switch key {
	case "cache-capacity":
		c.CacheCapacity, err = strconv.Atoi(val)
	case "context-lines":
		c.ContextLines, err = strconv.Atoi(val)
	case "disk-store-dir":
		c.DiskStoreDir = val
	case "encodings":
		c.Encodings = strings.FieldsFunc(val, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
	case "ignore-whitespace":
		c.IgnoreWhitespace, err = strconv.ParseBool(val)
	case "intraline-granularity":
		c.IntralineGranularity = val
	case "intraline-max-change-ratio":
		c.IntralineMaxChangeRatio, err = strconv.ParseFloat(val, 64)
	case "intraline-semantic-cleanup":
		c.IntralineSemanticCleanup, err = strconv.ParseBool(val)
	case "intraline-max-line-length":
		c.IntralineMaxLineLength, err = strconv.Atoi(val)
	case "large-file-line-threshold":
		c.LargeFileLineThreshold, err = strconv.Atoi(val)
	case "log-level":
		c.LogLevel = val
	case "max-input-bytes":
		c.MaxInputBytes, err = strconv.ParseInt(val, 10, 64)
	case "max-input-lines":
		c.MaxInputLines, err = strconv.Atoi(val)
	case "move-detection":
		c.MoveDetection, err = strconv.ParseBool(val)
	case "move-min-lines":
		c.MoveMinLines, err = strconv.Atoi(val)
	case "move-precedence":
		c.MovePrecedence = val
	case "parallelism":
		c.Parallelism, err = strconv.Atoi(val)
	case "s3-bucket":
		c.S3Bucket = val
	case "s3-profile":
		c.S3Profile = val
	case "s3-region":
		c.S3Region = val
	case "similarity-threshold":
		c.SimilarityThreshold, err = strconv.ParseFloat(val, 64)
		if err == nil && (c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1) {
			err = fmt.Errorf("%v is not in [0, 1]", c.SimilarityThreshold)
		}
	case "storage":
		c.Storage = val
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// An instance of *storage.Paired will log keys to propagate from the
// fast store to the slow store to this append-only log. This will
// ensure all data is eventually copied to the slow store, even if
// the process restarts.
func (c *C) PropagationLogFilePath() string {
	return filepath.Join(c.base, "propagation.log")
}

// Initialize generates an initial configuration at the given directory.
func Initialize(baseDir string) error {
	const method = "Initialize"
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return errorf(method, "%q: could not mkdir: %w", baseDir, err)
	}
	path := filepath.Join(baseDir, "config")
	_, err := os.Stat(path)
	if err == nil {
		return errorf(method, "%q: already exists", path)
	}
	if !os.IsNotExist(err) {
		return errorf(method, "%q: could not determine if it exists: %w", path, err)
	}
	d := Default()
	var buf bytes.Buffer
	buf.WriteString("# chunkdiff configuration; see config.C for all keys.\n")
	fmt.Fprintf(&buf, "context-lines %d\n", d.ContextLines)
	fmt.Fprintf(&buf, "ignore-whitespace %t\n", d.IgnoreWhitespace)
	fmt.Fprintf(&buf, "similarity-threshold %g\n", d.SimilarityThreshold)
	fmt.Fprintf(&buf, "large-file-line-threshold %d\n", d.LargeFileLineThreshold)
	fmt.Fprintf(&buf, "move-detection %t\n", d.MoveDetection)
	fmt.Fprintf(&buf, "move-precedence %s\n", d.MovePrecedence)
	fmt.Fprintf(&buf, "cache-capacity %d\n", d.CacheCapacity)
	buf.WriteString("storage disk\n")
	fmt.Fprintf(&buf, "disk-store-dir %s\n", d.DiskStoreDir)
	fmt.Fprintf(&buf, "log-level %s\n", d.LogLevel)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errorf(method, "%q: %w", path, err)
	}
	return nil
}
