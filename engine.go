package chunkdiff

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nicolagi/chunkdiff/internal/artifact"
	"github.com/nicolagi/chunkdiff/internal/cache"
	"github.com/nicolagi/chunkdiff/internal/config"
	"github.com/nicolagi/chunkdiff/internal/opcode"
	"github.com/nicolagi/chunkdiff/internal/seq"
	"github.com/nicolagi/chunkdiff/internal/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine computes diff artifacts. Engines are safe for concurrent use.
type Engine struct {
	opts   Options
	config string

	cache   Cache
	content storage.Store
	logger  log.FieldLogger
}

type EngineOption func(*Engine)

// WithCache makes the engine share artifacts through c. Without it, every
// request is computed anew and InterdiffFingerprints cannot find anything.
func WithCache(c Cache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithContentStore sets where DiffStored reads content from.
func WithContentStore(s storage.Store) EngineOption {
	return func(e *Engine) {
		e.content = s
	}
}

func WithLogger(l log.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

func New(opts Options, eopts ...EngineOption) *Engine {
	e := &Engine{
		opts:    opts,
		config:  opts.canonical(),
		cache:   cache.Nop{},
		content: storage.NullStore{},
		logger:  log.StandardLogger(),
	}
	for _, o := range eopts {
		o(e)
	}
	return e
}

// NewFromConfig builds an engine from a configuration file's contents:
// its options, a content store, a cache persisting artifacts to the same
// store, and a logger at the configured level.
func NewFromConfig(c *config.C, eopts ...EngineOption) (*Engine, error) {
	const method = "NewFromConfig"
	opts, err := OptionsFromConfig(c)
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errorf(method, "%w", err)
	}
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	store, err := storage.NewStore(c)
	if err != nil {
		return nil, errorf(method, "%w", err)
	}
	cacheOpts := []cache.Option{cache.WithLogger(logger)}
	if _, null := store.(storage.NullStore); !null {
		cacheOpts = append(cacheOpts, cache.WithStore(store, opts.artifact()))
	}
	ch, err := cache.New(c.CacheCapacity, cacheOpts...)
	if err != nil {
		return nil, errorf(method, "%w", err)
	}
	all := append([]EngineOption{WithCache(ch), WithContentStore(store), WithLogger(logger)}, eopts...)
	return New(opts, all...), nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// Diff compares two versions of a file. Content is decoded according to
// the declared encodings, or else detected; content that is not text
// fails with ErrEncodingDetectionFailed.
func (e *Engine) Diff(ctx context.Context, orig, mod []byte) (*Artifact, error) {
	const method = "Engine.Diff"
	if err := e.checkSize(len(orig), len(mod)); err != nil {
		return nil, errorf(method, "%w", err)
	}
	fp := artifact.ForDiff(e.config, orig, mod)
	return e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*artifact.Artifact, error) {
		otext, ocharset, err := seq.Decode(orig, e.opts.Encodings)
		if err != nil {
			return nil, errorf(method, "original: %w", err)
		}
		mtext, mcharset, err := seq.Decode(mod, e.opts.Encodings)
		if err != nil {
			return nil, errorf(method, "modified: %w", err)
		}
		return e.diff(ctx, artifact.Artifact{
			Fingerprint: fp,
			Kind:        artifact.KindDiff,
			Orig:        seq.New(otext, e.opts.sequence()),
			Mod:         seq.New(mtext, e.opts.sequence()),
			OrigCharset: ocharset,
			ModCharset:  mcharset,
		})
	})
}

// DiffLines compares two versions of a file already split into lines.
func (e *Engine) DiffLines(ctx context.Context, orig, mod []string) (*Artifact, error) {
	const method = "Engine.DiffLines"
	if err := e.checkLines(orig, mod); err != nil {
		return nil, errorf(method, "%w", err)
	}
	fp := artifact.ForDiff(e.config+";lines", []byte(joinLines(orig)), []byte(joinLines(mod)))
	return e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*artifact.Artifact, error) {
		return e.diff(ctx, artifact.Artifact{
			Fingerprint: fp,
			Kind:        artifact.KindDiff,
			Orig:        seq.FromLines(orig, e.opts.sequence()),
			Mod:         seq.FromLines(mod, e.opts.sequence()),
		})
	})
}

// DiffStored compares two versions of a file held in the content store.
func (e *Engine) DiffStored(ctx context.Context, origKey, modKey ContentKey) (*Artifact, error) {
	const method = "Engine.DiffStored"
	orig, err := e.fetch(origKey)
	if err != nil {
		return nil, errorf(method, "original: %w", err)
	}
	mod, err := e.fetch(modKey)
	if err != nil {
		return nil, errorf(method, "modified: %w", err)
	}
	return e.Diff(ctx, orig, mod)
}

// Put adds content to the content store, for later use with DiffStored.
func (e *Engine) Put(content []byte) (ContentKey, error) {
	k, err := storage.PutContent(e.content, content)
	if err != nil {
		return "", errorf("Engine.Put", "%w", err)
	}
	return k, nil
}

func (e *Engine) fetch(k ContentKey) ([]byte, error) {
	v, err := e.content.Get(k)
	if err != nil {
		return nil, err
	}
	if got := storage.ContentKey(v); got != k {
		return nil, fmt.Errorf("%v hashes to %v: %w", k, got, ErrContentMismatch)
	}
	return v, nil
}

// diff fills in the opcodes and everything derived from them.
func (e *Engine) diff(ctx context.Context, base artifact.Artifact) (*artifact.Artifact, error) {
	start := time.Now()
	ops, err := opcode.Diff(ctx, base.Orig, base.Mod, e.opts.opcode())
	if err != nil {
		return nil, err
	}
	base.Opcodes = ops
	a, err := artifact.Build(ctx, base, e.opts.artifact())
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(log.Fields{
		"fingerprint": a.Fingerprint.Hex(),
		"orig_lines":  a.Orig.Len(),
		"mod_lines":   a.Mod.Len(),
		"fallback":    e.opts.opcode().UsesFallback(a.Orig.Len(), a.Mod.Len()),
		"chunks":      len(a.Chunks),
		"duration":    time.Since(start).String(),
	}).Debug("Computed diff")
	return a, nil
}

// Interdiff compares two diffs of the same change, relating the modified
// side of a to the modified side of b. Lines are tagged with whether they
// differ between the two diffs and whether they were changed by their own
// diff.
func (e *Engine) Interdiff(ctx context.Context, a, b *Artifact) (*Artifact, error) {
	const method = "Engine.Interdiff"
	if a == nil || b == nil {
		return nil, errorf(method, "missing artifact: %w", ErrMalformedInterdiffInput)
	}
	if a.Kind != artifact.KindDiff || b.Kind != artifact.KindDiff {
		return nil, errorf(method, "got %v and %v, want two diffs: %w", a.Kind, b.Kind, ErrMalformedInterdiffInput)
	}
	fp := artifact.ForInterdiff(e.config, a.Fingerprint, b.Fingerprint)
	return e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*artifact.Artifact, error) {
		return e.interdiff(ctx, fp, [2]Fingerprint{a.Fingerprint, b.Fingerprint}, a.Side(), b.Side())
	})
}

// InterdiffFingerprints is Interdiff for artifacts held by the engine's
// cache.
func (e *Engine) InterdiffFingerprints(ctx context.Context, fa, fb Fingerprint) (*Artifact, error) {
	const method = "Engine.InterdiffFingerprints"
	a, ok := e.cache.Lookup(ctx, fa)
	if !ok {
		return nil, errorf(method, "%v: %w", fa, ErrUnknownFingerprint)
	}
	b, ok := e.cache.Lookup(ctx, fb)
	if !ok {
		return nil, errorf(method, "%v: %w", fb, ErrUnknownFingerprint)
	}
	return e.Interdiff(ctx, a, b)
}

// InterdiffOpcodes is Interdiff for diffs computed elsewhere. Each side's
// opcodes must partition its sequences, and pair equal lines, or the
// call fails with ErrMalformedInterdiffInput.
func (e *Engine) InterdiffOpcodes(ctx context.Context, a, b Side) (*Artifact, error) {
	const method = "Engine.InterdiffOpcodes"
	if a.Orig == nil || a.Mod == nil || b.Orig == nil || b.Mod == nil {
		return nil, errorf(method, "missing sequence: %w", ErrMalformedInterdiffInput)
	}
	fa, fb := e.sideFingerprint(a), e.sideFingerprint(b)
	fp := artifact.ForInterdiff(e.config, fa, fb)
	return e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*artifact.Artifact, error) {
		return e.interdiff(ctx, fp, [2]Fingerprint{fa, fb}, a, b)
	})
}

// sideFingerprint identifies a diff computed elsewhere by its content, the
// line keys its sequences compare by and its opcodes.
func (e *Engine) sideFingerprint(s Side) Fingerprint {
	var b strings.Builder
	b.WriteString(e.config)
	b.WriteString(";opcodes=")
	for _, op := range s.Opcodes {
		fmt.Fprintf(&b, "%v,", op)
	}
	for _, q := range []*Sequence{s.Orig, s.Mod} {
		b.WriteString(";keys=")
		for i := 0; i < q.Len(); i++ {
			k := q.Key(i)
			fmt.Fprintf(&b, "%d:%s", len(k), k)
		}
	}
	return artifact.ForDiff(b.String(), []byte(s.Orig.String()), []byte(s.Mod.String()))
}

func (e *Engine) interdiff(ctx context.Context, fp Fingerprint, parents [2]Fingerprint, a, b Side) (*artifact.Artifact, error) {
	start := time.Now()
	r, err := opcode.Interdiff(ctx, a, b, e.opts.opcode())
	if err != nil {
		return nil, err
	}
	out, err := artifact.Build(ctx, artifact.Artifact{
		Fingerprint:    fp,
		Kind:           artifact.KindInterdiff,
		Parents:        parents,
		Orig:           a.Mod,
		Mod:            b.Mod,
		Opcodes:        r.Opcodes,
		OrigProvenance: r.OrigProvenance,
		ModProvenance:  r.ModProvenance,
	}, e.opts.artifact())
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(log.Fields{
		"fingerprint": fp.Hex(),
		"parents":     []string{parents[0].Hex(), parents[1].Hex()},
		"duration":    time.Since(start).String(),
	}).Debug("Computed interdiff")
	return out, nil
}

// Pair is one input of DiffAll.
type Pair struct {
	Orig, Mod []byte
}

// DiffAll diffs independent pairs concurrently, at most
// Options.Parallelism at a time. Results are in the order of pairs. The
// first failure cancels the remaining work and is returned.
func (e *Engine) DiffAll(ctx context.Context, pairs []Pair) ([]*Artifact, error) {
	out := make([]*Artifact, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.parallelism())
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			a, err := e.Diff(ctx, p.Orig, p.Mod)
			if err != nil {
				return errorf("Engine.DiffAll", "pair %d: %w", i, err)
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) checkSize(n, m int) error {
	if limit := e.opts.MaxInputBytes; limit > 0 && (int64(n) > limit || int64(m) > limit) {
		return fmt.Errorf("%d and %d bytes, limit is %d: %w", n, m, limit, ErrInputTooLarge)
	}
	return nil
}

func (e *Engine) checkLines(orig, mod []string) error {
	for _, lines := range [][]string{orig, mod} {
		for i, l := range lines {
			if strings.ContainsRune(l, '\n') {
				return fmt.Errorf("line %d contains a newline", i+1)
			}
		}
	}
	return e.checkSize(len(joinLines(orig)), len(joinLines(mod)))
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Lookup returns an artifact held by the engine's cache.
func (e *Engine) Lookup(ctx context.Context, fp Fingerprint) (*Artifact, error) {
	a, ok := e.cache.Lookup(ctx, fp)
	if !ok {
		return nil, errorf("Engine.Lookup", "%v: %w", fp, ErrUnknownFingerprint)
	}
	return a, nil
}

// Close releases the content store, for stores that hold resources such as
// background uploads.
func (e *Engine) Close() error {
	if c, ok := e.content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
