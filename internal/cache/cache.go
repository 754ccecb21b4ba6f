// Package cache holds diff artifacts by fingerprint, computing each at most
// once at a time no matter how many callers ask for it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nicolagi/chunkdiff/internal/artifact"
	"github.com/nicolagi/chunkdiff/internal/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the artifact for a fingerprint.
type ComputeFunc func(ctx context.Context) (*artifact.Artifact, error)

// Getter is implemented by Cache and Nop.
type Getter interface {
	GetOrCompute(ctx context.Context, fp artifact.Fingerprint, compute ComputeFunc) (*artifact.Artifact, error)
	Lookup(ctx context.Context, fp artifact.Fingerprint) (*artifact.Artifact, bool)
}

type Cache struct {
	recent *lru.Cache[artifact.Fingerprint, *artifact.Artifact]
	flight singleflight.Group

	// Optional persistent tier.
	store   storage.Store
	options artifact.Options

	logger log.FieldLogger
}

type Option func(*Cache)

// WithStore adds a persistent tier: artifacts are written to s after being
// computed, and read back from it when missing from memory. Decoding
// recomputes the derived parts of the artifact with opts.
func WithStore(s storage.Store, opts artifact.Options) Option {
	return func(c *Cache) {
		c.store = s
		c.options = opts
	}
}

func WithLogger(l log.FieldLogger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a cache holding at most capacity artifacts in memory. A
// capacity of zero or less keeps nothing in memory, while still sharing
// concurrent computations and using the persistent tier, if any.
func New(capacity int, opts ...Option) (*Cache, error) {
	c := &Cache{logger: log.StandardLogger()}
	for _, o := range opts {
		o(c)
	}
	if capacity > 0 {
		recent, err := lru.NewWithEvict(capacity, func(fp artifact.Fingerprint, _ *artifact.Artifact) {
			c.logger.WithField("fingerprint", fp.Hex()).Debug("Evicted artifact")
		})
		if err != nil {
			return nil, errorf("New", "%v", err)
		}
		c.recent = recent
	}
	return c, nil
}

// Lookup returns the artifact with the given fingerprint, if it is cached
// in memory or in the persistent tier.
func (c *Cache) Lookup(ctx context.Context, fp artifact.Fingerprint) (*artifact.Artifact, bool) {
	if a, ok := c.fromMemory(fp); ok {
		return a, true
	}
	v, err, _ := c.flight.Do(fp.Hex()+"/lookup", func() (interface{}, error) {
		a := c.fromStore(ctx, fp)
		if a == nil {
			return nil, storage.ErrNotFound
		}
		c.remember(a)
		return a, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(*artifact.Artifact), true
}

// GetOrCompute returns the cached artifact for fp or, if there is none,
// calls compute to produce it. Concurrent calls for the same fingerprint
// share a single call to compute and receive the same artifact. Failures
// are returned as *ComputeError and never cached. A caller whose context
// is done stops waiting and gets the context's error; the computation
// stops once the context of the caller that started it is done, and a
// cancelled computation caches nothing.
func (c *Cache) GetOrCompute(ctx context.Context, fp artifact.Fingerprint, compute ComputeFunc) (*artifact.Artifact, error) {
	if a, ok := c.fromMemory(fp); ok {
		return a, nil
	}
	for {
		ch := c.flight.DoChan(fp.Hex(), func() (a interface{}, err error) {
			defer func() {
				if r := recover(); r != nil {
					a, err = nil, &ComputeError{Fingerprint: fp, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			return c.compute(ctx, fp, compute)
		})
		select {
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(*artifact.Artifact), nil
			}
			var ce *ComputeError
			if isContextError(r.Err) && !errors.As(r.Err, &ce) && ctx.Err() == nil {
				// The caller running the computation gave up; take over.
				continue
			}
			return nil, r.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Cache) compute(ctx context.Context, fp artifact.Fingerprint, compute ComputeFunc) (*artifact.Artifact, error) {
	// Another flight may have finished between the caller's check and
	// this one starting.
	if a, ok := c.fromMemory(fp); ok {
		return a, nil
	}
	if a := c.fromStore(ctx, fp); a != nil {
		c.remember(a)
		return a, nil
	}
	start := time.Now()
	a, err := compute(ctx)
	if err != nil {
		if ctx.Err() != nil && isContextError(err) {
			return nil, err
		}
		return nil, &ComputeError{Fingerprint: fp, Err: err}
	}
	if err := ctx.Err(); err != nil {
		// Finished too late; the result is dropped.
		return nil, err
	}
	if a == nil || a.Fingerprint != fp {
		return nil, &ComputeError{Fingerprint: fp, Err: errorf("Cache.compute", "computed artifact does not have fingerprint %v", fp)}
	}
	c.logger.WithFields(log.Fields{
		"fingerprint": fp.Hex(),
		"duration":    time.Since(start).String(),
	}).Debug("Computed artifact")
	c.remember(a)
	c.persist(a)
	return a, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Len is the number of artifacts held in memory.
func (c *Cache) Len() int {
	if c.recent == nil {
		return 0
	}
	return c.recent.Len()
}

// Purge drops all artifacts held in memory.
func (c *Cache) Purge() {
	if c.recent != nil {
		c.recent.Purge()
	}
}

func (c *Cache) fromMemory(fp artifact.Fingerprint) (*artifact.Artifact, bool) {
	if c.recent == nil {
		return nil, false
	}
	return c.recent.Get(fp)
}

func (c *Cache) remember(a *artifact.Artifact) {
	if c.recent != nil {
		c.recent.Add(a.Fingerprint, a)
	}
}

func (c *Cache) fromStore(ctx context.Context, fp artifact.Fingerprint) *artifact.Artifact {
	if c.store == nil {
		return nil
	}
	data, err := c.store.Get(storage.Key(fp.Hex()))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.WithFields(log.Fields{
				"fingerprint": fp.Hex(),
				"cause":       err.Error(),
			}).Warning("Could not read artifact from store")
		}
		return nil
	}
	a, err := artifact.Decode(ctx, data, c.options)
	if err == nil && a.Fingerprint != fp {
		err = errorf("fromStore", "stored artifact has fingerprint %v", a.Fingerprint)
	}
	if err != nil {
		c.logger.WithFields(log.Fields{
			"fingerprint": fp.Hex(),
			"cause":       err.Error(),
		}).Warning("Could not decode stored artifact")
		return nil
	}
	return a
}

func (c *Cache) persist(a *artifact.Artifact) {
	if c.store == nil {
		return
	}
	data, err := artifact.Encode(a)
	if err == nil {
		err = c.store.Put(storage.Key(a.Fingerprint.Hex()), data)
	}
	if err != nil {
		c.logger.WithFields(log.Fields{
			"fingerprint": a.Fingerprint.Hex(),
			"cause":       err.Error(),
		}).Warning("Could not write artifact to store")
	}
}

// Nop computes every time and remembers nothing.
type Nop struct{}

func (Nop) GetOrCompute(ctx context.Context, fp artifact.Fingerprint, compute ComputeFunc) (*artifact.Artifact, error) {
	a, err := compute(ctx)
	if err != nil {
		if ctx.Err() != nil && isContextError(err) {
			return nil, err
		}
		return nil, &ComputeError{Fingerprint: fp, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func (Nop) Lookup(context.Context, artifact.Fingerprint) (*artifact.Artifact, bool) {
	return nil, false
}

var (
	_ Getter = (*Cache)(nil)
	_ Getter = Nop{}
)
