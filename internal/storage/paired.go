package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Valid prefix byte in the propagation log lines. A pending item is only in the
// fast store, that needs to copied to the slow store. A done item is in the slow
// store and may or may not be in the fast store. A missing item is one that was
// to be propagated from fast to slow store, but was not found in the fast store.
const (
	itemPending = 'p'
	itemMissing = 'm'
	itemDone    = 'd'
)

// The log consists of lines of known length (a byte, a key, a newline).
const (
	keyLength     = 64
	logLineLength = 1 + keyLength + 1
)

type propagationLog struct {
	// Only accessed by the propagating goroutine.
	readOffset int64

	// Signalled, without blocking, after each add.
	notify chan struct{}

	mu   sync.Mutex
	file *os.File
}

// newLog reads the log at pathname (creating it if necessary) and compacts it,
// dropping the items already propagated.
func newLog(pathname string) (*propagationLog, error) {
	const method = "newLog"
	curr, err := os.OpenFile(pathname, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, errorf(method, "open %q read-only: %v", pathname, err)
	}
	next, err := os.OpenFile(pathname+".new", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		_ = curr.Close()
		return nil, errorf(method, "open %q write-only: %v", pathname+".new", err)
	}
	s := bufio.NewScanner(curr)
	for s.Scan() {
		line := s.Text()
		if len(line) != logLineLength-1 {
			return nil, errorf(method, "%q: malformed line %q", curr.Name(), line)
		}
		switch state := line[0]; state {
		case itemPending, itemMissing:
			if _, err := fmt.Fprintln(next, line); err != nil {
				return nil, errorf(method, "copying line from %q to %q: %v", curr.Name(), next.Name(), err)
			}
		case itemDone:
		default:
			return nil, errorf(method, "unrecognized item state: %d", state)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errorf(method, "scan %q: %v", curr.Name(), err)
	}
	if err := curr.Close(); err != nil {
		return nil, errorf(method, "close %q: %v", curr.Name(), err)
	}
	if err := next.Close(); err != nil {
		return nil, errorf(method, "close %q: %v", next.Name(), err)
	}
	if err := os.Rename(next.Name(), curr.Name()); err != nil {
		return nil, errorf(method, "rename %q to %q: %v", next.Name(), curr.Name(), err)
	}
	curr, err = os.OpenFile(pathname, os.O_RDWR, 0600)
	if err != nil {
		return nil, errorf(method, "open %q read-write: %v", pathname, err)
	}
	// Seek to end for writes. (Reads will use ReadAt instead.)
	if _, err := curr.Seek(0, io.SeekEnd); err != nil {
		return nil, errorf(method, "seek %q to EOF: %v", curr.Name(), err)
	}
	return &propagationLog{
		file:   curr,
		notify: make(chan struct{}, 1),
	}, nil
}

func (pl *propagationLog) add(key Key) error {
	if len(key) != keyLength {
		return errorf("propagationLog.add", "key %q: got length %d, want %d", key, len(key), keyLength)
	}
	pl.mu.Lock()
	n, err := fmt.Fprintf(pl.file, "%c%s\n", itemPending, key)
	pl.mu.Unlock()
	if err != nil {
		return err
	}
	if n != logLineLength {
		return fmt.Errorf("written only %d of %d bytes", n, logLineLength)
	}
	select {
	case pl.notify <- struct{}{}:
	default:
	}
	return nil
}

// next reads the line at the read offset into p, waiting for it to be
// written if necessary. It returns false if done is closed first.
func (pl *propagationLog) next(p []byte, done <-chan struct{}) bool {
	for {
		pl.mu.Lock()
		n, err := pl.file.ReadAt(p, pl.readOffset)
		pl.mu.Unlock()
		if n == logLineLength && err == nil {
			return true
		}
		select {
		case <-pl.notify:
		case <-done:
			return false
		}
	}
}

func (pl *propagationLog) mark(state byte, off int64) error {
	pl.mu.Lock()
	n, err := pl.file.WriteAt([]byte{state}, off)
	pl.mu.Unlock()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("wrote %d bytes instead of 1", n)
	}
	return nil
}

func (pl *propagationLog) close() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	err := pl.file.Close()
	pl.file = nil // panic if somebody tries to use the log after this.
	return err
}

// Paired combines a fast local store with a slow durable one, e.g., a
// disk store and an S3 bucket. Paired writes to the fast store and queues
// async writes to the slow store in a log file, so that they survive
// restarts. It reads from the fast store if possible. If not, reads from
// the slow store and copies content to the fast store for next time. It
// deletes from the slow store first and then from the fast store.
type Paired struct {
	retryInterval time.Duration

	fast Store
	slow Store

	log *propagationLog

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var ErrReadOnly = errors.New("read-only store")

// NewPaired creates a write-back cache from fast to slow, and starts
// propagating the items left pending by a previous instance.
// If the log path is empty, the store is read-only and puts will fail.
func NewPaired(fast, slow Store, logPath string) (*Paired, error) {
	p := &Paired{
		retryInterval: 5 * time.Second,
		fast:          fast,
		slow:          slow,
		done:          make(chan struct{}),
	}
	if logPath != "" {
		var err error
		if p.log, err = newLog(logPath); err != nil {
			return nil, err
		}
		p.wg.Add(1)
		go p.propagate()
	}
	return p, nil
}

func (p *Paired) Get(k Key) (v Value, err error) {
	v, err = p.fast.Get(k)
	if errors.Is(err, ErrNotFound) {
		v, err = p.slow.Get(k)
		if err == nil {
			if e := p.fast.Put(k, v); e != nil {
				log.WithFields(log.Fields{
					"key":   k,
					"cause": e.Error(),
				}).Warning("Could not write item to the fast store")
			}
		}
	}
	return
}

// Put writes an item to the fast store and logs it to be written to the
// slow store asynchronously.
func (p *Paired) Put(k Key, v Value) error {
	if p.log == nil {
		return ErrReadOnly
	}
	if err := p.fast.Put(k, v); err != nil {
		return err
	}
	return p.log.add(k)
}

// Delete deletes an item from the slow store first, then from the fast store second. Note that if done in the other
// order, a concurrent Get could replenish the fast store from the slow store after the deletion, e.g., (1) delete from
// fast, (2) get from slow, (3) replenish fast, (4) delete from slow. Steps (1) and (4) belong to this method while (2)
// and (3) belong to Get.
func (p *Paired) Delete(k Key) error {
	if err := p.slow.Delete(k); err != nil {
		return err
	}
	return p.fast.Delete(k)
}

// Close stops propagation. Items not yet propagated stay pending in the
// log, for the next instance to pick up.
func (p *Paired) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		if p.log != nil {
			err = p.log.close()
		}
	})
	return err
}

func (p *Paired) propagate() {
	defer p.wg.Done()
	sem := make(chan struct{}, 16)
	line := make([]byte, logLineLength)
	for p.log.next(line, p.done) {
		k := Key(line[1 : 1+keyLength])
		off := p.log.readOffset
		p.log.readOffset += logLineLength // Advance to next line.
		if state := line[0]; state != itemPending && state != itemMissing {
			if state != itemDone {
				log.WithField("state", state).Warning("Skipping item with unexpected state")
			}
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-p.done:
			return
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer func() { <-sem }()
			p.upload(k, off)
		}()
	}
}

func (p *Paired) upload(key Key, off int64) {
	value, err := p.fast.Get(key)
	if err != nil {
		// If we can't update it in the log, it will be re-processed (needless but idempotent).
		_ = p.log.mark(itemMissing, off)
		return
	}
	for {
		if err = p.slow.Put(key, value); err == nil {
			break
		}
		log.WithFields(log.Fields{
			"key":   key,
			"cause": err.Error(),
		}).Warning("Could not put item to the slow store, will retry")
		select {
		case <-time.After(p.retryInterval):
		case <-p.done:
			return
		}
	}
	// If we can't update it in the log, it will be re-processed (needless but idempotent).
	_ = p.log.mark(itemDone, off)
}
