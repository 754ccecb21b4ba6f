package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/quick"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This is fairly limited, examines only one interleaving of the events that happen concurrently.
func TestPropagationLogPreservesStateAcrossRestarts(t *testing.T) {
	f := func(byteKeys [][32]byte, restart int) bool {
		pathname := disposablePathName(t)
		log, err := newLog(pathname)
		require.NoError(t, err)

		keys := make([]Key, len(byteKeys))
		for i, raw := range byteKeys {
			keys[i] = Key(fmt.Sprintf("%x", raw))
			require.NoError(t, log.add(keys[i]))
		}
		p := make([]byte, logLineLength)
		i := 0
		stop := 0
		if len(byteKeys) > 0 {
			stop = restart % len(byteKeys)
			if stop < 0 {
				stop = -stop
			}
		}
		for ; i < stop; i++ {
			require.True(t, log.next(p, nil))
			if strings.IndexByte("pmd", p[0]) == -1 {
				t.Errorf("unknown state %d", p[0])
				return false
			}
			if nextKey := Key(p[1:65]); nextKey != keys[i] {
				t.Errorf("key mismatch, got %q, want %q", nextKey, keys[i])
				return false
			}
			require.NoError(t, log.mark(itemDone, log.readOffset))
			log.readOffset += logLineLength
		}
		// Shutdown.
		require.NoError(t, log.close())

		// Restart and process the rest: the done items are gone.
		log, err = newLog(pathname)
		require.NoError(t, err)
		defer func() { _ = log.close() }()
		for ; i < len(byteKeys); i++ {
			require.True(t, log.next(p, nil))
			if p[0] != itemPending {
				t.Errorf("got state %c, want %c", p[0], itemPending)
				return false
			}
			if nextKey := Key(p[1:65]); nextKey != keys[i] {
				t.Errorf("key mismatch, got %q, want %q", nextKey, keys[i])
				return false
			}
			log.readOffset += logLineLength
		}
		done := make(chan struct{})
		close(done)
		return !log.next(p, done)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func TestPropagationLogRejectsBadKeys(t *testing.T) {
	log, err := newLog(disposablePathName(t))
	require.NoError(t, err)
	defer func() { _ = log.close() }()
	assert.Error(t, log.add("abc"))
}

func TestPaired(t *testing.T) {
	t.Run("successful put and get from fast store regardless of slow store", func(t *testing.T) {
		defer leaktest.Check(t)()
		fast := &InMemory{}
		paired, err := NewPaired(fast, NullStore{}, disposablePathName(t))
		require.NoError(t, err)
		defer func() { assert.NoError(t, paired.Close()) }()
		f := func(k Key, v []byte) bool {
			if err := paired.Put(k, v); err != nil {
				t.Log(err)
				return false
			}
			after, err := paired.Get(k)
			if err != nil {
				t.Log(err)
				return false
			}
			return bytes.Equal(v, after)
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("get when fast store does not have key and slow store breaks", func(t *testing.T) {
		defer leaktest.Check(t)()
		cannedErr := errors.New("failed")
		slow := storeFuncs{get: func(Key) (Value, error) { return nil, cannedErr }}
		store, err := NewPaired(&InMemory{}, slow, disposablePathName(t))
		require.NoError(t, err)
		defer func() { assert.NoError(t, store.Close()) }()

		after, err := store.Get(randomKey(nil))
		assert.Nil(t, after)
		assert.Equal(t, cannedErr, err)
	})

	t.Run("get propagates from slow to fast", func(t *testing.T) {
		fast := &InMemory{}
		slow := &InMemory{}
		store, err := NewPaired(fast, slow, "")
		require.NoError(t, err)
		f := func(k Key, v []byte) bool {
			if err := slow.Put(k, v); err != nil {
				t.Log(err)
				return false
			}
			after1, err := store.Get(k)
			if err != nil {
				t.Log(err)
				return false
			}
			after2, err := fast.Get(k)
			if err != nil {
				t.Log(err)
				return false
			}
			return bytes.Equal(v, after1) && bytes.Equal(v, after2)
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
		assert.ErrorIs(t, store.Put(randomKey(nil), nil), ErrReadOnly)
	})

	t.Run("get succeeds even if propagation to fast store fails", func(t *testing.T) {
		fast := storeFuncs{
			get: func(Key) (Value, error) { return nil, ErrNotFound },
			put: func(Key, Value) error { return errors.New("failed") },
		}
		slow := &InMemory{}
		store, err := NewPaired(fast, slow, "")
		require.NoError(t, err)
		f := func(k Key, v []byte) bool {
			if err := slow.Put(k, v); err != nil {
				t.Log(err)
				return false
			}
			after, err := store.Get(k)
			if err != nil {
				t.Log(err)
				return false
			}
			return bytes.Equal(v, after)
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("put propagates asynchronously from fast to slow, retrying as necessary", func(t *testing.T) {
		defer leaktest.Check(t)()
		fast := &InMemory{}
		slow1 := &InMemory{}
		var mu sync.Mutex
		putErrs := make(map[Key]int)
		slow := storeFuncs{
			get: slow1.Get,
			put: func(k Key, v Value) error {
				mu.Lock()
				defer mu.Unlock()
				if count := putErrs[k]; count < 5 {
					putErrs[k] = count + 1
					return fmt.Errorf("error %d on put of %v", 1+count, k)
				}
				return slow1.Put(k, v)
			},
		}
		pathname := disposablePathName(t)
		store, err := NewPaired(fast, slow, pathname)
		require.NoError(t, err)
		store.retryInterval = time.Millisecond

		k := randomKey(nil)
		v := Value("some content")
		require.NoError(t, store.Put(k, v))
		contents, err := fast.Get(k)
		require.NoError(t, err)
		assert.Equal(t, v, contents)

		assert.Eventually(t, func() bool {
			after, err := slow1.Get(k)
			return err == nil && bytes.Equal(v, after)
		}, 5*time.Second, 10*time.Millisecond)
		assert.Eventually(t, func() bool {
			b, err := os.ReadFile(pathname)
			return err == nil && len(b) == logLineLength && b[0] == itemDone
		}, 5*time.Second, 10*time.Millisecond)
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
	})

	t.Run("pending items are propagated after a restart", func(t *testing.T) {
		defer leaktest.Check(t)()
		fast := &InMemory{}
		slow := &InMemory{}
		pathname := disposablePathName(t)
		k := randomKey(nil)
		require.NoError(t, fast.Put(k, Value("v")))
		require.NoError(t, os.WriteFile(pathname, []byte(fmt.Sprintf("%c%s\n", itemPending, k)), 0600))

		store, err := NewPaired(fast, slow, pathname)
		require.NoError(t, err)
		defer func() { assert.NoError(t, store.Close()) }()
		assert.Eventually(t, func() bool {
			ok, _ := slow.Contains(k)
			return ok
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("close interrupts retries", func(t *testing.T) {
		defer leaktest.Check(t)()
		slow := storeFuncs{put: func(Key, Value) error { return errors.New("down") }}
		store, err := NewPaired(&InMemory{}, slow, disposablePathName(t))
		require.NoError(t, err)
		store.retryInterval = time.Hour
		require.NoError(t, store.Put(randomKey(nil), Value("v")))
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, store.Close())
	})
}

func disposablePathName(t *testing.T) string {
	return filepath.Join(t.TempDir(), "propagation.log")
}
