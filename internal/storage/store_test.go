package storage

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/nicolagi/chunkdiff/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFuncs implements Store.
// Its behavior is fully configurable by setting get, put, delete functions.
// Intended for unit tests in this package.
type storeFuncs struct {
	get    func(Key) (Value, error)
	put    func(Key, Value) error
	delete func(Key) error
}

func (s storeFuncs) Get(key Key) (Value, error) {
	if s.get != nil {
		return s.get(key)
	}
	return nil, nil
}

func (s storeFuncs) Put(key Key, value Value) error {
	if s.put != nil {
		return s.put(key, value)
	}
	return nil
}

func (s storeFuncs) Delete(key Key) error {
	if s.delete != nil {
		return s.delete(key)
	}
	return nil
}

// Generate implements quick.Generator, producing keys of the only
// length in use, that of a SHA-256 in hex.
func (Key) Generate(rand *rand.Rand, _ int) reflect.Value {
	return reflect.ValueOf(randomKey(rand))
}

func randomKey(r *rand.Rand) Key {
	var b [32]byte
	if r != nil {
		r.Read(b[:])
	} else {
		rand.Read(b[:])
	}
	return Key(fmt.Sprintf("%x", b))
}

func TestKeyGenerate(t *testing.T) {
	t.Run("random keys are distinct", func(t *testing.T) {
		f := func(k1, k2 Key) bool {
			return k1 != k2
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
	t.Run("random keys have the length of content keys", func(t *testing.T) {
		f := func(k Key, content []byte) bool {
			return len(k) == keyLength && len(ContentKey(content)) == keyLength
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
}

func TestContentKey(t *testing.T) {
	// sha256sum of the empty string.
	assert.Equal(t, Key("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"), ContentKey(nil))
	s := &InMemory{}
	k, err := PutContent(s, []byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, ContentKey([]byte("hello\n")), k)
	v, err := s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(v))

	failing := storeFuncs{put: func(Key, Value) error { return errors.New("full") }}
	_, err = PutContent(failing, []byte("x"))
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	for _, name := range []string{"", "null", "memory", "disk"} {
		c := config.Default()
		c.Storage = name
		c.DiskStoreDir = t.TempDir()
		s, err := NewStore(c)
		require.NoError(t, err, name)
		assert.NotNil(t, s, name)
	}
	c := config.Default()
	c.Storage = "tape"
	_, err := NewStore(c)
	assert.True(t, errors.Is(err, ErrNotImplemented))
	c.Storage = "s3"
	_, err = NewStore(c)
	assert.Error(t, err, "s3 without a bucket")
}

func TestStoreImplementations(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*testing.T) (impl Store, teardown func())
	}{
		{
			"disk",
			func(t *testing.T) (impl Store, teardown func()) {
				impl = NewDiskStore(t.TempDir())
				return
			},
		},
		{
			"memory",
			func(t *testing.T) (impl Store, teardown func()) {
				impl = &InMemory{}
				return
			},
		},
		{
			"s3",
			func(t *testing.T) (impl Store, teardown func()) {
				if s3params == "" {
					t.Skip()
				}
				args := strings.Split(s3params, ",")
				if got, want := len(args), 3; got != want {
					t.Fatalf("got %d, want %d args for S3 store", got, want)
				}
				var err error
				impl, err = newS3Store(&config.C{
					S3Region:  args[0],
					S3Bucket:  args[1],
					S3Profile: args[2],
				})
				if err != nil {
					t.Fatal(err)
				}
				return
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			impl, teardown := c.setup(t)
			if teardown != nil {
				defer teardown()
			}
			testStore(t, impl)
		})
	}
}

var s3params string

func testStore(t *testing.T, impl Store) {
	t.Run("you get what you put", func(t *testing.T) {
		f := func(key Key, value Value) bool {
			err := impl.Put(key, value)
			if err != nil {
				t.Fatal(err)
			}
			v, err := impl.Get(key)
			if err != nil {
				t.Fatal(err)
			}
			return bytes.Equal(v, value)
		}
		if err := quick.Check(f, &quick.Config{MaxCount: 10}); err != nil {
			t.Error(err)
		}
	})
	t.Run("should not get a deleted key", func(t *testing.T) {
		f := func(key Key, value Value) bool {
			err := impl.Put(key, value)
			if err != nil {
				t.Fatal(err)
			}
			err = impl.Delete(key)
			if err != nil {
				t.Fatal(err)
			}
			v, err := impl.Get(key)
			vok := v == nil
			eok := errors.Is(err, ErrNotFound)
			if !eok {
				t.Errorf("got %v of type %T, want wrapper of %v", err, err, ErrNotFound)
			}
			return vok && eok
		}
		if err := quick.Check(f, &quick.Config{MaxCount: 10}); err != nil {
			t.Error(err)
		}
	})
	t.Run("delete inexistent key is successful", func(t *testing.T) {
		f := func(key Key) bool {
			err := impl.Delete(key)
			if err != nil {
				t.Error(err)
				return false
			}
			return true
		}
		if err := quick.Check(f, &quick.Config{MaxCount: 10}); err != nil {
			t.Error(err)
		}
	})
}

func TestMain(m *testing.M) {
	flag.StringVar(&s3params, "s3", "", "region, bucket, and credentials profile for S3 store testing")
	flag.Parse()
	os.Exit(m.Run())
}
