package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nicolagi/chunkdiff/internal/config"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotImplemented = errors.New("not implemented")
)

// Key names a stored value. Keys are 64 lowercase hex digits, e.g., the
// SHA-256 of the content for raw inputs, or an artifact fingerprint.
type Key string

type Value []byte

type Store interface {
	Get(Key) (Value, error)
	Put(Key, Value) error
	Delete(Key) error
}

type Enumerable interface {
	Store
	Contains(Key) (bool, error)
	ForEach(func(Key) error) error
}

// ContentKey is the key under which content is stored by PutContent.
func ContentKey(content []byte) Key {
	sum := sha256.Sum256(content)
	return Key(hex.EncodeToString(sum[:]))
}

// PutContent stores content under its content key.
func PutContent(s Store, content []byte) (Key, error) {
	k := ContentKey(content)
	if err := s.Put(k, content); err != nil {
		return "", errorf("PutContent", "%v: %w", k, err)
	}
	return k, nil
}

// NewStore builds the store named by c.Storage.
func NewStore(c *config.C) (Store, error) {
	switch c.Storage {
	case "disk":
		return NewDiskStore(c.DiskStoreDir), nil
	case "memory":
		return &InMemory{}, nil
	case "null", "":
		return NullStore{}, nil
	case "s3":
		return newS3Store(c)
	case "paired":
		slow, err := newS3Store(c)
		if err != nil {
			return nil, err
		}
		return NewPaired(NewDiskStore(c.DiskStoreDir), slow, c.PropagationLogFilePath())
	default:
		return nil, fmt.Errorf("%q: %w", c.Storage, ErrNotImplemented)
	}
}
