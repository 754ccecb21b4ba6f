package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	diskStoreDirPerm  = 0700
	diskStoreFilePerm = 0600

	// Suffix of values being written.
	partialSuffix = ".new"
)

// DiskStore keeps each value in its own file, fanned out into
// subdirectories named after the first two characters of the key.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Get(k Key) (Value, error) {
	if len(k) < 2 {
		return nil, fmt.Errorf("%q: %w", k, ErrNotFound)
	}
	b, err := os.ReadFile(s.pathFor(k))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", k, ErrNotFound)
	}
	return b, errors.WithStack(err)
}

// Put writes to a temporary file first, so that concurrent readers never
// see a partially written value.
func (s *DiskStore) Put(k Key, v Value) error {
	if len(k) < 2 {
		return errorf("DiskStore.Put", "key %q too short", k)
	}
	p := s.pathFor(k)
	pnew := p + partialSuffix
	err := os.WriteFile(pnew, v, diskStoreFilePerm)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.WithStack(err)
		}
		if err = os.MkdirAll(filepath.Dir(pnew), diskStoreDirPerm); err != nil {
			return errors.WithStack(err)
		}
		err = os.WriteFile(pnew, v, diskStoreFilePerm)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(pnew, p))
}

// Delete succeeds for keys that are not present.
func (s *DiskStore) Delete(k Key) error {
	if len(k) < 2 {
		return nil
	}
	err := os.Remove(s.pathFor(k))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "could not delete %v", k)
	}
	return nil
}

func (s *DiskStore) ForEach(cb func(Key) error) error {
	var kk []Key
	err := filepath.Walk(s.dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && !strings.HasSuffix(p, partialSuffix) {
			kk = append(kk, Key(filepath.Base(p)))
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}
	for _, k := range kk {
		if err := cb(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiskStore) Contains(k Key) (bool, error) {
	if len(k) < 2 {
		return false, nil
	}
	_, err := os.Stat(s.pathFor(k))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, errors.WithStack(err)
}

func (s *DiskStore) pathFor(key Key) string {
	k := string(key)
	return filepath.Join(s.dir, k[:2], k)
}
