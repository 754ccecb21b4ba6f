package storage

import (
	"fmt"
	"sort"
	"sync"
)

// InMemory implements Enumerable. The zero value is ready to use.
type InMemory struct {
	sync.Mutex
	m map[Key]Value
}

func (s *InMemory) Get(k Key) (Value, error) {
	s.Lock()
	defer s.Unlock()
	v, ok := s.m[k]
	if !ok {
		return nil, fmt.Errorf("%q: %w", k, ErrNotFound)
	}
	return v, nil
}

func (s *InMemory) Put(k Key, v Value) error {
	s.Lock()
	defer s.Unlock()
	if s.m == nil {
		s.m = make(map[Key]Value)
	}
	s.m[k] = append(Value(nil), v...)
	return nil
}

func (s *InMemory) Delete(k Key) error {
	s.Lock()
	defer s.Unlock()
	delete(s.m, k)
	return nil
}

func (s *InMemory) Contains(k Key) (bool, error) {
	s.Lock()
	defer s.Unlock()
	_, ok := s.m[k]
	return ok, nil
}

// ForEach visits keys in sorted order. The callback may modify the store.
func (s *InMemory) ForEach(cb func(Key) error) error {
	s.Lock()
	kk := make([]Key, 0, len(s.m))
	for k := range s.m {
		kk = append(kk, k)
	}
	s.Unlock()
	sort.Slice(kk, func(i, j int) bool { return kk[i] < kk[j] })
	for _, k := range kk {
		if err := cb(k); err != nil {
			return err
		}
	}
	return nil
}
