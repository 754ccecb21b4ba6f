package storage

import (
	"github.com/stretchr/testify/mock"
)

// StoreMock is a Store whose behavior is set with testify's On.
type StoreMock struct {
	mock.Mock
}

func (s *StoreMock) Get(k Key) (Value, error) {
	arguments := s.Called(k)
	b, ok := arguments.Get(0).(Value)
	if !ok {
		b = nil
	}
	return b, arguments.Error(1)
}

func (s *StoreMock) Put(k Key, v Value) error {
	return s.Called(k, v).Error(0)
}

func (s *StoreMock) Delete(k Key) error {
	return s.Called(k).Error(0)
}

var _ Store = (*StoreMock)(nil)
