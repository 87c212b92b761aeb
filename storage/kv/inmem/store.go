package inmemkv

import (
	"context"
	"strings"
	"sync"

	"github.com/trezcool/ieptracker/storage/kv"
)

// Store keeps values in memory, optionally limited to a total size like browser storage is.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int // bytes of keys and values; 0 = unlimited
	size  int
}

var _ kv.Store = (*Store)(nil)

func New(quota int) *Store {
	return &Store{data: make(map[string][]byte), quota: quota}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newSize := s.size + len(value)
	if old, ok := s.data[key]; ok {
		newSize -= len(old)
	} else {
		newSize += len(key)
	}
	if s.quota > 0 && newSize > s.quota {
		return kv.ErrQuotaExceeded
	}
	s.data[key] = append([]byte(nil), value...)
	s.size = newSize
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.data[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Store) Close() error { return nil }

// Size returns the bytes currently used.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
