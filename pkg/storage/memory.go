package storage

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store used in tests and demo runs.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	maxBytes int64
}

// NewMemoryStore returns an empty store. maxBytes <= 0 disables the quota.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{data: map[string]string{}, maxBytes: maxBytes}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBytes > 0 {
		var used int64
		for k, v := range s.data {
			if k != key {
				used += int64(len(v))
			}
		}
		if used+int64(len(value)) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
