package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nulzo/prism-copy/internal/kv"
)

// Store keeps values in process memory. Used in tests and when no durable
// backend is configured.
type Store struct {
	items map[string][]byte
	mu    sync.RWMutex
}

func New() *Store {
	return &Store{
		items: make(map[string][]byte),
	}
}

func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.items[key]
	if !exists {
		return kv.ErrNotFound
	}

	return json.Unmarshal(data, dest)
}

func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Store) Close() error {
	return nil
}
