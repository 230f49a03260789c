package memory

import (
	"context"
	"sync"

	"nrsnotify/internal/core"
)

// Store is an in-memory WatermarkStore for development and tests.
type Store struct {
	mu   sync.RWMutex
	data map[string]core.Watermarks
}

func New() *Store {
	return &Store{data: make(map[string]core.Watermarks)}
}

// Load implements ports.WatermarkStore. The returned map is a copy.
func (s *Store) Load(_ context.Context, account string) (core.Watermarks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.Watermarks, len(s.data[account]))
	for k, ts := range s.data[account] {
		out[k] = ts
	}
	return out, nil
}

// Save implements ports.WatermarkStore, merging into what is already stored.
func (s *Store) Save(_ context.Context, account string, w core.Watermarks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[account]
	if !ok {
		cur = make(core.Watermarks, len(w))
		s.data[account] = cur
	}
	for k, ts := range w {
		cur[k] = ts
	}
	return nil
}
