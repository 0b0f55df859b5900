// Package sequence hands out monotonically increasing license number counters.
package sequence

import (
	"context"
	"sync"
)

// MemorySequencer keeps counters in process memory. Counters start at 1 and are lost on restart.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[string]int64)}
}

// Seed sets the last issued value of key, so the next call returns value+1.
func (s *MemorySequencer) Seed(key string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key] = value
}

func (s *MemorySequencer) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++

	return s.counters[key], nil
}
