package convo

import (
	"context"
	"sync"

	"github.com/aerochat/aerochat/pkg/types"
)

// MemStore is an in-memory [Store]. It is the default backend and the one
// used throughout the tests; production deployments that need history to
// survive restarts use the postgres subpackage instead.
type MemStore struct {
	mu      sync.RWMutex
	threads map[string][]types.Message
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{threads: make(map[string][]types.Message)}
}

func (s *MemStore) Append(ctx context.Context, threadID string, msgs ...types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], msgs...)
	return nil
}

func (s *MemStore) History(ctx context.Context, threadID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.threads[threadID]
	out := make([]types.Message, len(hist))
	copy(out, hist)
	return out, nil
}
