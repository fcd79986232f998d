// Package cursor provides the injected key-value store the pipeline uses to
// remember the last processed file per account. Keeping this behind an
// explicit capability makes lifecycle and persistence guarantees testable
// instead of hiding them in process-lifetime globals.
package cursor

import (
	"context"
	"sync"
)

// Store is a get/put capability keyed by account id. Get returns an empty
// string for unknown accounts.
type Store interface {
	Get(ctx context.Context, accountID string) (string, error)
	Set(ctx context.Context, accountID, value string) error
}

// MemoryStore keeps cursors in process memory. State is lost on restart,
// which is acceptable: cursors are advisory, the archival move is what
// guarantees a file is consumed only once.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory cursor store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, accountID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[accountID], nil
}

func (s *MemoryStore) Set(_ context.Context, accountID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[accountID] = value
	return nil
}
