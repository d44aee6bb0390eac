package memory

import (
	"context"
	"sync"
	"time"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// StatusStore is an in-memory implementation of storage.StatusStore.
type StatusStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Heartbeat // keyed by component
	now  func() int64
}

// NewStatusStore creates a new in-memory status store.
func NewStatusStore() *StatusStore {
	return &StatusStore{
		data: make(map[string]*domain.Heartbeat),
		now:  func() int64 { return time.Now().UnixMilli() },
	}
}

// Heartbeat upserts the liveness row for a component.
func (s *StatusStore) Heartbeat(_ context.Context, component string, status domain.Status, message string) error {
	if component == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[component] = &domain.Heartbeat{
		Component:     component,
		Status:        status,
		LastHeartbeat: s.now(),
		Message:       message,
	}
	return nil
}

// Get retrieves the latest heartbeat for a component.
func (s *StatusStore) Get(_ context.Context, component string) (*domain.Heartbeat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hb, exists := s.data[component]
	if !exists {
		return nil, storage.ErrNotFound
	}

	heartbeatCopy := *hb
	return &heartbeatCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.StatusStore = (*StatusStore)(nil)
