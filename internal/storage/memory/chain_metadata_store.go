package memory

import (
	"context"
	"sync"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// ChainMetadataStore is an in-memory implementation of storage.ChainMetadataStore.
type ChainMetadataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ChainMetadata // keyed by chain
}

// NewChainMetadataStore creates a new in-memory chain metadata store.
func NewChainMetadataStore() *ChainMetadataStore {
	return &ChainMetadataStore{
		data: make(map[string]*domain.ChainMetadata),
	}
}

// Upsert inserts or replaces the row for the chain.
func (s *ChainMetadataStore) Upsert(_ context.Context, m *domain.ChainMetadata) error {
	if m == nil || m.Chain == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metadataCopy := *m
	s.data[m.Chain] = &metadataCopy
	return nil
}

// Get retrieves metadata for a chain. Returns ErrNotFound if not exists.
func (s *ChainMetadataStore) Get(_ context.Context, chainName string) (*domain.ChainMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[chainName]
	if !exists {
		return nil, storage.ErrNotFound
	}

	metadataCopy := *m
	return &metadataCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.ChainMetadataStore = (*ChainMetadataStore)(nil)
