package memory

import (
	"context"
	"sort"
	"sync"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu     sync.RWMutex
	rows   []*domain.Enrichment
	nextID int64
	seen   map[analysisKey]struct{}
}

type analysisKey struct {
	coin        string
	chain       string
	timestampMs int64
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		nextID: 1,
		seen:   make(map[analysisKey]struct{}),
	}
}

// Insert adds an enrichment record. A duplicate key is a silent no-op.
func (s *AnalysisStore) Insert(_ context.Context, e *domain.Enrichment) error {
	if e == nil || e.Coin == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := analysisKey{e.Coin, e.Chain, e.Timestamp}
	if _, exists := s.seen[k]; exists {
		return nil
	}
	s.seen[k] = struct{}{}

	enrichmentCopy := *e
	enrichmentCopy.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, &enrichmentCopy)
	return nil
}

// GetByCoin retrieves all enrichment rows for a symbol, newest first.
func (s *AnalysisStore) GetByCoin(_ context.Context, coin string) ([]*domain.Enrichment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Enrichment
	for _, e := range s.rows {
		if e.Coin == coin {
			enrichmentCopy := *e
			result = append(result, &enrichmentCopy)
		}
	}

	sortEnrichmentsDesc(result)
	return result, nil
}

// GetRecent retrieves up to limit enrichment rows, newest first.
// limit <= 0 returns everything.
func (s *AnalysisStore) GetRecent(_ context.Context, limit int) ([]*domain.Enrichment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Enrichment, 0, len(s.rows))
	for _, e := range s.rows {
		enrichmentCopy := *e
		result = append(result, &enrichmentCopy)
	}

	sortEnrichmentsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortEnrichmentsDesc(rows []*domain.Enrichment) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].ID > rows[j].ID
	})
}

// Verify interface compliance at compile time.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)
