package memory

import (
	"context"
	"sort"
	"sync"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// TrendArchiveStore is an in-memory implementation of storage.TrendArchiveStore.
type TrendArchiveStore struct {
	mu   sync.RWMutex
	rows []*domain.TrendPoint
}

// NewTrendArchiveStore creates a new in-memory trend archive store.
func NewTrendArchiveStore() *TrendArchiveStore {
	return &TrendArchiveStore{}
}

// InsertBulk appends a batch of trend points.
func (s *TrendArchiveStore) InsertBulk(_ context.Context, points []*domain.TrendPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.Coin == "" {
			return storage.ErrInvalidInput
		}
		pointCopy := *p
		s.rows = append(s.rows, &pointCopy)
	}
	return nil
}

// GetByCoin retrieves up to limit points for a symbol, newest first.
// limit <= 0 returns everything.
func (s *TrendArchiveStore) GetByCoin(_ context.Context, coin string, limit int) ([]*domain.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrendPoint
	for _, p := range s.rows {
		if p.Coin == coin {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs > result[j].TimestampMs
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TrendArchiveStore = (*TrendArchiveStore)(nil)
