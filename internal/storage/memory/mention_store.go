package memory

import (
	"context"
	"sort"
	"sync"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// MentionStore is an in-memory implementation of storage.MentionStore.
type MentionStore struct {
	mu     sync.RWMutex
	rows   []*domain.Mention
	nextID int64
	seen   map[mentionKey]struct{}
}

type mentionKey struct {
	platform    string
	coin        string
	chain       string
	timestampMs int64
}

// NewMentionStore creates a new in-memory mention store.
func NewMentionStore() *MentionStore {
	return &MentionStore{
		nextID: 1,
		seen:   make(map[mentionKey]struct{}),
	}
}

// Insert adds a mention record. A duplicate key is a silent no-op.
func (s *MentionStore) Insert(_ context.Context, m *domain.Mention) error {
	if m == nil || m.Coin == "" || m.Platform == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := mentionKey{m.Platform, m.Coin, m.Chain, m.Timestamp}
	if _, exists := s.seen[k]; exists {
		return nil
	}
	s.seen[k] = struct{}{}

	// Store a copy to prevent external mutation
	mentionCopy := *m
	mentionCopy.ID = s.nextID
	s.nextID++
	s.rows = append(s.rows, &mentionCopy)
	return nil
}

// GetByCoin retrieves all mentions for a symbol, newest first.
func (s *MentionStore) GetByCoin(_ context.Context, coin string) ([]*domain.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Mention
	for _, m := range s.rows {
		if m.Coin == coin {
			mentionCopy := *m
			result = append(result, &mentionCopy)
		}
	}

	sortMentionsDesc(result)
	return result, nil
}

// GetRecent retrieves up to limit mentions, newest first. limit <= 0
// returns everything.
func (s *MentionStore) GetRecent(_ context.Context, limit int) ([]*domain.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Mention, 0, len(s.rows))
	for _, m := range s.rows {
		mentionCopy := *m
		result = append(result, &mentionCopy)
	}

	sortMentionsDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortMentionsDesc orders by timestamp DESC, then id DESC for stability.
func sortMentionsDesc(rows []*domain.Mention) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].ID > rows[j].ID
	})
}

// Verify interface compliance at compile time.
var _ storage.MentionStore = (*MentionStore)(nil)
