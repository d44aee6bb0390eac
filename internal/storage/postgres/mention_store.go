package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// MentionStore implements storage.MentionStore using PostgreSQL.
type MentionStore struct {
	pool *Pool
}

// NewMentionStore creates a new MentionStore.
func NewMentionStore(pool *Pool) *MentionStore {
	return &MentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// Insert adds a mention record. A duplicate (platform, coin, chain,
// timestamp) is silently ignored.
func (s *MentionStore) Insert(ctx context.Context, m *domain.Mention) error {
	if m == nil || m.Coin == "" || m.Platform == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO mentions (
			platform, coin_name, chain, mention_count, timestamp_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (platform, coin_name, chain, timestamp_ms) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		m.Platform,
		m.Coin,
		m.Chain,
		m.MentionCount,
		m.Timestamp,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}
	return nil
}

// GetByCoin retrieves all mentions for a symbol, newest first.
func (s *MentionStore) GetByCoin(ctx context.Context, coin string) ([]*domain.Mention, error) {
	query := `
		SELECT id, platform, coin_name, chain, mention_count, timestamp_ms, created_at
		FROM mentions
		WHERE coin_name = $1
		ORDER BY timestamp_ms DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, coin)
	if err != nil {
		return nil, fmt.Errorf("query mentions by coin: %w", err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

// GetRecent retrieves up to limit mentions, newest first.
func (s *MentionStore) GetRecent(ctx context.Context, limit int) ([]*domain.Mention, error) {
	query := `
		SELECT id, platform, coin_name, chain, mention_count, timestamp_ms, created_at
		FROM mentions
		ORDER BY timestamp_ms DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent mentions: %w", err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

// scanMentions scans all rows into mention records.
func scanMentions(rows pgx.Rows) ([]*domain.Mention, error) {
	var mentions []*domain.Mention
	for rows.Next() {
		var m domain.Mention
		err := rows.Scan(
			&m.ID,
			&m.Platform,
			&m.Coin,
			&m.Chain,
			&m.MentionCount,
			&m.Timestamp,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		mentions = append(mentions, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return mentions, nil
}
