package clickhouse

import (
	"context"
	"fmt"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// TrendArchiveStore implements storage.TrendArchiveStore using ClickHouse.
// The archive is append-only; MergeTree does not enforce uniqueness and the
// pipeline never re-emits the same (coin, timestamp) pair within a process.
type TrendArchiveStore struct {
	conn *Conn
}

// NewTrendArchiveStore creates a new TrendArchiveStore.
func NewTrendArchiveStore(conn *Conn) *TrendArchiveStore {
	return &TrendArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TrendArchiveStore = (*TrendArchiveStore)(nil)

// InsertBulk appends a batch of trend points.
func (s *TrendArchiveStore) InsertBulk(ctx context.Context, points []*domain.TrendPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trend_archive (
			platform, coin_name, mention_count, trending, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		trending := uint8(0)
		if p.Trending {
			trending = 1
		}
		err = batch.Append(
			p.Platform, p.Coin, uint32(p.MentionCount), trending, p.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCoin retrieves the most recent points for a coin, newest first.
// limit <= 0 returns everything.
func (s *TrendArchiveStore) GetByCoin(ctx context.Context, coin string, limit int) ([]*domain.TrendPoint, error) {
	if coin == "" {
		return nil, fmt.Errorf("%w: coin is empty", storage.ErrInvalidInput)
	}

	query := `
		SELECT platform, coin_name, mention_count, trending, timestamp_ms
		FROM trend_archive
		WHERE coin_name = ?
		ORDER BY timestamp_ms DESC
	`
	args := []interface{}{coin}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by coin: %w", err)
	}
	defer rows.Close()

	return scanTrendPoints(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTrendPoints scans multiple rows into a slice.
func scanTrendPoints(rows chRows) ([]*domain.TrendPoint, error) {
	var points []*domain.TrendPoint

	for rows.Next() {
		var p domain.TrendPoint
		var mentionCount uint32
		var trending uint8

		err := rows.Scan(&p.Platform, &p.Coin, &mentionCount, &trending, &p.TimestampMs)
		if err != nil {
			return nil, fmt.Errorf("scan trend archive row: %w", err)
		}

		p.MentionCount = int(mentionCount)
		p.Trending = trending == 1
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend archive rows: %w", err)
	}

	return points, nil
}
