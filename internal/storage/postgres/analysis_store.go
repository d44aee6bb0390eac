package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds an enrichment record. A duplicate (coin, chain, timestamp)
// is silently ignored.
func (s *AnalysisStore) Insert(ctx context.Context, e *domain.Enrichment) error {
	if e == nil || e.Coin == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO analysis (
			coin_name, chain, contract_address, market_cap, liquidity,
			verification, timestamp_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (coin_name, chain, timestamp_ms) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		e.Coin,
		e.Chain,
		e.ContractAddress,
		e.MarketCapUSD,
		e.LiquidityUSD,
		e.Verification,
		e.Timestamp,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetByCoin retrieves all enrichment rows for a symbol, newest first.
func (s *AnalysisStore) GetByCoin(ctx context.Context, coin string) ([]*domain.Enrichment, error) {
	query := `
		SELECT id, coin_name, chain, contract_address, market_cap, liquidity,
		       verification, timestamp_ms, created_at
		FROM analysis
		WHERE coin_name = $1
		ORDER BY timestamp_ms DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, coin)
	if err != nil {
		return nil, fmt.Errorf("query analysis by coin: %w", err)
	}
	defer rows.Close()

	return scanEnrichments(rows)
}

// GetRecent retrieves up to limit enrichment rows, newest first.
func (s *AnalysisStore) GetRecent(ctx context.Context, limit int) ([]*domain.Enrichment, error) {
	query := `
		SELECT id, coin_name, chain, contract_address, market_cap, liquidity,
		       verification, timestamp_ms, created_at
		FROM analysis
		ORDER BY timestamp_ms DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent analysis: %w", err)
	}
	defer rows.Close()

	return scanEnrichments(rows)
}

// scanEnrichments scans all rows into enrichment records.
func scanEnrichments(rows pgx.Rows) ([]*domain.Enrichment, error) {
	var records []*domain.Enrichment
	for rows.Next() {
		var e domain.Enrichment
		err := rows.Scan(
			&e.ID,
			&e.Coin,
			&e.Chain,
			&e.ContractAddress,
			&e.MarketCapUSD,
			&e.LiquidityUSD,
			&e.Verification,
			&e.Timestamp,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		records = append(records, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis rows: %w", err)
	}
	return records, nil
}
