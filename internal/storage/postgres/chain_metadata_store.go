package postgres

import (
	"context"
	"fmt"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// ChainMetadataStore implements storage.ChainMetadataStore using PostgreSQL.
type ChainMetadataStore struct {
	pool *Pool
}

// NewChainMetadataStore creates a new ChainMetadataStore.
func NewChainMetadataStore(pool *Pool) *ChainMetadataStore {
	return &ChainMetadataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChainMetadataStore = (*ChainMetadataStore)(nil)

// Upsert inserts or replaces the row for the chain.
func (s *ChainMetadataStore) Upsert(ctx context.Context, m *domain.ChainMetadata) error {
	if m == nil || m.Chain == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO chain_metadata (chain, rpc_url, last_sync_block, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain) DO UPDATE SET
			rpc_url = EXCLUDED.rpc_url,
			last_sync_block = EXCLUDED.last_sync_block,
			last_updated = EXCLUDED.last_updated
	`

	_, err := s.pool.Exec(ctx, query, m.Chain, m.RPCURL, m.LastSyncBlock, m.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert chain metadata: %w", err)
	}
	return nil
}

// Get retrieves metadata for a chain. Returns ErrNotFound if not exists.
func (s *ChainMetadataStore) Get(ctx context.Context, chainName string) (*domain.ChainMetadata, error) {
	query := `
		SELECT chain, rpc_url, last_sync_block, last_updated
		FROM chain_metadata
		WHERE chain = $1
	`

	var m domain.ChainMetadata
	err := s.pool.QueryRow(ctx, query, chainName).Scan(
		&m.Chain,
		&m.RPCURL,
		&m.LastSyncBlock,
		&m.LastUpdated,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get chain metadata: %w", err)
	}
	return &m, nil
}
