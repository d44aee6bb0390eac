package storage

import (
	"context"

	"meme-radar/internal/domain"
)

// MentionStore provides access to mentions storage.
type MentionStore interface {
	// Insert adds a mention record. A duplicate
	// (platform, coin, chain, timestamp) for the same cycle is a silent
	// no-op, not an error.
	Insert(ctx context.Context, m *domain.Mention) error

	// GetByCoin retrieves all mentions for a symbol, newest first.
	GetByCoin(ctx context.Context, coin string) ([]*domain.Mention, error)

	// GetRecent retrieves up to limit mentions across all symbols,
	// newest first. limit <= 0 means no limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.Mention, error)
}

// AnalysisStore provides access to analysis (enrichment) storage.
type AnalysisStore interface {
	// Insert adds an enrichment record. A duplicate
	// (coin, chain, timestamp) is a silent no-op.
	Insert(ctx context.Context, e *domain.Enrichment) error

	// GetByCoin retrieves all enrichment rows for a symbol, newest first.
	GetByCoin(ctx context.Context, coin string) ([]*domain.Enrichment, error)

	// GetRecent retrieves up to limit enrichment rows, newest first.
	// limit <= 0 means no limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.Enrichment, error)
}

// ChainMetadataStore provides access to chain_metadata storage.
type ChainMetadataStore interface {
	// Upsert inserts or replaces the row for the chain.
	Upsert(ctx context.Context, m *domain.ChainMetadata) error

	// Get retrieves metadata for a chain. Returns ErrNotFound if not exists.
	Get(ctx context.Context, chainName string) (*domain.ChainMetadata, error)
}

// TrendArchiveStore provides access to the long-horizon trend archive.
// The archive is optional: the pipeline runs without it.
type TrendArchiveStore interface {
	// InsertBulk appends the cycle's observations.
	InsertBulk(ctx context.Context, points []*domain.TrendPoint) error

	// GetByCoin retrieves up to limit observations for a symbol,
	// newest first. limit <= 0 means no limit.
	GetByCoin(ctx context.Context, coin string, limit int) ([]*domain.TrendPoint, error)
}

// StatusStore provides access to system_status storage.
type StatusStore interface {
	// Heartbeat upserts the liveness row for a component: the latest call
	// overwrites the previous one, one row per component.
	Heartbeat(ctx context.Context, component string, status domain.Status, message string) error

	// Get retrieves the latest heartbeat for a component.
	// Returns ErrNotFound if the component never reported.
	Get(ctx context.Context, component string) (*domain.Heartbeat, error)
}
