package postgres

import (
	"context"
	"fmt"
	"time"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// StatusStore implements storage.StatusStore using PostgreSQL.
type StatusStore struct {
	pool *Pool
}

// NewStatusStore creates a new StatusStore.
func NewStatusStore(pool *Pool) *StatusStore {
	return &StatusStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StatusStore = (*StatusStore)(nil)

// Heartbeat upserts the liveness row for a component. One row per
// component: the latest call overwrites the previous one.
func (s *StatusStore) Heartbeat(ctx context.Context, component string, status domain.Status, message string) error {
	if component == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO system_status (component, status, last_heartbeat, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (component) DO UPDATE SET
			status = EXCLUDED.status,
			last_heartbeat = EXCLUDED.last_heartbeat,
			message = EXCLUDED.message
	`

	now := time.Now().UnixMilli()
	_, err := s.pool.Exec(ctx, query, component, string(status), now, message)
	if err != nil {
		return fmt.Errorf("upsert heartbeat: %w", err)
	}
	return nil
}

// Get retrieves the latest heartbeat for a component.
func (s *StatusStore) Get(ctx context.Context, component string) (*domain.Heartbeat, error) {
	query := `
		SELECT component, status, last_heartbeat, COALESCE(message, '')
		FROM system_status
		WHERE component = $1
	`

	var h domain.Heartbeat
	var status string
	err := s.pool.QueryRow(ctx, query, component).Scan(
		&h.Component,
		&status,
		&h.LastHeartbeat,
		&h.Message,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get heartbeat: %w", err)
	}
	h.Status = domain.Status(status)
	return &h, nil
}
