package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
	"meme-radar/internal/storage/postgres"
)

func TestStatusStore_HeartbeatUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewStatusStore(pool)
	ctx := context.Background()

	err := store.Heartbeat(ctx, "runner", domain.StatusRunning, "")
	require.NoError(t, err)

	err = store.Heartbeat(ctx, "runner", domain.StatusIdle, "")
	require.NoError(t, err)

	hb, err := store.Get(ctx, "runner")
	require.NoError(t, err)

	// The second heartbeat must have replaced the first, one row per component.
	assert.Equal(t, "runner", hb.Component)
	assert.Equal(t, domain.StatusIdle, hb.Status)
	assert.NotZero(t, hb.LastHeartbeat)
}

func TestStatusStore_ErrorMessagePersisted(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewStatusStore(pool)
	ctx := context.Background()

	err := store.Heartbeat(ctx, "runner", domain.StatusError, "reddit: rate limited")
	require.NoError(t, err)

	hb, err := store.Get(ctx, "runner")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusError, hb.Status)
	assert.Equal(t, "reddit: rate limited", hb.Message)
}

func TestStatusStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewStatusStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
