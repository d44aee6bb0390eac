package memory

import (
	"context"
	"errors"
	"testing"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

func TestStatusStore_HeartbeatUpsert(t *testing.T) {
	store := NewStatusStore()
	ctx := context.Background()

	var tick int64
	store.now = func() int64 { tick++; return tick }

	if err := store.Heartbeat(ctx, "runner", domain.StatusRunning, ""); err != nil {
		t.Fatalf("First heartbeat failed: %v", err)
	}
	if err := store.Heartbeat(ctx, "runner", domain.StatusIdle, ""); err != nil {
		t.Fatalf("Second heartbeat failed: %v", err)
	}

	got, err := store.Get(ctx, "runner")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusIdle {
		t.Errorf("Expected latest status idle, got %s", got.Status)
	}
	if got.LastHeartbeat != 2 {
		t.Errorf("Expected timestamp of latest heartbeat, got %d", got.LastHeartbeat)
	}
}

func TestStatusStore_ErrorMessage(t *testing.T) {
	store := NewStatusStore()
	ctx := context.Background()

	if err := store.Heartbeat(ctx, "runner", domain.StatusError, "reddit: auth failed"); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	got, err := store.Get(ctx, "runner")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Message != "reddit: auth failed" {
		t.Errorf("Message mismatch: got %q", got.Message)
	}
}

func TestStatusStore_NotFound(t *testing.T) {
	store := NewStatusStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStatusStore_InvalidInput(t *testing.T) {
	store := NewStatusStore()
	ctx := context.Background()

	if err := store.Heartbeat(ctx, "", domain.StatusRunning, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
