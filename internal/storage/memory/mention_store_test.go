package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

func TestMentionStore_InsertAndGet(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	m := &domain.Mention{
		Platform:     "reddit",
		Coin:         "DOGE",
		Chain:        "ethereum",
		MentionCount: 12,
		Timestamp:    1704067200000,
		CreatedAt:    1704067200000,
	}

	err := store.Insert(ctx, m)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByCoin(ctx, "DOGE")
	if err != nil {
		t.Fatalf("GetByCoin failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	if got[0].MentionCount != 12 {
		t.Errorf("MentionCount mismatch: got %d, want 12", got[0].MentionCount)
	}
	if got[0].ID == 0 {
		t.Errorf("Expected assigned ID, got 0")
	}
}

func TestMentionStore_DuplicateIsNoOp(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	m := &domain.Mention{
		Platform:     "reddit",
		Coin:         "DOGE",
		Chain:        "ethereum",
		MentionCount: 12,
		Timestamp:    1704067200000,
	}

	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	// Same key again must not error and must not add a row.
	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("Duplicate insert returned error: %v", err)
	}

	got, err := store.GetRecent(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 row after duplicate insert, got %d", len(got))
	}
}

func TestMentionStore_InvalidInput(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Mention{Platform: "reddit"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty coin, got %v", err)
	}
}

func TestMentionStore_GetRecentOrderAndLimit(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		m := &domain.Mention{
			Platform:     "reddit",
			Coin:         "PEPE",
			Chain:        "ethereum",
			MentionCount: i + 1,
			Timestamp:    ts,
		}
		if err := store.Insert(ctx, m); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].Timestamp != 300 || got[1].Timestamp != 200 {
		t.Errorf("Expected newest first [300 200], got [%d %d]", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestMentionStore_CopySemantics(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	m := &domain.Mention{
		Platform:     "reddit",
		Coin:         "SHIB",
		Chain:        "ethereum",
		MentionCount: 5,
		Timestamp:    1000,
	}
	if err := store.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the original must not affect stored data.
	m.MentionCount = 99

	got, err := store.GetByCoin(ctx, "SHIB")
	if err != nil {
		t.Fatalf("GetByCoin failed: %v", err)
	}
	if got[0].MentionCount != 5 {
		t.Errorf("Stored row mutated externally: got %d, want 5", got[0].MentionCount)
	}
}

func TestMentionStore_ConcurrentInsert(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m := &domain.Mention{
				Platform:     "reddit",
				Coin:         "DOGE",
				Chain:        "ethereum",
				MentionCount: 1,
				Timestamp:    int64(n),
			}
			_ = store.Insert(ctx, m)
		}(i)
	}
	wg.Wait()

	got, err := store.GetRecent(ctx, 0)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("Expected 20 rows, got %d", len(got))
	}
}
