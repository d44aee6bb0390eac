// Package source provides adapters that fetch raw text items from social
// platforms. Adapters hide pagination and authentication; downstream
// stages only see cleaned posts.
package source

import (
	"context"
	"errors"

	"meme-radar/internal/domain"
)

// Source fetches one batch of posts from a social platform.
type Source interface {
	// Name returns the platform tag recorded on mentions, e.g. "reddit".
	Name() string

	// Fetch retrieves and normalizes one batch of posts. It fails with
	// ErrAuth, ErrRateLimited or ErrTransient.
	Fetch(ctx context.Context) ([]domain.Post, error)
}

// Adapter errors. The pipeline isolates a failing source: its error is
// reported but the cycle proceeds with the remaining sources.
var (
	// ErrAuth means credentials were rejected even after one re-auth attempt.
	ErrAuth = errors.New("source authentication failed")

	// ErrRateLimited means the platform throttled us beyond the single
	// automatic backoff-and-retry.
	ErrRateLimited = errors.New("source rate limited")

	// ErrTransient covers network failures that survived one retry.
	ErrTransient = errors.New("transient source error")
)
