package notify

import (
	"context"

	"meme-radar/internal/domain"
)

// Notifier delivers per-coin alerts to an external channel. Delivery
// failures are the caller's to log; they must never affect pipeline state.
type Notifier interface {
	SendAlert(ctx context.Context, mention *domain.Mention, enrichment *domain.Enrichment) error
}
