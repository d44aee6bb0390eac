package enrich

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by market-data lookups.
var (
	// ErrNotFound means the market source does not know the symbol.
	// The symbol is dropped from the cycle, not a fatal error.
	ErrNotFound = errors.New("market data not found")

	// ErrRateLimited means the source throttled us and the single retry
	// after backoff did not clear it.
	ErrRateLimited = errors.New("market data rate limited")
)

// MarketData is the raw metadata a market source reports for one symbol.
type MarketData struct {
	Chain           string   // platform identifier, empty when unreported
	ContractAddress string   // empty when unreported
	MarketCapUSD    *float64 // nil when unreported
	TotalVolumeUSD  *float64 // nil when unreported
}

// MarketDataSource looks up market metadata for a ticker symbol.
type MarketDataSource interface {
	Lookup(ctx context.Context, symbol string) (*MarketData, error)
}
