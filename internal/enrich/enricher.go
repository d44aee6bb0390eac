package enrich

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meme-radar/internal/chain"
	"meme-radar/internal/domain"
	"meme-radar/internal/ratelimit"
)

// Default enricher knobs.
const (
	DefaultConcurrency    = 4
	DefaultChain          = "ethereum"
	DefaultCallsPerMinute = 30
)

// Options configures an Enricher.
type Options struct {
	Source MarketDataSource // required
	Chains *chain.Registry  // nil disables verification entirely

	Concurrency    int    // concurrent external calls, default 4
	CallsPerMinute int    // rolling 60s budget shared by all calls, default 30
	FallbackChain  string // chain recorded when the source reports none

	Clock  ratelimit.Clock // injectable for tests
	Logger zerolog.Logger
}

// Enricher resolves market and on-chain metadata for trending symbols.
// Work for distinct symbols proceeds concurrently under a shared rolling
// rate-limit window and a concurrency cap.
type Enricher struct {
	source        MarketDataSource
	chains        *chain.Registry
	concurrency   int
	fallbackChain string
	window        *ratelimit.Window
	logger        zerolog.Logger
}

// New creates an Enricher.
func New(opts Options) (*Enricher, error) {
	if opts.Source == nil {
		return nil, errors.New("enrich: market data source is required")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	callsPerMinute := opts.CallsPerMinute
	if callsPerMinute <= 0 {
		callsPerMinute = DefaultCallsPerMinute
	}
	fallbackChain := opts.FallbackChain
	if fallbackChain == "" {
		fallbackChain = DefaultChain
	}
	clock := opts.Clock
	if clock == nil {
		clock = ratelimit.RealClock()
	}

	window, err := ratelimit.NewWindow(callsPerMinute, time.Minute, clock)
	if err != nil {
		return nil, err
	}

	return &Enricher{
		source:        opts.Source,
		chains:        opts.Chains,
		concurrency:   concurrency,
		fallbackChain: fallbackChain,
		window:        window,
		logger:        opts.Logger,
	}, nil
}

// CycleResult is everything one enrichment pass produced.
type CycleResult struct {
	// Records holds one enrichment per surviving symbol, sorted by coin.
	Records []*domain.Enrichment

	// Blocks maps chain name to the highest block or slot observed while
	// verifying contracts this pass.
	Blocks map[string]int64

	// Failures maps symbol to the error that excluded it, except
	// "not found" which drops a symbol silently.
	Failures map[string]error
}

// EnrichAll processes all symbols concurrently and collects the outcome.
// Per-symbol failures never abort the pass.
func (e *Enricher) EnrichAll(ctx context.Context, symbols []string, timestampMs int64) CycleResult {
	result := CycleResult{
		Blocks:   make(map[string]int64),
		Failures: make(map[string]error),
	}
	if len(symbols) == 0 {
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				result.Failures[symbol] = ctx.Err()
				mu.Unlock()
				return
			}

			record, block, err := e.enrichOne(ctx, symbol, timestampMs)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNotFound):
				e.logger.Debug().Str("symbol", symbol).Msg("symbol unknown to market source, dropping")
			case err != nil:
				e.logger.Warn().Err(err).Str("symbol", symbol).Msg("enrichment failed")
				result.Failures[symbol] = err
			default:
				result.Records = append(result.Records, record)
				if block > 0 && block > result.Blocks[record.Chain] {
					result.Blocks[record.Chain] = block
				}
			}
		}(symbol)
	}
	wg.Wait()

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Coin < result.Records[j].Coin
	})
	return result
}

// enrichOne resolves one symbol: market lookup, then contract verification
// when the chain has a configured endpoint.
func (e *Enricher) enrichOne(ctx context.Context, symbol string, timestampMs int64) (*domain.Enrichment, int64, error) {
	if err := e.window.Acquire(ctx); err != nil {
		return nil, 0, err
	}

	data, err := e.source.Lookup(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}

	chainName := data.Chain
	if chainName == "" {
		chainName = e.fallbackChain
	}
	contract := data.ContractAddress
	if contract == "" {
		contract = domain.ContractUnknown
	}

	record := &domain.Enrichment{
		Coin:            symbol,
		Chain:           chainName,
		ContractAddress: contract,
		MarketCapUSD:    data.MarketCapUSD,
		LiquidityUSD:    data.TotalVolumeUSD,
		Verification:    domain.VerificationNotAttempted,
		Timestamp:       timestampMs,
		CreatedAt:       time.Now().UnixMilli(),
	}

	block := e.verify(ctx, record)
	return record, block, nil
}

// verify annotates the record with the on-chain verification outcome and
// returns the block height observed, if any. Verification trouble never
// fails the record.
func (e *Enricher) verify(ctx context.Context, record *domain.Enrichment) int64 {
	if e.chains == nil || !e.chains.Supported(record.Chain) || !e.chains.Configured(record.Chain) {
		return 0
	}
	if record.ContractAddress == domain.ContractUnknown {
		record.Verification = domain.VerificationUnverified
		return 0
	}

	res, err := e.chains.Verify(ctx, record.Chain, record.ContractAddress)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("symbol", record.Coin).
			Str("chain", record.Chain).
			Msg("contract verification unavailable")
		record.Verification = domain.VerificationUnverified
		return 0
	}

	if res.Verified {
		record.Verification = domain.VerificationVerified
	} else {
		record.Verification = domain.VerificationUnverified
	}
	return res.Block
}
