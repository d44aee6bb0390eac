package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Default CoinGecko knobs.
const (
	DefaultAPIBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultRetryBackoff = 60 * time.Second
)

// CoinGeckoOptions configures a CoinGecko market-data source.
type CoinGeckoOptions struct {
	APIBaseURL   string        // override for tests
	RetryBackoff time.Duration // backoff when the server gives no Retry-After
	HTTPClient   *http.Client
	Logger       zerolog.Logger

	// Breaker overrides the default circuit-breaker settings when non-nil.
	Breaker *gobreaker.Settings
}

// CoinGecko looks up coin metadata by lowercased symbol. Requests run
// through a circuit breaker so a dead upstream fails fast instead of
// burning the cycle's rate budget.
type CoinGecko struct {
	baseURL      string
	retryBackoff time.Duration
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker
	logger       zerolog.Logger
}

// NewCoinGecko creates a CoinGecko market-data source.
func NewCoinGecko(opts CoinGeckoOptions) *CoinGecko {
	baseURL := opts.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	retryBackoff := opts.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = DefaultRetryBackoff
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	settings := gobreaker.Settings{
		Name:        "coingecko",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if opts.Breaker != nil {
		settings = *opts.Breaker
	}

	return &CoinGecko{
		baseURL:      baseURL,
		retryBackoff: retryBackoff,
		client:       client,
		breaker:      gobreaker.NewCircuitBreaker(settings),
		logger:       opts.Logger,
	}
}

// Compile-time interface check.
var _ MarketDataSource = (*CoinGecko)(nil)

// coinPayload mirrors the subset of the /coins/{id} payload we consume.
type coinPayload struct {
	AssetPlatformID string `json:"asset_platform_id"`
	ContractAddress string `json:"contract_address"`
	MarketData      struct {
		MarketCap   map[string]float64 `json:"market_cap"`
		TotalVolume map[string]float64 `json:"total_volume"`
	} `json:"market_data"`
}

// Lookup fetches metadata for a symbol. The coin id is the lowercased
// symbol. A 404 surfaces ErrNotFound, a 429 is retried once after backoff
// and then surfaced as ErrRateLimited.
func (c *CoinGecko) Lookup(ctx context.Context, symbol string) (*MarketData, error) {
	id := strings.ToLower(symbol)

	backedOff := false
	for {
		payload, status, err := c.get(ctx, id)
		switch {
		case err != nil:
			return nil, err

		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)

		case status == http.StatusTooManyRequests:
			if backedOff {
				return nil, fmt.Errorf("%w: still throttled after backoff", ErrRateLimited)
			}
			backedOff = true
			wait := retryAfter(payload.header, c.retryBackoff)
			c.logger.Warn().Str("symbol", symbol).Dur("backoff", wait).Msg("coingecko rate limited, backing off once")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case status != http.StatusOK:
			return nil, fmt.Errorf("coingecko status %d for %s", status, symbol)
		}

		return parseCoin(payload.body)
	}
}

// response bundles body and headers so the retry loop can read Retry-After.
type response struct {
	body   []byte
	header http.Header
}

// get performs one lookup through the circuit breaker. HTTP 4xx responses
// count as breaker successes: the upstream answered, we just dislike the
// answer.
func (c *CoinGecko) get(ctx context.Context, id string) (response, int, error) {
	type result struct {
		resp   response
		status int
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(id))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create coin request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("coin request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read coin response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("coingecko status %d", resp.StatusCode)
		}

		return result{
			resp:   response{body: body, header: resp.Header},
			status: resp.StatusCode,
		}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Str("coin", id).Msg("coingecko circuit open, failing fast")
		}
		return response{}, 0, err
	}

	r := out.(result)
	return r.resp, r.status, nil
}

// parseCoin extracts the fields we persist from a coin payload.
func parseCoin(body []byte) (*MarketData, error) {
	var p coinPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode coin payload: %w", err)
	}

	data := &MarketData{
		Chain:           p.AssetPlatformID,
		ContractAddress: p.ContractAddress,
	}
	if usd, ok := p.MarketData.MarketCap["usd"]; ok {
		data.MarketCapUSD = &usd
	}
	if usd, ok := p.MarketData.TotalVolume["usd"]; ok {
		data.TotalVolumeUSD = &usd
	}
	return data, nil
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryAfter reads the server-indicated backoff, falling back to def.
func retryAfter(header http.Header, def time.Duration) time.Duration {
	if header == nil {
		return def
	}
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
