package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"meme-radar/internal/chain"
	"meme-radar/internal/domain"
)

// fakeSource returns canned market data per symbol.
type fakeSource struct {
	mu      sync.Mutex
	calls   map[string]int
	data    map[string]*MarketData
	errs    map[string]error
	maxBusy int
	busy    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: make(map[string]int),
		data:  make(map[string]*MarketData),
		errs:  make(map[string]error),
	}
}

func (f *fakeSource) Lookup(_ context.Context, symbol string) (*MarketData, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.busy++
	if f.busy > f.maxBusy {
		f.maxBusy = f.busy
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.busy--
		f.mu.Unlock()
	}()

	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	if d, ok := f.data[symbol]; ok {
		dup := *d
		return &dup, nil
	}
	return nil, ErrNotFound
}

func newEnricher(t *testing.T, src MarketDataSource, chains *chain.Registry) *Enricher {
	t.Helper()

	e, err := New(Options{
		Source:         src,
		Chains:         chains,
		CallsPerMinute: 1000,
		Logger:         zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestEnricher_RecordFields(t *testing.T) {
	src := newFakeSource()
	cap := 123456.0
	src.data["DOGE"] = &MarketData{
		Chain:           "ethereum",
		ContractAddress: "0x1234567890abcdef1234567890abcdef12345678",
		MarketCapUSD:    &cap,
	}

	e := newEnricher(t, src, nil)
	result := e.EnrichAll(context.Background(), []string{"DOGE"}, 1700000000000)

	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	r := result.Records[0]
	if r.Coin != "DOGE" || r.Chain != "ethereum" {
		t.Errorf("Identity mismatch: %s / %s", r.Coin, r.Chain)
	}
	if r.MarketCapUSD == nil || *r.MarketCapUSD != 123456.0 {
		t.Errorf("MarketCapUSD mismatch: %v", r.MarketCapUSD)
	}
	if r.LiquidityUSD != nil {
		t.Errorf("Expected nil liquidity, got %v", r.LiquidityUSD)
	}
	if r.Verification != domain.VerificationNotAttempted {
		t.Errorf("Expected not_attempted without a registry, got %s", r.Verification)
	}
	if r.Timestamp != 1700000000000 {
		t.Errorf("Timestamp mismatch: %d", r.Timestamp)
	}
}

func TestEnricher_FallbacksApplied(t *testing.T) {
	src := newFakeSource()
	src.data["NEW"] = &MarketData{} // source reports neither chain nor contract

	e := newEnricher(t, src, nil)
	result := e.EnrichAll(context.Background(), []string{"NEW"}, 1000)

	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	if result.Records[0].Chain != DefaultChain {
		t.Errorf("Expected fallback chain %s, got %s", DefaultChain, result.Records[0].Chain)
	}
	if result.Records[0].ContractAddress != domain.ContractUnknown {
		t.Errorf("Expected unknown contract sentinel, got %s", result.Records[0].ContractAddress)
	}
}

func TestEnricher_NotFoundDroppedSilently(t *testing.T) {
	src := newFakeSource()
	src.data["DOGE"] = &MarketData{Chain: "ethereum"}
	// PEPE is unknown to the source.

	e := newEnricher(t, src, nil)
	result := e.EnrichAll(context.Background(), []string{"DOGE", "PEPE"}, 1000)

	if len(result.Records) != 1 || result.Records[0].Coin != "DOGE" {
		t.Fatalf("Expected only DOGE to survive, got %+v", result.Records)
	}
	if _, failed := result.Failures["PEPE"]; failed {
		t.Errorf("Not-found symbol must be dropped without a recorded failure")
	}
}

func TestEnricher_PerSymbolFailureIsolation(t *testing.T) {
	src := newFakeSource()
	src.data["DOGE"] = &MarketData{Chain: "ethereum"}
	src.errs["PEPE"] = ErrRateLimited

	e := newEnricher(t, src, nil)
	result := e.EnrichAll(context.Background(), []string{"DOGE", "PEPE"}, 1000)

	if len(result.Records) != 1 || result.Records[0].Coin != "DOGE" {
		t.Fatalf("Expected DOGE to survive PEPE's failure, got %+v", result.Records)
	}
	if !errors.Is(result.Failures["PEPE"], ErrRateLimited) {
		t.Errorf("Expected PEPE failure recorded, got %v", result.Failures["PEPE"])
	}
}

func TestEnricher_ConcurrencyCapped(t *testing.T) {
	src := newFakeSource()
	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	for _, s := range symbols {
		src.data[s] = &MarketData{Chain: "ethereum"}
	}

	e, err := New(Options{
		Source:         src,
		Concurrency:    2,
		CallsPerMinute: 1000,
		Logger:         zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := e.EnrichAll(context.Background(), symbols, 1000)
	if len(result.Records) != len(symbols) {
		t.Fatalf("Expected %d records, got %d", len(symbols), len(result.Records))
	}

	src.mu.Lock()
	maxBusy := src.maxBusy
	src.mu.Unlock()
	if maxBusy > 2 {
		t.Errorf("Expected at most 2 concurrent lookups, saw %d", maxBusy)
	}
}

func TestEnricher_VerificationOutcomes(t *testing.T) {
	// Fake EVM endpoint: code exists for one address, empty for the other.
	withCode := "0x1111111111111111111111111111111111111111"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int           `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var result string
		switch req.Method {
		case "eth_getCode":
			result = "0x"
			if addr, ok := req.Params[0].(string); ok && addr == withCode {
				result = "0x6001600081905550"
			}
		case "eth_blockNumber":
			result = "0x64"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		})
	}))
	defer srv.Close()

	registry, err := chain.NewRegistry(
		map[string]string{"ethereum": srv.URL},
		srv.Client(), zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	src := newFakeSource()
	src.data["GOOD"] = &MarketData{Chain: "ethereum", ContractAddress: withCode}
	src.data["BAD"] = &MarketData{Chain: "ethereum", ContractAddress: "0x2222222222222222222222222222222222222222"}
	src.data["FAR"] = &MarketData{Chain: "polygon", ContractAddress: withCode} // no endpoint configured

	e := newEnricher(t, src, registry)
	result := e.EnrichAll(context.Background(), []string{"GOOD", "BAD", "FAR"}, 1000)

	if len(result.Records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(result.Records))
	}

	byCoin := make(map[string]*domain.Enrichment)
	for _, r := range result.Records {
		byCoin[r.Coin] = r
	}

	if got := byCoin["GOOD"].Verification; got != domain.VerificationVerified {
		t.Errorf("GOOD: expected verified, got %s", got)
	}
	if got := byCoin["BAD"].Verification; got != domain.VerificationUnverified {
		t.Errorf("BAD: expected unverified, got %s", got)
	}
	if got := byCoin["FAR"].Verification; got != domain.VerificationNotAttempted {
		t.Errorf("FAR: expected not_attempted, got %s", got)
	}

	if result.Blocks["ethereum"] != 100 {
		t.Errorf("Expected observed ethereum block 100, got %d", result.Blocks["ethereum"])
	}
}

func TestEnricher_RequiresSource(t *testing.T) {
	_, err := New(Options{})
	if err == nil {
		t.Fatal("Expected error for missing source")
	}
}
