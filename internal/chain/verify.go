package chain

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

// Chain identifiers accepted in the registry. Anything else is treated as
// unsupported and verification is not attempted.
const (
	Ethereum  = "ethereum"
	Polygon   = "polygon"
	BSC       = "bsc"
	Arbitrum  = "arbitrum"
	Avalanche = "avalanche"
	Solana    = "solana"
)

// evmChains marks chains that speak the Ethereum JSON-RPC dialect.
var evmChains = map[string]bool{
	Ethereum:  true,
	Polygon:   true,
	BSC:       true,
	Arbitrum:  true,
	Avalanche: true,
}

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// SupportedChains lists every chain the verifier understands.
func SupportedChains() []string {
	return []string{Ethereum, Polygon, BSC, Arbitrum, Avalanche, Solana}
}

// Result is the outcome of a contract verification attempt.
type Result struct {
	Verified bool  // contract account exists on-chain
	Block    int64 // block height / slot observed during the check
	PDAMint  bool  // Solana only: mint address is off-curve (program derived)
}

// Registry maps chain identifiers to RPC clients. A chain without a
// configured endpoint is reported as unconfigured so the caller can
// annotate the record instead of failing.
type Registry struct {
	clients map[string]*rpcClient
	logger  zerolog.Logger
}

// NewRegistry creates a Registry from a chain → endpoint URL mapping.
// Unsupported chain keys are rejected.
func NewRegistry(endpoints map[string]string, client *http.Client, logger zerolog.Logger) (*Registry, error) {
	clients := make(map[string]*rpcClient, len(endpoints))
	for name, endpoint := range endpoints {
		name = strings.ToLower(strings.TrimSpace(name))
		if !evmChains[name] && name != Solana {
			return nil, fmt.Errorf("unsupported chain %q (supported: %v)", name, SupportedChains())
		}
		if endpoint == "" {
			continue
		}
		clients[name] = newRPCClient(endpoint, client)
	}
	return &Registry{clients: clients, logger: logger}, nil
}

// Supported reports whether the chain is one the verifier understands,
// regardless of endpoint configuration.
func (r *Registry) Supported(chainName string) bool {
	name := strings.ToLower(chainName)
	return evmChains[name] || name == Solana
}

// Configured reports whether an RPC endpoint exists for the chain.
func (r *Registry) Configured(chainName string) bool {
	_, ok := r.clients[strings.ToLower(chainName)]
	return ok
}

// Endpoint returns the configured RPC URL for a chain, or "".
func (r *Registry) Endpoint(chainName string) string {
	if c, ok := r.clients[strings.ToLower(chainName)]; ok {
		return c.endpoint
	}
	return ""
}

// Verify checks that the contract address exists on the given chain.
// It fails with ErrUnavailable when the endpoint cannot be reached; a
// reachable chain with no contract at the address yields Verified=false
// and no error.
func (r *Registry) Verify(ctx context.Context, chainName, address string) (Result, error) {
	name := strings.ToLower(chainName)
	client, ok := r.clients[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: no endpoint configured for chain %s", ErrUnavailable, name)
	}

	var res Result
	var err error
	if name == Solana {
		res, err = r.verifySolana(ctx, client, address)
	} else {
		res, err = r.verifyEVM(ctx, client, address)
	}
	if err == nil {
		r.logger.Debug().
			Str("chain", name).
			Str("address", address).
			Bool("verified", res.Verified).
			Int64("block", res.Block).
			Msg("contract verification completed")
	}
	return res, err
}

// verifyEVM checks for deployed bytecode at the address.
func (r *Registry) verifyEVM(ctx context.Context, client *rpcClient, address string) (Result, error) {
	if !evmAddressPattern.MatchString(address) {
		return Result{}, nil
	}

	var code string
	if err := client.call(ctx, "eth_getCode", []interface{}{address, "latest"}, &code); err != nil {
		return Result{}, err
	}

	var blockHex string
	if err := client.call(ctx, "eth_blockNumber", nil, &blockHex); err != nil {
		return Result{}, err
	}
	block, err := parseHexUint(blockHex)
	if err != nil {
		return Result{}, fmt.Errorf("parse block number %q: %w", blockHex, err)
	}

	// An address with no deployed code returns "0x".
	verified := code != "" && code != "0x"
	return Result{Verified: verified, Block: block}, nil
}

// solanaAccountInfo mirrors the subset of getAccountInfo we consume.
type solanaAccountInfo struct {
	Context struct {
		Slot int64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Owner string `json:"owner"`
	} `json:"value"`
}

// verifySolana checks that the mint account exists.
func (r *Registry) verifySolana(ctx context.Context, client *rpcClient, address string) (Result, error) {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		// Not a plausible Solana address; reachable chain, nothing to find.
		var slot int64
		if err := client.call(ctx, "getSlot", nil, &slot); err != nil {
			return Result{}, err
		}
		return Result{Block: slot}, nil
	}

	var info solanaAccountInfo
	params := []interface{}{address, map[string]string{"encoding": "base64"}}
	if err := client.call(ctx, "getAccountInfo", params, &info); err != nil {
		return Result{}, err
	}

	return Result{
		Verified: info.Value != nil,
		Block:    info.Context.Slot,
		PDAMint:  !isOnCurve(raw),
	}, nil
}

// isOnCurve reports whether a 32-byte value is a valid ed25519 point.
// Program derived addresses are intentionally off-curve.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// parseHexUint parses an 0x-prefixed hex quantity.
func parseHexUint(s string) (int64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
