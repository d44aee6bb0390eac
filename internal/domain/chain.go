package domain

// ChainMetadata tracks the RPC endpoint and sync state for one chain.
// Corresponds to chain_metadata table in PostgreSQL (chain is the PK).
type ChainMetadata struct {
	Chain         string // chain identifier, e.g. "ethereum"
	RPCURL        string // provider endpoint
	LastSyncBlock int64  // last block/slot observed during verification
	LastUpdated   int64  // Unix timestamp in milliseconds
}
