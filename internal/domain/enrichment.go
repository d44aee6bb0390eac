package domain

// Verification states for an enrichment record's contract check.
const (
	VerificationVerified     = "verified"      // contract found on-chain
	VerificationUnverified   = "unverified"    // chain reachable but check failed
	VerificationNotAttempted = "not_attempted" // no RPC endpoint configured for the chain
)

// ContractUnknown is the sentinel stored when the market source reports
// no contract address for a coin.
const ContractUnknown = "unknown"

// Enrichment represents market and on-chain metadata attached to one
// trending symbol in one cycle.
// Corresponds to analysis table in PostgreSQL.
type Enrichment struct {
	ID              int64    // BIGSERIAL primary key
	Coin            string   // normalized ticker symbol
	Chain           string   // chain reported by the market source
	ContractAddress string   // contract address or ContractUnknown
	MarketCapUSD    *float64 // market capitalization in USD, nil if unreported
	LiquidityUSD    *float64 // total volume in USD, nil if unreported
	Verification    string   // one of the Verification* constants
	Timestamp       int64    // cycle timestamp, Unix milliseconds
	CreatedAt       int64    // record creation timestamp (ms)
}
