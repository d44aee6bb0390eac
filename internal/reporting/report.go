// Package reporting renders stored mention and enrichment data as
// Markdown and CSV for offline review.
package reporting

import "time"

// Report represents one tracker activity report.
type Report struct {
	GeneratedAt time.Time
	Symbol      string // "" means all symbols

	Summary Summary

	// Rows, newest first.
	Mentions     []MentionRow
	Enrichments  []EnrichmentRow
	TrendHistory []TrendRow // populated only with an archive and a symbol filter
}

// Summary contains headline counts over the reported rows.
type Summary struct {
	TotalMentions     int
	DistinctCoins     int
	TotalEnrichments  int
	VerifiedContracts int
	DateRangeStart    int64 // Unix ms, 0 when no rows
	DateRangeEnd      int64 // Unix ms
}

// MentionRow is one mentions table row.
type MentionRow struct {
	Platform     string
	Coin         string
	Chain        string
	MentionCount int
	Timestamp    int64 // Unix ms
}

// EnrichmentRow is one analysis table row.
type EnrichmentRow struct {
	Coin            string
	Chain           string
	ContractAddress string
	MarketCapUSD    *float64
	LiquidityUSD    *float64
	Verification    string
	Timestamp       int64 // Unix ms
}

// TrendRow is one archived (cycle, symbol) observation.
type TrendRow struct {
	Coin         string
	MentionCount int
	Trending     bool
	TimestampMs  int64
}
