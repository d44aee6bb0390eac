package domain

// TrendPoint is one (cycle, symbol) observation archived for long-horizon
// trend analysis. Corresponds to trend_archive table in ClickHouse.
type TrendPoint struct {
	Platform     string // source tag or "all" for merged counts
	Coin         string // normalized ticker symbol
	MentionCount int    // raw count within the cycle
	Trending     bool   // whether the count met the cycle's threshold
	TimestampMs  int64  // cycle timestamp, Unix milliseconds
}
