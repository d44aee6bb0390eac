package domain

// Mention represents an aggregated mention count for one coin in one cycle.
// Corresponds to mentions table in PostgreSQL.
// (platform, coin, chain, timestamp) is unique; duplicate inserts for the
// same cycle are silently ignored by the store.
type Mention struct {
	ID           int64  // BIGSERIAL primary key
	Platform     string // source tag, e.g. "reddit"
	Coin         string // normalized ticker symbol
	Chain        string // chain identifier, "ethereum" when unknown
	MentionCount int    // mentions within the cycle
	Timestamp    int64  // cycle timestamp, Unix milliseconds
	CreatedAt    int64  // record creation timestamp (ms)
}
