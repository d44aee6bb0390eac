// Package trend thresholds aggregated symbol counts into the trending set.
package trend

import "meme-radar/internal/domain"

// Filter keeps exactly the symbols whose count meets or exceeds threshold.
// The boundary is inclusive: a count equal to threshold is trending.
// Empty input yields an empty set.
func Filter(counts domain.SymbolCounts, threshold int) domain.SymbolCounts {
	trending := make(domain.SymbolCounts)
	for symbol, count := range counts {
		if count >= threshold {
			trending[symbol] = count
		}
	}
	return trending
}
