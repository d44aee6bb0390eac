package domain

// SymbolCounts maps a normalized ticker symbol (uppercase, length-bounded)
// to its mention count within one cycle.
type SymbolCounts map[string]int

// Add increments the count for a symbol by n.
func (c SymbolCounts) Add(symbol string, n int) {
	c[symbol] += n
}

// Merge sums counts from other into c. Counts from multiple sources
// merge by summation; iteration order is irrelevant.
func (c SymbolCounts) Merge(other SymbolCounts) {
	for symbol, n := range other {
		c[symbol] += n
	}
}
