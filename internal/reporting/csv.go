package reporting

import (
	"fmt"
	"strings"
)

// RenderMentionsCSV renders mention rows as a CSV string.
func RenderMentionsCSV(rows []MentionRow) string {
	var sb strings.Builder
	sb.WriteString("timestamp_ms,coin,platform,chain,mention_count\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%d\n",
			m.Timestamp, m.Coin, m.Platform, m.Chain, m.MentionCount))
	}
	return sb.String()
}

// RenderEnrichmentsCSV renders enrichment rows as a CSV string. Unreported
// market figures stay empty rather than zero.
func RenderEnrichmentsCSV(rows []EnrichmentRow) string {
	var sb strings.Builder
	sb.WriteString("timestamp_ms,coin,chain,contract_address,market_cap_usd,liquidity_usd,verification\n")
	for _, e := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s\n",
			e.Timestamp, e.Coin, e.Chain, e.ContractAddress,
			csvFloat(e.MarketCapUSD), csvFloat(e.LiquidityUSD), e.Verification))
	}
	return sb.String()
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}
