package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	if r.Symbol != "" {
		sb.WriteString(fmt.Sprintf("# Trend Report: %s\n\n", r.Symbol))
	} else {
		sb.WriteString("# Trend Report\n\n")
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Mentions | %d |\n", r.Summary.TotalMentions))
	sb.WriteString(fmt.Sprintf("| Distinct Coins | %d |\n", r.Summary.DistinctCoins))
	sb.WriteString(fmt.Sprintf("| Enrichment Rows | %d |\n", r.Summary.TotalEnrichments))
	sb.WriteString(fmt.Sprintf("| Verified Contracts | %d |\n", r.Summary.VerifiedContracts))
	if r.Summary.DateRangeStart > 0 {
		sb.WriteString(fmt.Sprintf("| First Cycle | %s |\n", formatMs(r.Summary.DateRangeStart)))
		sb.WriteString(fmt.Sprintf("| Last Cycle | %s |\n", formatMs(r.Summary.DateRangeEnd)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Mentions\n\n")
	if len(r.Mentions) > 0 {
		sb.WriteString("| Time | Coin | Platform | Chain | Count |\n")
		sb.WriteString("|------|------|----------|-------|-------|\n")
		for _, m := range r.Mentions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
				formatMs(m.Timestamp), m.Coin, m.Platform, m.Chain, m.MentionCount))
		}
	} else {
		sb.WriteString("No mentions recorded.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Market Data\n\n")
	if len(r.Enrichments) > 0 {
		sb.WriteString("| Time | Coin | Chain | Contract | Market Cap | Liquidity | Verification |\n")
		sb.WriteString("|------|------|-------|----------|------------|-----------|--------------|\n")
		for _, e := range r.Enrichments {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
				formatMs(e.Timestamp), e.Coin, e.Chain, e.ContractAddress,
				formatUSD(e.MarketCapUSD), formatUSD(e.LiquidityUSD), e.Verification))
		}
	} else {
		sb.WriteString("No market data recorded.\n")
	}
	sb.WriteString("\n")

	if len(r.TrendHistory) > 0 {
		sb.WriteString("## Trend History\n\n")
		sb.WriteString("| Time | Count | Trending |\n")
		sb.WriteString("|------|-------|----------|\n")
		for _, t := range r.TrendHistory {
			trending := "no"
			if t.Trending {
				trending = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n",
				formatMs(t.TimestampMs), t.MentionCount, trending))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

func formatUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *v)
}
