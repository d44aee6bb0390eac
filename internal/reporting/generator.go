package reporting

import (
	"context"
	"time"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage"
)

// DefaultLimit bounds unfiltered reports.
const DefaultLimit = 200

// Generator produces reports from stored data.
type Generator struct {
	mentions storage.MentionStore
	analysis storage.AnalysisStore
	archive  storage.TrendArchiveStore // optional

	symbol string
	limit  int
	now    func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator over the two required stores.
func NewGenerator(mentions storage.MentionStore, analysis storage.AnalysisStore) *Generator {
	return &Generator{
		mentions: mentions,
		analysis: analysis,
		limit:    DefaultLimit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithArchive adds trend history from the long-horizon archive.
func (g *Generator) WithArchive(archive storage.TrendArchiveStore) *Generator {
	g.archive = archive
	return g
}

// WithSymbol restricts the report to one ticker symbol.
func (g *Generator) WithSymbol(symbol string) *Generator {
	g.symbol = symbol
	return g
}

// WithLimit caps the number of rows per section. limit <= 0 keeps the default.
func (g *Generator) WithLimit(limit int) *Generator {
	if limit > 0 {
		g.limit = limit
	}
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads the rows and computes the summary.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	mentions, err := g.loadMentions(ctx)
	if err != nil {
		return nil, err
	}
	enrichments, err := g.loadEnrichments(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		Symbol:      g.symbol,
		Summary:     summarize(mentions, enrichments),
		Mentions:    mentions,
		Enrichments: enrichments,
	}

	if g.archive != nil && g.symbol != "" {
		points, err := g.archive.GetByCoin(ctx, g.symbol, g.limit)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			report.TrendHistory = append(report.TrendHistory, TrendRow{
				Coin:         p.Coin,
				MentionCount: p.MentionCount,
				Trending:     p.Trending,
				TimestampMs:  p.TimestampMs,
			})
		}
	}

	return report, nil
}

func (g *Generator) loadMentions(ctx context.Context) ([]MentionRow, error) {
	var (
		rows []*domain.Mention
		err  error
	)
	if g.symbol != "" {
		rows, err = g.mentions.GetByCoin(ctx, g.symbol)
	} else {
		rows, err = g.mentions.GetRecent(ctx, g.limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]MentionRow, 0, len(rows))
	for _, m := range rows {
		out = append(out, MentionRow{
			Platform:     m.Platform,
			Coin:         m.Coin,
			Chain:        m.Chain,
			MentionCount: m.MentionCount,
			Timestamp:    m.Timestamp,
		})
	}
	if g.symbol != "" && len(out) > g.limit {
		out = out[:g.limit]
	}
	return out, nil
}

func (g *Generator) loadEnrichments(ctx context.Context) ([]EnrichmentRow, error) {
	var (
		rows []*domain.Enrichment
		err  error
	)
	if g.symbol != "" {
		rows, err = g.analysis.GetByCoin(ctx, g.symbol)
	} else {
		rows, err = g.analysis.GetRecent(ctx, g.limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]EnrichmentRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, EnrichmentRow{
			Coin:            e.Coin,
			Chain:           e.Chain,
			ContractAddress: e.ContractAddress,
			MarketCapUSD:    e.MarketCapUSD,
			LiquidityUSD:    e.LiquidityUSD,
			Verification:    e.Verification,
			Timestamp:       e.Timestamp,
		})
	}
	if g.symbol != "" && len(out) > g.limit {
		out = out[:g.limit]
	}
	return out, nil
}

func summarize(mentions []MentionRow, enrichments []EnrichmentRow) Summary {
	s := Summary{
		TotalMentions:    len(mentions),
		TotalEnrichments: len(enrichments),
	}

	coins := make(map[string]struct{})
	for _, m := range mentions {
		coins[m.Coin] = struct{}{}
		if s.DateRangeStart == 0 || m.Timestamp < s.DateRangeStart {
			s.DateRangeStart = m.Timestamp
		}
		if m.Timestamp > s.DateRangeEnd {
			s.DateRangeEnd = m.Timestamp
		}
	}
	s.DistinctCoins = len(coins)

	for _, e := range enrichments {
		if e.Verification == domain.VerificationVerified {
			s.VerifiedContracts++
		}
	}
	return s
}
