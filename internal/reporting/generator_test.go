package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"meme-radar/internal/domain"
	"meme-radar/internal/storage/memory"
)

func seedStores(t *testing.T) (*memory.MentionStore, *memory.AnalysisStore, *memory.TrendArchiveStore) {
	t.Helper()
	ctx := context.Background()
	mentions := memory.NewMentionStore()
	analysis := memory.NewAnalysisStore()
	archive := memory.NewTrendArchiveStore()

	cap1 := 1_000_000.0
	rows := []*domain.Mention{
		{Platform: "reddit", Coin: "DOGE", Chain: "ethereum", MentionCount: 12, Timestamp: 1000},
		{Platform: "reddit", Coin: "PEPE", Chain: "ethereum", MentionCount: 8, Timestamp: 1000},
		{Platform: "reddit", Coin: "DOGE", Chain: "ethereum", MentionCount: 9, Timestamp: 2000},
	}
	for _, m := range rows {
		if err := mentions.Insert(ctx, m); err != nil {
			t.Fatalf("insert mention: %v", err)
		}
	}

	enrichments := []*domain.Enrichment{
		{Coin: "DOGE", Chain: "ethereum", ContractAddress: "0xabc", MarketCapUSD: &cap1,
			Verification: domain.VerificationVerified, Timestamp: 1000},
		{Coin: "PEPE", Chain: "ethereum", ContractAddress: domain.ContractUnknown,
			Verification: domain.VerificationUnverified, Timestamp: 1000},
	}
	for _, e := range enrichments {
		if err := analysis.Insert(ctx, e); err != nil {
			t.Fatalf("insert enrichment: %v", err)
		}
	}

	points := []*domain.TrendPoint{
		{Platform: "all", Coin: "DOGE", MentionCount: 12, Trending: true, TimestampMs: 1000},
		{Platform: "all", Coin: "DOGE", MentionCount: 9, Trending: true, TimestampMs: 2000},
	}
	if err := archive.InsertBulk(ctx, points); err != nil {
		t.Fatalf("insert trend points: %v", err)
	}

	return mentions, analysis, archive
}

func TestGenerate(t *testing.T) {
	mentions, analysis, _ := seedStores(t)
	fixed := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	report, err := NewGenerator(mentions, analysis).
		WithClock(func() time.Time { return fixed }).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.Summary.TotalMentions != 3 {
		t.Errorf("TotalMentions = %d, want 3", report.Summary.TotalMentions)
	}
	if report.Summary.DistinctCoins != 2 {
		t.Errorf("DistinctCoins = %d, want 2", report.Summary.DistinctCoins)
	}
	if report.Summary.VerifiedContracts != 1 {
		t.Errorf("VerifiedContracts = %d, want 1", report.Summary.VerifiedContracts)
	}
	if report.Summary.DateRangeStart != 1000 || report.Summary.DateRangeEnd != 2000 {
		t.Errorf("date range = [%d, %d], want [1000, 2000]",
			report.Summary.DateRangeStart, report.Summary.DateRangeEnd)
	}

	// Newest first.
	if len(report.Mentions) != 3 || report.Mentions[0].Timestamp != 2000 {
		t.Errorf("Mentions[0] = %+v, want newest row first", report.Mentions[0])
	}
	if len(report.TrendHistory) != 0 {
		t.Errorf("TrendHistory without archive should be empty, got %d rows", len(report.TrendHistory))
	}
}

func TestGenerate_SymbolFilter(t *testing.T) {
	mentions, analysis, archive := seedStores(t)

	report, err := NewGenerator(mentions, analysis).
		WithArchive(archive).
		WithSymbol("DOGE").
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if report.Summary.TotalMentions != 2 {
		t.Errorf("TotalMentions = %d, want 2", report.Summary.TotalMentions)
	}
	for _, m := range report.Mentions {
		if m.Coin != "DOGE" {
			t.Errorf("unexpected coin %q in filtered report", m.Coin)
		}
	}
	if len(report.TrendHistory) != 2 || report.TrendHistory[0].TimestampMs != 2000 {
		t.Errorf("TrendHistory = %+v, want 2 rows newest first", report.TrendHistory)
	}
}

func TestGenerate_Limit(t *testing.T) {
	mentions, analysis, _ := seedStores(t)

	report, err := NewGenerator(mentions, analysis).
		WithLimit(1).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(report.Mentions) != 1 {
		t.Errorf("len(Mentions) = %d, want 1", len(report.Mentions))
	}
	if report.Mentions[0].Timestamp != 2000 {
		t.Errorf("limited report should keep the newest row, got %+v", report.Mentions[0])
	}
}

func TestRenderMarkdown(t *testing.T) {
	mentions, analysis, _ := seedStores(t)

	report, err := NewGenerator(mentions, analysis).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Trend Report",
		"| Mentions | 3 |",
		"| DOGE |",
		"$1000000.00",
		"verified",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	mentions, analysis, _ := seedStores(t)

	report, err := NewGenerator(mentions, analysis).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	csv := RenderMentionsCSV(report.Mentions)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 4 {
		t.Fatalf("mentions CSV has %d lines, want header + 3 rows", len(lines))
	}
	if lines[0] != "timestamp_ms,coin,platform,chain,mention_count" {
		t.Errorf("unexpected header %q", lines[0])
	}

	ecsv := RenderEnrichmentsCSV(report.Enrichments)
	if !strings.Contains(ecsv, "1000000.000000") {
		t.Errorf("enrichment CSV missing market cap: %s", ecsv)
	}
	// PEPE has no market data, the column stays empty.
	if !strings.Contains(ecsv, ",unknown,,,unverified") {
		t.Errorf("enrichment CSV should leave missing figures empty: %s", ecsv)
	}
}
