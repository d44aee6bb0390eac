// Package main generates a Markdown and CSV report of recently stored
// mentions and market data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"meme-radar/internal/domain"
	"meme-radar/internal/reporting"
	"meme-radar/internal/storage"
	chstore "meme-radar/internal/storage/clickhouse"
	"meme-radar/internal/storage/memory"
	pgstore "meme-radar/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables trend history)")
	symbol := flag.String("symbol", "", "Restrict the report to one ticker symbol")
	limit := flag.Int("limit", 0, "Maximum rows per section (0 keeps the default)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of a database")
	flag.Parse()

	ctx := context.Background()

	if !*useFixtures && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required when not using fixtures")
		fmt.Fprintln(os.Stderr, "Use --use-fixtures to run with demo data instead")
		os.Exit(1)
	}

	var (
		mentions storage.MentionStore
		analysis storage.AnalysisStore
		archive  storage.TrendArchiveStore
	)

	if *useFixtures {
		mentions, analysis, archive = createFixtureStores(ctx)
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to PostgreSQL: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		mentions = pgstore.NewMentionStore(pool)
		analysis = pgstore.NewAnalysisStore(pool)

		if *clickhouseDSN != "" {
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
				os.Exit(1)
			}
			defer conn.Close()
			archive = chstore.NewTrendArchiveStore(conn)
		}
	}

	gen := reporting.NewGenerator(mentions, analysis).WithLimit(*limit)
	if *symbol != "" {
		gen = gen.WithSymbol(*symbol)
	}
	if archive != nil {
		gen = gen.WithArchive(archive)
	}

	report, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"REPORT.md":    reporting.RenderMarkdown(report),
		"mentions.csv": reporting.RenderMentionsCSV(report.Mentions),
		"analysis.csv": reporting.RenderEnrichmentsCSV(report.Enrichments),
	}
	for name, body := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/mentions.csv\n", *outputDir)
	fmt.Printf("  - %s/analysis.csv\n", *outputDir)
	fmt.Printf("  Mentions: %d | Coins: %d | Enrichments: %d\n",
		report.Summary.TotalMentions, report.Summary.DistinctCoins, report.Summary.TotalEnrichments)
}

// createFixtureStores seeds memory stores with demo rows so the report can
// be exercised without a database.
func createFixtureStores(ctx context.Context) (storage.MentionStore, storage.AnalysisStore, storage.TrendArchiveStore) {
	mentions := memory.NewMentionStore()
	analysis := memory.NewAnalysisStore()
	archive := memory.NewTrendArchiveStore()

	cap1 := 11_500_000_000.0
	vol1 := 820_000_000.0
	cap2 := 2_300_000.0

	base := int64(1_767_600_000_000)
	rows := []*domain.Mention{
		{Platform: "reddit", Coin: "DOGE", Chain: "ethereum", MentionCount: 14, Timestamp: base},
		{Platform: "reddit", Coin: "PEPE", Chain: "ethereum", MentionCount: 9, Timestamp: base},
		{Platform: "reddit", Coin: "DOGE", Chain: "ethereum", MentionCount: 11, Timestamp: base + 1_800_000},
	}
	for _, m := range rows {
		_ = mentions.Insert(ctx, m)
	}

	enrichments := []*domain.Enrichment{
		{Coin: "DOGE", Chain: "ethereum", ContractAddress: "0x4206931337dc273a630d328da6441786bfad668f",
			MarketCapUSD: &cap1, LiquidityUSD: &vol1, Verification: domain.VerificationVerified, Timestamp: base},
		{Coin: "PEPE", Chain: "ethereum", ContractAddress: domain.ContractUnknown,
			MarketCapUSD: &cap2, Verification: domain.VerificationUnverified, Timestamp: base},
	}
	for _, e := range enrichments {
		_ = analysis.Insert(ctx, e)
	}

	_ = archive.InsertBulk(ctx, []*domain.TrendPoint{
		{Platform: "all", Coin: "DOGE", MentionCount: 14, Trending: true, TimestampMs: base},
		{Platform: "all", Coin: "PEPE", MentionCount: 9, Trending: true, TimestampMs: base},
		{Platform: "all", Coin: "DOGE", MentionCount: 11, Trending: true, TimestampMs: base + 1_800_000},
	})

	return mentions, analysis, archive
}
