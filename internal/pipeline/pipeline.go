// Package pipeline runs one trend-detection pass:
// fetch → extract → threshold → enrich → persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meme-radar/internal/chain"
	"meme-radar/internal/domain"
	"meme-radar/internal/enrich"
	"meme-radar/internal/extract"
	"meme-radar/internal/notify"
	"meme-radar/internal/observability"
	"meme-radar/internal/source"
	"meme-radar/internal/storage"
	"meme-radar/internal/trend"
)

// DefaultThreshold is the minimum merged mention count for a symbol to be
// considered trending.
const DefaultThreshold = 7

// persistTimeout bounds the write phase so an unresponsive store cannot
// stall shutdown indefinitely.
const persistTimeout = 30 * time.Second

// Options configures a Pipeline.
type Options struct {
	// Required
	Sources   []source.Source
	Extractor *extract.Extractor
	Enricher  *enrich.Enricher
	Mentions  storage.MentionStore
	Analysis  storage.AnalysisStore

	// Optional
	Threshold int                        // default 7
	ChainMeta storage.ChainMetadataStore // block-height bookkeeping
	Archive   storage.TrendArchiveStore  // long-horizon trend archive
	Chains    *chain.Registry            // endpoint lookup for ChainMeta rows
	Notifier  notify.Notifier            // per-coin alerts
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

// Pipeline executes trend-detection cycles. One cycle is a single pass;
// scheduling is the runner's concern.
type Pipeline struct {
	sources   []source.Source
	extractor *extract.Extractor
	enricher  *enrich.Enricher
	threshold int
	mentions  storage.MentionStore
	analysis  storage.AnalysisStore
	chainMeta storage.ChainMetadataStore
	archive   storage.TrendArchiveStore
	chains    *chain.Registry
	notifier  notify.Notifier
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if len(opts.Sources) == 0 {
		return nil, errors.New("pipeline: at least one source is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if opts.Enricher == nil {
		return nil, errors.New("pipeline: enricher is required")
	}
	if opts.Mentions == nil || opts.Analysis == nil {
		return nil, errors.New("pipeline: mention and analysis stores are required")
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Pipeline{
		sources:   opts.Sources,
		extractor: opts.Extractor,
		enricher:  opts.Enricher,
		threshold: threshold,
		mentions:  opts.Mentions,
		analysis:  opts.Analysis,
		chainMeta: opts.ChainMeta,
		archive:   opts.Archive,
		chains:    opts.Chains,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}, nil
}

// CycleReport is the outcome of one pipeline pass.
type CycleReport struct {
	StartedAt int64 // cycle timestamp, Unix milliseconds
	Duration  time.Duration

	Posts            int
	SymbolsExtracted int
	Trending         []string
	Enriched         int

	SourceErrors   map[string]error // source name → fetch failure
	EnrichFailures map[string]error // symbol → enrichment failure
	StoreErrors    []error
}

// Failed reports whether any stage recorded an error. Data from healthy
// stages is persisted regardless.
func (r *CycleReport) Failed() bool {
	return len(r.SourceErrors) > 0 || len(r.EnrichFailures) > 0 || len(r.StoreErrors) > 0
}

// ErrorSummary renders all recorded failures as one line for heartbeats.
func (r *CycleReport) ErrorSummary() string {
	var parts []string
	for _, name := range sortedKeys(r.SourceErrors) {
		parts = append(parts, fmt.Sprintf("source %s: %v", name, r.SourceErrors[name]))
	}
	for _, symbol := range sortedKeys(r.EnrichFailures) {
		parts = append(parts, fmt.Sprintf("enrich %s: %v", symbol, r.EnrichFailures[symbol]))
	}
	for _, err := range r.StoreErrors {
		parts = append(parts, fmt.Sprintf("store: %v", err))
	}
	return strings.Join(parts, "; ")
}

// RunCycle executes one full pass. Per-source and per-symbol failures are
// isolated: whatever was collected from healthy sources still flows through
// the rest of the pipeline and is persisted.
func (p *Pipeline) RunCycle(ctx context.Context) *CycleReport {
	start := time.Now()
	report := &CycleReport{
		StartedAt:      start.UnixMilli(),
		SourceErrors:   make(map[string]error),
		EnrichFailures: make(map[string]error),
	}
	defer func() {
		report.Duration = time.Since(start)
		if p.metrics != nil {
			p.metrics.CycleDuration.Observe(report.Duration.Seconds())
		}
	}()

	// Fetch and extract per source.
	perSource := p.fetchAll(ctx, report)
	if ctx.Err() != nil {
		return report
	}

	// Merge counts across sources and threshold them.
	merged := make(domain.SymbolCounts)
	for _, counts := range perSource {
		merged.Merge(counts)
	}
	report.SymbolsExtracted = len(merged)

	trending := trend.Filter(merged, p.threshold)
	report.Trending = sortedCountKeys(trending)
	if p.metrics != nil {
		p.metrics.SymbolsExtracted.Add(float64(len(merged)))
		p.metrics.SymbolsTrending.Add(float64(len(trending)))
	}

	p.logger.Info().
		Int("posts", report.Posts).
		Int("symbols", len(merged)).
		Int("trending", len(trending)).
		Msg("extraction completed")

	var result enrich.CycleResult
	if len(trending) > 0 && ctx.Err() == nil {
		result = p.enricher.EnrichAll(ctx, report.Trending, report.StartedAt)
		report.EnrichFailures = result.Failures
		report.Enriched = len(result.Records)
		p.recordEnrichMetrics(len(trending), &result)
	}

	// Enrichment results already computed are persisted even when shutdown
	// arrived mid-cycle.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	p.persist(persistCtx, report, perSource, merged, trending, &result)

	return report
}

// fetchAll fetches every source concurrently and extracts per-source
// counts. One failing source never discards another source's posts.
func (p *Pipeline) fetchAll(ctx context.Context, report *CycleReport) map[string]domain.SymbolCounts {
	type outcome struct {
		name   string
		counts domain.SymbolCounts
		posts  int
		err    error
	}

	results := make(chan outcome, len(p.sources))
	var wg sync.WaitGroup
	for _, src := range p.sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			posts, err := src.Fetch(ctx)
			if err != nil {
				results <- outcome{name: src.Name(), err: err}
				return
			}
			results <- outcome{
				name:   src.Name(),
				counts: p.extractor.Extract(posts),
				posts:  len(posts),
			}
		}(src)
	}
	wg.Wait()
	close(results)

	perSource := make(map[string]domain.SymbolCounts)
	for out := range results {
		if out.err != nil {
			p.logger.Error().Err(out.err).Str("source", out.name).Msg("source fetch failed")
			report.SourceErrors[out.name] = out.err
			if p.metrics != nil {
				p.metrics.SourceErrors.WithLabelValues(out.name).Inc()
			}
			continue
		}
		perSource[out.name] = out.counts
		report.Posts += out.posts
		if p.metrics != nil {
			p.metrics.PostsFetched.WithLabelValues(out.name).Add(float64(out.posts))
		}
	}
	return perSource
}

// persist writes mentions and enrichment rows per enriched symbol, then
// the chain bookkeeping and the optional trend archive.
func (p *Pipeline) persist(ctx context.Context, report *CycleReport, perSource map[string]domain.SymbolCounts, merged, trending domain.SymbolCounts, result *enrich.CycleResult) {
	now := time.Now().UnixMilli()

	for _, record := range result.Records {
		mention := &domain.Mention{
			Platform:     p.platformTag(perSource, record.Coin),
			Coin:         record.Coin,
			Chain:        record.Chain,
			MentionCount: merged[record.Coin],
			Timestamp:    report.StartedAt,
			CreatedAt:    now,
		}

		if err := p.mentions.Insert(ctx, mention); err != nil {
			p.storeError(report, "mentions", fmt.Errorf("insert mention %s: %w", record.Coin, err))
			continue
		}
		if err := p.analysis.Insert(ctx, record); err != nil {
			p.storeError(report, "analysis", fmt.Errorf("insert analysis %s: %w", record.Coin, err))
			continue
		}

		p.logger.Info().
			Str("coin", record.Coin).
			Int("mentions", mention.MentionCount).
			Str("chain", record.Chain).
			Str("verification", record.Verification).
			Msg("trending coin persisted")

		p.alert(ctx, mention, record)
	}

	p.persistChainMeta(ctx, report, result, now)
	p.persistArchive(ctx, report, merged, trending)
}

// alert delivers one notification; failures log and continue.
func (p *Pipeline) alert(ctx context.Context, mention *domain.Mention, record *domain.Enrichment) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.SendAlert(ctx, mention, record); err != nil {
		p.logger.Warn().Err(err).Str("coin", mention.Coin).Msg("alert delivery failed")
		if p.metrics != nil {
			p.metrics.AlertsSent.WithLabelValues("error").Inc()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.AlertsSent.WithLabelValues("ok").Inc()
	}
}

// persistChainMeta records the block heights observed while verifying.
func (p *Pipeline) persistChainMeta(ctx context.Context, report *CycleReport, result *enrich.CycleResult, now int64) {
	if p.chainMeta == nil {
		return
	}
	for chainName, block := range result.Blocks {
		endpoint := ""
		if p.chains != nil {
			endpoint = p.chains.Endpoint(chainName)
		}
		err := p.chainMeta.Upsert(ctx, &domain.ChainMetadata{
			Chain:         chainName,
			RPCURL:        endpoint,
			LastSyncBlock: block,
			LastUpdated:   now,
		})
		if err != nil {
			p.storeError(report, "chain_metadata", fmt.Errorf("upsert chain %s: %w", chainName, err))
		}
	}
}

// persistArchive appends every extracted symbol's merged count.
func (p *Pipeline) persistArchive(ctx context.Context, report *CycleReport, merged, trending domain.SymbolCounts) {
	if p.archive == nil || len(merged) == 0 {
		return
	}

	points := make([]*domain.TrendPoint, 0, len(merged))
	for _, symbol := range sortedCountKeys(merged) {
		_, isTrending := trending[symbol]
		points = append(points, &domain.TrendPoint{
			Platform:     "all",
			Coin:         symbol,
			MentionCount: merged[symbol],
			Trending:     isTrending,
			TimestampMs:  report.StartedAt,
		})
	}
	if err := p.archive.InsertBulk(ctx, points); err != nil {
		p.storeError(report, "trend_archive", fmt.Errorf("archive cycle counts: %w", err))
	}
}

func (p *Pipeline) storeError(report *CycleReport, table string, err error) {
	p.logger.Error().Err(err).Msg("store write failed")
	report.StoreErrors = append(report.StoreErrors, err)
	if p.metrics != nil {
		p.metrics.StoreErrors.WithLabelValues(table).Inc()
	}
}

func (p *Pipeline) recordEnrichMetrics(trending int, result *enrich.CycleResult) {
	if p.metrics == nil {
		return
	}
	for _, record := range result.Records {
		p.metrics.EnrichmentOutcomes.WithLabelValues(record.Verification).Inc()
	}
	p.metrics.EnrichmentOutcomes.WithLabelValues("failed").Add(float64(len(result.Failures)))
	dropped := trending - len(result.Records) - len(result.Failures)
	if dropped > 0 {
		p.metrics.EnrichmentOutcomes.WithLabelValues("dropped").Add(float64(dropped))
	}
}

// platformTag joins the names of every source that contributed at least
// one mention of the coin, in source order.
func (p *Pipeline) platformTag(perSource map[string]domain.SymbolCounts, coin string) string {
	var names []string
	for _, src := range p.sources {
		if counts, ok := perSource[src.Name()]; ok && counts[coin] > 0 {
			names = append(names, src.Name())
		}
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "+")
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedCountKeys orders symbols by count descending, then name ascending.
func sortedCountKeys(counts domain.SymbolCounts) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
