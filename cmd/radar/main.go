// Package main runs the meme coin trend tracker: fetch posts, extract
// ticker symbols, enrich trending ones with market and on-chain data,
// persist results and send alerts, on a fixed schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"meme-radar/internal/chain"
	"meme-radar/internal/config"
	"meme-radar/internal/enrich"
	"meme-radar/internal/extract"
	"meme-radar/internal/notify"
	"meme-radar/internal/observability"
	"meme-radar/internal/pipeline"
	"meme-radar/internal/runner"
	"meme-radar/internal/source"
	"meme-radar/internal/storage"
	chstore "meme-radar/internal/storage/clickhouse"
	"meme-radar/internal/storage/memory"
	"meme-radar/internal/storage/migrations"
	pgstore "meme-radar/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, env vars still apply)")
	dryRun := flag.Bool("dry-run", false, "Run against fixture posts and in-memory stores, no credentials needed")
	once := flag.Bool("once", false, "Run a single cycle and exit instead of looping")
	detach := flag.Bool("detach", false, "Re-exec in the background and return immediately")
	logDir := flag.String("log-dir", ".", "Directory for the detached process log file")
	flag.Parse()

	if *detach {
		if err := detachSelf(*logDir); err != nil {
			fmt.Fprintf(os.Stderr, "detach: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if !*dryRun {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *dryRun, *once); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("tracker failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, dryRun, once bool) error {
	stores, cleanup, err := buildStores(ctx, cfg, logger, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := buildSources(cfg, logger, dryRun)
	if err != nil {
		return err
	}

	extractor, err := extract.New(extract.Options{
		Stoplist: cfg.Tracker.Stoplist,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var chains *chain.Registry
	if len(cfg.Chains) > 0 {
		chains, err = chain.NewRegistry(cfg.Chains, nil, logger)
		if err != nil {
			return fmt.Errorf("chain registry: %w", err)
		}
	}

	enricher, err := enrich.New(enrich.Options{
		Source: enrich.NewCoinGecko(enrich.CoinGeckoOptions{
			APIBaseURL:   cfg.Market.APIBaseURL,
			RetryBackoff: cfg.Market.RetryBackoff,
			Logger:       logger,
		}),
		Chains:         chains,
		Concurrency:    cfg.Market.Concurrency,
		CallsPerMinute: cfg.Market.CallsPerMinute,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if cfg.Telegram.Token != "" && !dryRun {
		notifier, err = notify.NewTelegram(notify.TelegramOptions{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram alerts enabled")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("", prometheus.DefaultRegisterer)
		startMetricsServer(cfg.Metrics.Addr, stores.statuses, cfg.Tracker.Interval, logger)
	}

	pipe, err := pipeline.New(pipeline.Options{
		Sources:   sources,
		Extractor: extractor,
		Enricher:  enricher,
		Mentions:  stores.mentions,
		Analysis:  stores.analysis,
		Threshold: cfg.Tracker.Threshold,
		ChainMeta: stores.chainMeta,
		Archive:   stores.archive,
		Chains:    chains,
		Notifier:  notifier,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if once {
		report := pipe.RunCycle(ctx)
		logger.Info().
			Int("posts", report.Posts).
			Int("symbols", report.SymbolsExtracted).
			Strs("trending", report.Trending).
			Int("enriched", report.Enriched).
			Msg("cycle finished")
		if report.Failed() {
			return errors.New(report.ErrorSummary())
		}
		return nil
	}

	r, err := runner.New(runner.Options{
		Pipeline:    pipe,
		Statuses:    stores.statuses,
		Interval:    cfg.Tracker.Interval,
		GracePeriod: cfg.Tracker.GracePeriod,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info().
		Dur("interval", cfg.Tracker.Interval).
		Int("threshold", cfg.Tracker.Threshold).
		Bool("dry_run", dryRun).
		Msg("tracker starting")
	return r.Run(ctx)
}

// trackerStores groups the store implementations behind their interfaces so
// the rest of main does not care whether they are Postgres or in-memory.
type trackerStores struct {
	mentions  storage.MentionStore
	analysis  storage.AnalysisStore
	chainMeta storage.ChainMetadataStore
	statuses  storage.StatusStore
	archive   storage.TrendArchiveStore
}

func buildStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger, dryRun bool) (*trackerStores, func(), error) {
	if dryRun {
		logger.Info().Msg("using in-memory storage")
		return &trackerStores{
			mentions:  memory.NewMentionStore(),
			analysis:  memory.NewAnalysisStore(),
			chainMeta: memory.NewChainMetadataStore(),
			statuses:  memory.NewStatusStore(),
			archive:   memory.NewTrendArchiveStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &trackerStores{
		mentions:  pgstore.NewMentionStore(pool),
		analysis:  pgstore.NewAnalysisStore(pool),
		chainMeta: pgstore.NewChainMetadataStore(pool),
		statuses:  pgstore.NewStatusStore(pool),
	}
	cleanup := pool.Close

	// The trend archive is optional. Without a ClickHouse DSN the
	// pipeline simply skips archival.
	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		stores.archive = chstore.NewTrendArchiveStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
		logger.Info().Msg("trend archive enabled")
	}

	return stores, cleanup, nil
}

func buildSources(cfg *config.Config, logger zerolog.Logger, dryRun bool) ([]source.Source, error) {
	if dryRun {
		return []source.Source{source.NewStatic("fixture", fixturePosts())}, nil
	}
	reddit := source.NewReddit(source.RedditOptions{
		ClientID:       cfg.Reddit.ClientID,
		ClientSecret:   cfg.Reddit.ClientSecret,
		Username:       cfg.Reddit.Username,
		Password:       cfg.Reddit.Password,
		UserAgent:      cfg.Reddit.UserAgent,
		Subreddit:      cfg.Reddit.Subreddit,
		PageSize:       cfg.Reddit.PageSize,
		CallsPerMinute: cfg.Reddit.CallsPerMinute,
		Logger:         logger,
	})
	return []source.Source{reddit}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func startMetricsServer(addr string, statuses storage.StatusStore, interval time.Duration, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/healthz", observability.HealthzHandler(statuses, runner.DefaultComponent, 2*interval))
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// detachSelf re-execs the binary without --detach, writes its output to a
// log file and returns once the child is running.
func detachSelf(logDir string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := make([]string, 0, len(os.Args)-1)
	for _, a := range os.Args[1:] {
		if a == "--detach" || a == "-detach" {
			continue
		}
		args = append(args, a)
	}

	logPath := filepath.Join(logDir, "radar.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached process: %w", err)
	}

	fmt.Printf("started pid %d, logging to %s\n", cmd.Process.Pid, logPath)
	return cmd.Process.Release()
}

// fixturePosts feeds a dry run with deterministic content.
func fixturePosts() []string {
	return []string{
		"$DOGE to the moon, DOGE is unstoppable",
		"Loaded up on DOGE and a little PEPE today",
		"DOGE DOGE DOGE, best community in crypto",
		"Is PEPE dead or just resting?",
		"Still holding DOGE since 2021",
	}
}
