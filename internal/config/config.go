// Package config loads the tracker configuration from a YAML file with an
// environment-variable overlay for secrets. The resulting Config is built
// once at startup and treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full tracker configuration.
type Config struct {
	Tracker  TrackerConfig     `yaml:"tracker"`
	Reddit   RedditConfig      `yaml:"reddit"`
	Market   MarketConfig      `yaml:"market"`
	Chains   map[string]string `yaml:"chains"` // chain name to RPC URL
	Storage  StorageConfig     `yaml:"storage"`
	Telegram TelegramConfig    `yaml:"telegram"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// TrackerConfig holds scheduler and pipeline knobs.
type TrackerConfig struct {
	Interval    time.Duration `yaml:"interval"`     // default 1800s
	Threshold   int           `yaml:"threshold"`    // default 7
	GracePeriod time.Duration `yaml:"grace_period"` // default 5s
	Stoplist    []string      `yaml:"stoplist"`     // empty keeps the built-in list
}

// RedditConfig holds the Reddit source credentials and knobs.
type RedditConfig struct {
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	UserAgent      string `yaml:"user_agent"`
	Subreddit      string `yaml:"subreddit"`
	PageSize       int    `yaml:"page_size"`
	CallsPerMinute int    `yaml:"calls_per_minute"`
}

// MarketConfig holds the market-data source knobs.
type MarketConfig struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	CallsPerMinute int           `yaml:"calls_per_minute"`
	Concurrency    int           `yaml:"concurrency"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

// StorageConfig holds store DSNs. ClickHouse is optional; an empty DSN
// disables the trend archive.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// TelegramConfig holds the optional alert channel. An empty token
// disables alerts.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // default ":9090"
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`   // default "info"
	Console bool   `yaml:"console"` // human-readable output instead of JSON
}

// Load reads the YAML file, applies defaults and the environment overlay.
// Validation is separate so callers can relax it for dry runs.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with only defaults and the environment overlay,
// for running without a config file.
func Default() (*Config, error) {
	return Parse([]byte("{}"))
}

func (c *Config) applyDefaults() {
	if c.Tracker.Interval <= 0 {
		c.Tracker.Interval = 1800 * time.Second
	}
	if c.Tracker.Threshold <= 0 {
		c.Tracker.Threshold = 7
	}
	if c.Tracker.GracePeriod <= 0 {
		c.Tracker.GracePeriod = 5 * time.Second
	}
	if c.Reddit.Subreddit == "" {
		c.Reddit.Subreddit = "cryptocurrency"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "meme-radar/1.0"
	}
	if c.Reddit.PageSize <= 0 {
		c.Reddit.PageSize = 100
	}
	if c.Reddit.CallsPerMinute <= 0 {
		c.Reddit.CallsPerMinute = 60
	}
	if c.Market.CallsPerMinute <= 0 {
		c.Market.CallsPerMinute = 30
	}
	if c.Market.Concurrency <= 0 {
		c.Market.Concurrency = 4
	}
	if c.Market.RetryBackoff <= 0 {
		c.Market.RetryBackoff = 60 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// applyEnv overlays secrets from the environment. Environment values win
// over file values so deployments never need credentials on disk.
func (c *Config) applyEnv() error {
	overlay := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	overlay(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	overlay(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	overlay(&c.Reddit.Username, "REDDIT_USERNAME")
	overlay(&c.Reddit.Password, "REDDIT_PASSWORD")
	overlay(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	overlay(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	overlay(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate checks everything a live run needs and reports every problem
// at once rather than failing on the first.
func (c *Config) Validate() error {
	var problems []string

	require := func(value, name string) {
		if value == "" {
			problems = append(problems, name+" is required")
		}
	}

	require(c.Reddit.ClientID, "reddit.client_id")
	require(c.Reddit.ClientSecret, "reddit.client_secret")
	require(c.Reddit.Username, "reddit.username")
	require(c.Reddit.Password, "reddit.password")
	require(c.Storage.PostgresDSN, "storage.postgres_dsn")

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id is required when telegram.token is set")
	}

	for name, url := range c.Chains {
		if url == "" {
			problems = append(problems, fmt.Sprintf("chains.%s has an empty RPC URL", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
