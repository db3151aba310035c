// Package config loads the collector configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"hall-data-lab/internal/discovery"
	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/extraction"
	"hall-data-lab/internal/metrics"
	"hall-data-lab/internal/retry"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Fetch modes.
const (
	FetchModeRod  = "rod"
	FetchModeHTTP = "http"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	DefaultYear int             `yaml:"default_year"` // year for "M/D" dates; 0 uses the current year
	Store       StoreConfig     `yaml:"store"`
	Fetch       FetchConfig     `yaml:"fetch"`
	Aggregate   AggregateConfig `yaml:"aggregate"`
	Collect     CollectConfig   `yaml:"collect"`
	Report      ReportConfig    `yaml:"report"`
	Venues      []VenueConfig   `yaml:"venues"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Backend       string      `yaml:"backend"` // memory | sqlite | postgres
	SQLitePath    string      `yaml:"sqlite_path"`
	PostgresDSN   string      `yaml:"postgres_dsn"`
	ClickHouseDSN string      `yaml:"clickhouse_dsn"` // optional: unit records and summaries go to ClickHouse
	Retry         RetryConfig `yaml:"retry"`
}

// FetchConfig controls how pages are retrieved.
type FetchConfig struct {
	Mode            string        `yaml:"mode"`       // rod | http
	RemoteURL       string        `yaml:"remote_url"` // DevTools URL of an external Chrome
	UserAgent       string        `yaml:"user_agent"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ListingSettle   time.Duration `yaml:"listing_settle"`
	ReportSettle    time.Duration `yaml:"report_settle"`
	ScrollPasses    int           `yaml:"scroll_passes"`
	Retry           RetryConfig   `yaml:"retry"`
}

// RetryConfig is a bounded exponential backoff.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// AggregateConfig holds the cleaning heuristics and statistic thresholds.
type AggregateConfig struct {
	SummaryGlyphs string `yaml:"summary_glyphs"`
	MaxUnitNumber int    `yaml:"max_unit_number"`
	HighHit       int64  `yaml:"high_hit"`
	LowHit        int64  `yaml:"low_hit"`
	StickyGames   int64  `yaml:"sticky_games"`
}

// CollectConfig controls the polling loop.
type CollectConfig struct {
	Interval              time.Duration `yaml:"interval"`
	Concurrency           int           `yaml:"concurrency"`
	TaskTimeout           time.Duration `yaml:"task_timeout"` // bounds a report task once started
	AggregateAfterCollect bool          `yaml:"aggregate_after_collect"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	OutputDir string        `yaml:"output_dir"`
	Interval  time.Duration `yaml:"interval"`
	MinDays   int           `yaml:"min_days"` // days required before statistics are trusted
}

// VenueConfig describes one tracked venue.
type VenueConfig struct {
	ID                string        `yaml:"id"`
	DisplayName       string        `yaml:"display_name"`
	ListingURL        string        `yaml:"listing_url"`
	Strategy          string        `yaml:"strategy"` // name | pattern
	HeadingSelector   string        `yaml:"heading_selector"`
	ContainerSelector string        `yaml:"container_selector"`
	LinkPattern       string        `yaml:"link_pattern"`
	DetailQuery       string        `yaml:"detail_query"`
	Cutoff            string        `yaml:"cutoff"` // YYYY-MM-DD
	PoliteDelay       time.Duration `yaml:"polite_delay"`
	ModelSubstring    string        `yaml:"model_substring"`
	IdentitySelectors []string      `yaml:"identity_selectors"`
	HeaderKeyword     string        `yaml:"header_keyword"`
	Layout            *LayoutConfig `yaml:"layout"`
}

// LayoutConfig maps report table columns. Omitted means the default layout.
type LayoutConfig struct {
	Name       int `yaml:"name"`
	Unit       int `yaml:"unit"`
	Games      int `yaml:"games"`
	Diff       int `yaml:"diff"`
	MinColumns int `yaml:"min_columns"`
}

// LoadFile reads a YAML configuration file, applies defaults and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "data/hall.db"
	}
	if c.Store.Retry.MaxAttempts == 0 {
		p := retry.DefaultStorePolicy()
		c.Store.Retry = RetryConfig{MaxAttempts: p.MaxAttempts, InitialInterval: p.InitialInterval, MaxInterval: p.MaxInterval}
	}

	if c.Fetch.Mode == "" {
		c.Fetch.Mode = FetchModeRod
	}
	if c.Fetch.NavigateTimeout <= 0 {
		c.Fetch.NavigateTimeout = 45 * time.Second
	}
	if c.Fetch.RequestTimeout <= 0 {
		c.Fetch.RequestTimeout = 30 * time.Second
	}
	if c.Fetch.ListingSettle == 0 {
		c.Fetch.ListingSettle = 3 * time.Second
	}
	if c.Fetch.ReportSettle == 0 {
		c.Fetch.ReportSettle = extraction.DefaultSettle
	}
	if c.Fetch.ScrollPasses == 0 {
		c.Fetch.ScrollPasses = 3
	}
	if c.Fetch.Retry.MaxAttempts == 0 {
		p := retry.DefaultFetchPolicy()
		c.Fetch.Retry = RetryConfig{MaxAttempts: p.MaxAttempts, InitialInterval: p.InitialInterval, MaxInterval: p.MaxInterval}
	}

	if c.Aggregate.SummaryGlyphs == "" {
		c.Aggregate.SummaryGlyphs = metrics.DefaultSummaryGlyphs
	}
	if c.Aggregate.MaxUnitNumber <= 0 {
		c.Aggregate.MaxUnitNumber = metrics.DefaultMaxUnitNumber
	}
	if c.Aggregate.HighHit == 0 {
		c.Aggregate.HighHit = metrics.DefaultHighHit
	}
	if c.Aggregate.LowHit == 0 {
		c.Aggregate.LowHit = metrics.DefaultLowHit
	}
	if c.Aggregate.StickyGames == 0 {
		c.Aggregate.StickyGames = metrics.DefaultStickyGames
	}

	if c.Collect.Interval <= 0 {
		c.Collect.Interval = time.Hour
	}
	if c.Collect.Concurrency <= 0 {
		c.Collect.Concurrency = 1
	}
	if c.Collect.TaskTimeout <= 0 {
		c.Collect.TaskTimeout = 5 * time.Minute
	}

	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "output"
	}
	if c.Report.Interval <= 0 {
		c.Report.Interval = 6 * time.Hour
	}
	if c.Report.MinDays <= 0 {
		c.Report.MinDays = 7
	}

	for i := range c.Venues {
		v := &c.Venues[i]
		if v.Strategy == "" {
			v.Strategy = string(domain.StrategyNameScoped)
		}
		if v.PoliteDelay == 0 {
			v.PoliteDelay = domain.DefaultPoliteDelay
		}
		if v.HeaderKeyword == "" {
			v.HeaderKeyword = extraction.DefaultHeaderKeyword
		}
	}
}

// Validate checks the configuration. Failures are fatal at startup.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: store.postgres_dsn is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Fetch.Mode != FetchModeRod && c.Fetch.Mode != FetchModeHTTP {
		return fmt.Errorf("%w: unknown fetch mode %q", ErrInvalidConfig, c.Fetch.Mode)
	}

	if len(c.Venues) == 0 {
		return fmt.Errorf("%w: no venues configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		if v.ID == "" {
			return fmt.Errorf("%w: venues[%d].id is required", ErrInvalidConfig, i)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate venue id %q", ErrInvalidConfig, v.ID)
		}
		seen[v.ID] = true
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: venue %s: %v", ErrInvalidConfig, v.ID, err)
		}
	}
	return nil
}

func (v VenueConfig) validate() error {
	if v.DisplayName == "" {
		return errors.New("display_name is required")
	}
	u, err := url.Parse(v.ListingURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("listing_url %q is not an http(s) URL", v.ListingURL)
	}
	if !domain.DiscoveryStrategy(v.Strategy).IsValid() {
		return fmt.Errorf("unknown strategy %q", v.Strategy)
	}
	if v.LinkPattern != "" {
		if _, err := regexp.Compile(v.LinkPattern); err != nil {
			return fmt.Errorf("link_pattern: %v", err)
		}
	}
	if v.Cutoff != "" {
		if _, err := domain.ParseISODate(v.Cutoff); err != nil {
			return fmt.Errorf("cutoff: %v", err)
		}
	}
	if v.PoliteDelay < 0 {
		return errors.New("polite_delay must not be negative")
	}
	return nil
}

// Venue returns the domain view of the venue. The config must be validated.
func (v VenueConfig) Venue() domain.Venue {
	var cutoff domain.CalendarDate
	if v.Cutoff != "" {
		cutoff, _ = domain.ParseISODate(v.Cutoff)
	}
	return domain.Venue{
		ID:          v.ID,
		DisplayName: v.DisplayName,
		ListingURL:  v.ListingURL,
		Strategy:    domain.DiscoveryStrategy(v.Strategy),
		Cutoff:      cutoff,
		PoliteDelay: v.PoliteDelay,
	}
}

// DiscoveryOptions returns the discoverer configuration of the venue.
func (v VenueConfig) DiscoveryOptions() discovery.Options {
	opts := discovery.Options{
		Strategy:          domain.DiscoveryStrategy(v.Strategy),
		VenueSubstring:    v.DisplayName,
		HeadingSelector:   v.HeadingSelector,
		ContainerSelector: v.ContainerSelector,
	}
	if v.LinkPattern != "" {
		opts.LinkPattern = regexp.MustCompile(v.LinkPattern)
	}
	return opts
}

// ColumnLayout returns the venue's report table layout.
func (v VenueConfig) ColumnLayout() extraction.ColumnLayout {
	if v.Layout == nil {
		return extraction.DefaultColumnLayout()
	}
	return extraction.ColumnLayout{
		Name:       v.Layout.Name,
		Unit:       v.Layout.Unit,
		Games:      v.Layout.Games,
		Diff:       v.Layout.Diff,
		MinColumns: v.Layout.MinColumns,
	}
}

// Filter returns the aggregation filter for a venue.
func (c *Config) Filter(v VenueConfig) metrics.Filter {
	return metrics.Filter{
		VenueSubstring: v.ID,
		ModelSubstring: v.ModelSubstring,
		SummaryGlyphs:  c.Aggregate.SummaryGlyphs,
		MaxUnitNumber:  c.Aggregate.MaxUnitNumber,
	}
}

// Thresholds returns the statistic thresholds.
func (c *Config) Thresholds() metrics.Thresholds {
	return metrics.Thresholds{
		HighHit:     c.Aggregate.HighHit,
		LowHit:      c.Aggregate.LowHit,
		StickyGames: c.Aggregate.StickyGames,
	}
}

// Policy converts the retry configuration.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialInterval,
		MaxInterval:     r.MaxInterval,
		Multiplier:      retry.DefaultMultiplier,
	}
}

// FindVenue returns the venue with id.
func (c *Config) FindVenue(id string) (VenueConfig, bool) {
	for _, v := range c.Venues {
		if v.ID == id {
			return v, true
		}
	}
	return VenueConfig{}, false
}
