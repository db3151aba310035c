package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/extraction"
	"hall-data-lab/internal/metrics"
)

const sampleYAML = `
default_year: 2024
store:
  backend: memory
fetch:
  mode: http
  report_settle: -1s
collect:
  concurrency: 2
venues:
  - id: shinjuku
    display_name: 新宿店
    listing_url: https://example.com/halls/shinjuku
    cutoff: "2024-03-01"
    model_substring: ジャグラー
    layout:
      name: 0
      unit: 1
      games: 3
      diff: 2
  - id: ueno
    display_name: 上野店
    listing_url: https://example.com/halls/ueno
    strategy: pattern
    link_pattern: '/report/\d+$'
    polite_delay: 500ms
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2024, cfg.DefaultYear)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, FetchModeHTTP, cfg.Fetch.Mode)
	assert.Equal(t, -time.Second, cfg.Fetch.ReportSettle, "explicit negative settle must survive defaults")
	assert.Equal(t, 2, cfg.Collect.Concurrency)
	require.Len(t, cfg.Venues, 2)

	shinjuku := cfg.Venues[0].Venue()
	assert.Equal(t, domain.StrategyNameScoped, shinjuku.Strategy)
	assert.Equal(t, domain.MustDate(2024, 3, 1), shinjuku.Cutoff)
	assert.Equal(t, domain.DefaultPoliteDelay, shinjuku.PoliteDelay)
	assert.Equal(t, extraction.ColumnLayout{Name: 0, Unit: 1, Games: 3, Diff: 2}, cfg.Venues[0].ColumnLayout())

	ueno := cfg.Venues[1]
	assert.Equal(t, 500*time.Millisecond, ueno.Venue().PoliteDelay)
	assert.True(t, ueno.Venue().Cutoff.IsZero())
	assert.Equal(t, extraction.DefaultColumnLayout(), ueno.ColumnLayout())
	opts := ueno.DiscoveryOptions()
	require.NotNil(t, opts.LinkPattern)
	assert.True(t, opts.LinkPattern.MatchString("https://example.com/report/123"))
	assert.Equal(t, "上野店", opts.VenueSubstring)
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
venues:
  - id: a
    display_name: A
    listing_url: http://example.com/a
`))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "data/hall.db", cfg.Store.SQLitePath)
	assert.Equal(t, FetchModeRod, cfg.Fetch.Mode)
	assert.Equal(t, extraction.DefaultSettle, cfg.Fetch.ReportSettle)
	assert.Equal(t, 3, cfg.Fetch.Retry.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Collect.Interval)
	assert.Equal(t, 1, cfg.Collect.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Collect.TaskTimeout)
	assert.Equal(t, "output", cfg.Report.OutputDir)
	assert.Equal(t, 7, cfg.Report.MinDays)
	assert.Equal(t, extraction.DefaultHeaderKeyword, cfg.Venues[0].HeaderKeyword)

	f := cfg.Filter(cfg.Venues[0])
	assert.Equal(t, "a", f.VenueSubstring)
	assert.Equal(t, metrics.DefaultSummaryGlyphs, f.SummaryGlyphs)
	assert.Equal(t, metrics.DefaultMaxUnitNumber, f.MaxUnitNumber)
	assert.Equal(t, metrics.DefaultThresholds(), cfg.Thresholds())

	p := cfg.Fetch.Retry.Policy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no venues", `store: {backend: memory}`},
		{"unknown backend", `
store: {backend: mongo}
venues: [{id: a, display_name: A, listing_url: "http://x/a"}]`},
		{"postgres without dsn", `
store: {backend: postgres}
venues: [{id: a, display_name: A, listing_url: "http://x/a"}]`},
		{"unknown fetch mode", `
fetch: {mode: curl}
venues: [{id: a, display_name: A, listing_url: "http://x/a"}]`},
		{"missing id", `venues: [{display_name: A, listing_url: "http://x/a"}]`},
		{"duplicate id", `
venues:
  - {id: a, display_name: A, listing_url: "http://x/a"}
  - {id: a, display_name: B, listing_url: "http://x/b"}`},
		{"missing display name", `venues: [{id: a, listing_url: "http://x/a"}]`},
		{"relative listing url", `venues: [{id: a, display_name: A, listing_url: "/a"}]`},
		{"unknown strategy", `venues: [{id: a, display_name: A, listing_url: "http://x/a", strategy: fuzzy}]`},
		{"bad link pattern", `venues: [{id: a, display_name: A, listing_url: "http://x/a", link_pattern: "("}]`},
		{"bad cutoff", `venues: [{id: a, display_name: A, listing_url: "http://x/a", cutoff: "2024/03/01"}]`},
		{"negative delay", `venues: [{id: a, display_name: A, listing_url: "http://x/a", polite_delay: -1s}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "expected ErrInvalidConfig, got %v", err)
		})
	}
}

func TestFindVenue(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	v, ok := cfg.FindVenue("ueno")
	assert.True(t, ok)
	assert.Equal(t, "上野店", v.DisplayName)

	_, ok = cfg.FindVenue("nagoya")
	assert.False(t, ok)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
