package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/pipeline"
	"hall-data-lab/internal/reporting"
	"hall-data-lab/internal/storage"
	"hall-data-lab/internal/storage/backend"
	"hall-data-lab/internal/storage/memory"
)

// fixtureVenue is reported on when --use-fixtures runs without a config file.
const fixtureVenue = "demo"

func main() {
	// Parse flags
	configPath := flag.String("config", envOr("HALL_CONFIG", "config.yaml"), "Path to the YAML configuration file")
	venues := flag.String("venue", "", "Comma-separated venue ids to report on (default: all configured)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides report.output_dir)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (selects the postgres backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for unit records and summaries")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (overrides store.sqlite_path)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory fixtures instead of the configured store")
	quiet := flag.Bool("quiet", false, "Do not print the summary table")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags|log.Lshortfile)
	ctx := context.Background()

	cfg, err := loadConfig(*configPath, *useFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}

	inputs, err := selectInputs(cfg, splitList(*venues))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create stores based on mode
	var stores storage.Stores
	if *useFixtures {
		stores = memory.NewStores()
		for _, in := range inputs {
			if err := pipeline.LoadFixtures(ctx, stores, in.Venue); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
				os.Exit(1)
			}
		}
	} else {
		applyStoreFlags(&cfg.Store, *postgresDSN, *clickhouseDSN, *sqlitePath)
		var closeStores backend.CloseFunc
		stores, closeStores, err = backend.Open(ctx, cfg.Store, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer closeStores()
	}

	p := pipeline.NewReportPipeline(stores, cfg.Thresholds(), cfg.Report.OutputDir, logger).
		WithSufficiency(sufficiency(cfg))
	if *useFixtures {
		// Fixed clock for deterministic output
		fixedTime := time.Date(2024, 11, 12, 9, 0, 0, 0, time.UTC)
		p = p.WithDataSource(pipeline.DataSourceFixtures).WithClock(func() time.Time { return fixedTime })
	}

	outputs, err := p.Run(ctx, inputs)
	for _, out := range outputs {
		if !*quiet {
			fmt.Println(reporting.RenderTable(out.Report))
		}
		fmt.Printf("Report for %s generated:\n", out.Venue)
		for _, f := range out.Files {
			fmt.Printf("  - %s\n", f)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running pipeline: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. In fixture mode a missing file falls back to
// a single demo venue.
func loadConfig(path string, useFixtures bool) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err == nil {
		return cfg, nil
	}
	if !useFixtures || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return config.Parse([]byte(fmt.Sprintf(`
store: {backend: memory}
venues:
  - id: %s
    display_name: Demo Hall
    listing_url: https://fixtures.invalid/demo
`, fixtureVenue)))
}

func selectInputs(cfg *config.Config, ids []string) ([]pipeline.VenueInput, error) {
	venues := cfg.Venues
	if len(ids) > 0 {
		venues = venues[:0:0]
		for _, id := range ids {
			v, ok := cfg.FindVenue(id)
			if !ok {
				return nil, fmt.Errorf("venue %q is not configured", id)
			}
			venues = append(venues, v)
		}
	}

	inputs := make([]pipeline.VenueInput, 0, len(venues))
	for _, v := range venues {
		inputs = append(inputs, pipeline.VenueInput{Venue: v.ID, Filter: cfg.Filter(v)})
	}
	return inputs, nil
}

func sufficiency(cfg *config.Config) pipeline.SufficiencyThresholds {
	th := pipeline.DefaultSufficiencyThresholds()
	th.MinDays = cfg.Report.MinDays
	return th
}

func applyStoreFlags(store *config.StoreConfig, postgresDSN, clickhouseDSN, sqlitePath string) {
	switch {
	case postgresDSN != "":
		store.Backend = config.BackendPostgres
		store.PostgresDSN = postgresDSN
	case sqlitePath != "":
		store.Backend = config.BackendSQLite
		store.SQLitePath = sqlitePath
	}
	if clickhouseDSN != "" {
		store.ClickHouseDSN = clickhouseDSN
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

