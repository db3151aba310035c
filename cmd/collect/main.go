package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/orchestrator"
	"hall-data-lab/internal/storage/backend"
)

func main() {
	// Parse flags
	configPath := flag.String("config", envOr("HALL_CONFIG", "config.yaml"), "Path to the YAML configuration file")
	venues := flag.String("venue", "", "Comma-separated venue ids to collect (default: all configured)")
	once := flag.Bool("once", false, "Run a single collection pass and exit")
	interval := flag.Duration("interval", 0, "Polling interval (overrides collect.interval)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (selects the postgres backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for unit records and summaries")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (overrides store.sqlite_path)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of the configured backend")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[collect] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyStoreFlags(&cfg.Store, *postgresDSN, *clickhouseDSN, *sqlitePath, *useMemory)
	if *interval > 0 {
		cfg.Collect.Interval = *interval
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, finishing current task...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, cfg, splitList(*venues), *once)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, venues []string, once bool) error {
	stores, closeStores, err := backend.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	orch, err := orchestrator.New(orchestrator.Options{
		Config: cfg,
		Stores: stores,
		Venues: venues,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	logger.Printf("Collecting %d venue(s): %s", len(orch.Venues()), strings.Join(orch.Venues(), ", "))

	for {
		result, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		if once {
			if result.Failed() > 0 {
				logger.Printf("%d venue(s) failed this pass", result.Failed())
			}
			return nil
		}

		logger.Printf("Next pass in %s", cfg.Collect.Interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Collect.Interval):
		}
	}
}

// applyStoreFlags lets flags and environment override the configured store.
func applyStoreFlags(store *config.StoreConfig, postgresDSN, clickhouseDSN, sqlitePath string, useMemory bool) {
	switch {
	case useMemory:
		store.Backend = config.BackendMemory
	case postgresDSN != "":
		store.Backend = config.BackendPostgres
		store.PostgresDSN = postgresDSN
	case sqlitePath != "":
		store.Backend = config.BackendSQLite
		store.SQLitePath = sqlitePath
	}
	if clickhouseDSN != "" && !useMemory {
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
