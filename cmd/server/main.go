// Package main provides unified server that runs all components together:
// - Collection (scheduled): every venue's listing, new days committed to the store
// - Reporting (scheduled): aggregation, REPORT_<venue>.md and CSVs
// - HTTP: /health, /metrics, /status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/orchestrator"
	"hall-data-lab/internal/pipeline"
	"hall-data-lab/internal/storage"
	"hall-data-lab/internal/storage/backend"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	cfg *config.Config

	// Components
	stores   storage.Stores
	orch     *orchestrator.Orchestrator
	reporter *pipeline.ReportPipeline
	logger   *log.Logger

	// Closed after the first collection pass, successful or not
	firstCollect     chan struct{}
	firstCollectOnce sync.Once

	// State
	mu             sync.Mutex
	started        time.Time
	lastCollectRun time.Time
	lastReportRun  time.Time
	collectRunning bool
	reportRunning  bool
	venues         map[string]VenueStatus

	// Stats
	collectRuns int
	reportRuns  int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", envOr("HALL_CONFIG", "config.yaml"), "Path to the YAML configuration file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (selects the postgres backend)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for unit records and summaries")
	sqlitePath := flag.String("sqlite-path", os.Getenv("SQLITE_PATH"), "SQLite database file (overrides store.sqlite_path)")
	outputDir := flag.String("output-dir", "", "Output directory for reports (overrides report.output_dir)")
	collectInterval := flag.Duration("collect-interval", 0, "Collection interval (overrides collect.interval)")
	reportInterval := flag.Duration("report-interval", 0, "Report generation interval (overrides report.interval)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of the configured backend")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for /health, /metrics and /status")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyStoreFlags(&cfg.Store, *postgresDSN, *clickhouseDSN, *sqlitePath, *useMemory)
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}
	if *collectInterval > 0 {
		cfg.Collect.Interval = *collectInterval
	}
	if *reportInterval > 0 {
		cfg.Report.Interval = *reportInterval
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, closeStores, err := backend.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer closeStores()

	server, err := NewServer(cfg, stores, nil, logger)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}
	defer server.Close()

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
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

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// NewServer wires the orchestrator and report pipeline over stores. orchOpts may
// override the page source and venue selection; nil builds everything from cfg.
func NewServer(cfg *config.Config, stores storage.Stores, orchOpts *orchestrator.Options, logger *log.Logger) (*Server, error) {
	opts := orchestrator.Options{}
	if orchOpts != nil {
		opts = *orchOpts
	}
	opts.Config = cfg
	opts.Stores = stores
	if opts.Logger == nil {
		opts.Logger = log.New(logger.Writer(), "", logger.Flags())
	}

	orch, err := orchestrator.New(opts)
	if err != nil {
		return nil, err
	}

	th := pipeline.DefaultSufficiencyThresholds()
	th.MinDays = cfg.Report.MinDays
	reporter := pipeline.NewReportPipeline(stores, cfg.Thresholds(), cfg.Report.OutputDir,
		log.New(logger.Writer(), "[report] ", logger.Flags())).WithSufficiency(th)

	return &Server{
		cfg:          cfg,
		stores:       stores,
		orch:         orch,
		reporter:     reporter,
		logger:       logger,
		firstCollect: make(chan struct{}),
		started:      time.Now(),
		venues:       make(map[string]VenueStatus),
	}, nil
}

// Close releases the page source.
func (s *Server) Close() error {
	return s.orch.Close()
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	// Create error channel for goroutines
	errCh := make(chan error, 2)

	// Start collection scheduler in background
	go func() {
		err := s.runCollectScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("collection scheduler: %w", err)
		}
	}()

	// Start report scheduler in background
	go func() {
		err := s.runReportScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runCollectScheduler runs collection on schedule.
func (s *Server) runCollectScheduler(ctx context.Context) error {
	s.logger.Printf("Starting collection scheduler (interval: %v)...", s.cfg.Collect.Interval)

	// Run immediately on start
	s.runCollect(ctx)

	ticker := time.NewTicker(s.cfg.Collect.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCollect(ctx)
		}
	}
}

// runCollect executes one collection pass over every venue.
func (s *Server) runCollect(ctx context.Context) {
	s.mu.Lock()
	if s.collectRunning {
		s.mu.Unlock()
		s.logger.Println("Collection already running, skipping...")
		return
	}
	s.collectRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.collectRunning = false
		s.lastCollectRun = time.Now()
		s.collectRuns++
		s.mu.Unlock()
		s.firstCollectOnce.Do(func() { close(s.firstCollect) })
	}()

	s.logger.Println("Running collection...")
	result, err := s.orch.Run(ctx)
	if result != nil {
		s.recordVenues(result)
	}
	if err != nil {
		s.logger.Printf("Collection interrupted: %v", err)
		return
	}
	s.logger.Printf("Collection completed in %v: %d days committed, %d venues failed",
		result.Duration.Round(time.Millisecond), result.Committed(), result.Failed())
}

func (s *Server) recordVenues(result *orchestrator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range result.Venues {
		st := VenueStatus{Venue: v.Venue, LastRun: time.Now()}
		if v.Run != nil {
			st.Status = v.Run.Status()
			st.Committed = len(v.Run.Committed)
			st.Failures = len(v.Run.Failures)
			st.Records = v.Run.RecordsWritten
		}
		if v.Err != nil {
			st.Status = "failed"
			st.LastError = v.Err.Error()
		}
		s.venues[v.Venue] = st
	}
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.cfg.Report.Interval)

	// Wait for the first collection pass before generating reports
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.firstCollect:
	}

	s.runReport(ctx)

	ticker := time.NewTicker(s.cfg.Report.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport aggregates every venue and writes the report files.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Generating reports...")
	start := time.Now()

	inputs := make([]pipeline.VenueInput, 0, len(s.cfg.Venues))
	for _, id := range s.orch.Venues() {
		v, _ := s.cfg.FindVenue(id)
		inputs = append(inputs, pipeline.VenueInput{Venue: v.ID, Filter: s.cfg.Filter(v)})
	}

	outputs, err := s.reporter.Run(ctx, inputs)
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
	}

	s.logger.Printf("%d report(s) generated in %v to %s/", len(outputs), time.Since(start), s.cfg.Report.OutputDir)
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, s.routes()); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// VenueStatus is the outcome of a venue's latest collection pass.
type VenueStatus struct {
	Venue     string    `json:"venue"`
	Status    string    `json:"status"`
	LastRun   time.Time `json:"last_run"`
	Committed int       `json:"committed_days"`
	Failures  int       `json:"failed_tasks"`
	Records   int       `json:"records_written"`
	LastError string    `json:"last_error,omitempty"`
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string        `json:"status"`
	Uptime         string        `json:"uptime"`
	Started        time.Time     `json:"started"`
	LastCollectRun time.Time     `json:"last_collect_run,omitempty"`
	LastReportRun  time.Time     `json:"last_report_run,omitempty"`
	CollectRuns    int           `json:"collect_runs"`
	ReportRuns     int           `json:"report_runs"`
	CollectRunning bool          `json:"collect_running"`
	ReportRunning  bool          `json:"report_running"`
	Venues         []VenueStatus `json:"venues"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		Started:        s.started,
		LastCollectRun: s.lastCollectRun,
		LastReportRun:  s.lastReportRun,
		CollectRuns:    s.collectRuns,
		ReportRuns:     s.reportRuns,
		CollectRunning: s.collectRunning,
		ReportRunning:  s.reportRunning,
		Venues:         make([]VenueStatus, 0, len(s.venues)),
	}
	for _, id := range s.orch.Venues() {
		if st, ok := s.venues[id]; ok {
			resp.Venues = append(resp.Venues, st)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
