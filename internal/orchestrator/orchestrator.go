// Package orchestrator runs collection passes across every configured venue.
// Each venue is collected by its own ingestion.Runner; venues may run concurrently
// but share nothing except the append-only stores.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"hall-data-lab/internal/config"
	"hall-data-lab/internal/discovery"
	"hall-data-lab/internal/extraction"
	"hall-data-lab/internal/fetch"
	"hall-data-lab/internal/ingestion"
	"hall-data-lab/internal/metrics"
	"hall-data-lab/internal/storage"
	"hall-data-lab/internal/verification"
)

// ErrUnknownVenue is returned when a requested venue is not configured.
var ErrUnknownVenue = errors.New("venue not configured")

// Orchestrator coordinates per-venue collection and, optionally, aggregation.
type Orchestrator struct {
	cfg        *config.Config
	stores     storage.Stores
	source     fetch.PageSource
	ownSource  bool
	runners    []*ingestion.Runner
	venues     []config.VenueConfig
	aggregator *metrics.Aggregator
	logger     *log.Logger
}

// Options for creating Orchestrator.
type Options struct {
	Config *config.Config
	Stores storage.Stores

	// Source overrides the page source built from Config.Fetch. It is used as is,
	// without the fetch retry wrapper.
	Source fetch.PageSource

	// Venues limits collection to these venue ids. Empty means all configured venues.
	Venues []string

	Clock  func() time.Time
	Logger *log.Logger
}

// New creates an Orchestrator with one runner per selected venue.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("orchestrator: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	venues, err := selectVenues(cfg, opts.Venues)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:        cfg,
		stores:     opts.Stores,
		source:     opts.Source,
		venues:     venues,
		aggregator: metrics.NewAggregator(opts.Stores.Records, opts.Stores.Summary, cfg.Thresholds(), logger),
		logger:     logger,
	}

	if o.source == nil {
		inner, err := NewSource(cfg.Fetch, logger)
		if err != nil {
			return nil, err
		}
		o.source = fetch.NewRetryingSource(inner, cfg.Fetch.Retry.Policy(), logger)
		o.ownSource = true
	}

	writer := ingestion.NewWriter(ingestion.WriterOptions{
		Records:     opts.Stores.Records,
		Rollups:     opts.Stores.Rollups,
		StorePolicy: cfg.Store.Retry.Policy(),
		Clock:       opts.Clock,
		Logger:      logger,
	})

	for _, v := range venues {
		runner, err := o.buildRunner(v, writer, opts.Clock)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("venue %s: %w", v.ID, err)
		}
		o.runners = append(o.runners, runner)
	}
	return o, nil
}

// NewSource builds the page source selected by the fetch configuration.
func NewSource(cfg config.FetchConfig, logger *log.Logger) (fetch.PageSource, error) {
	switch cfg.Mode {
	case config.FetchModeHTTP:
		return fetch.NewHTTPSource(
			fetch.WithTimeout(cfg.RequestTimeout),
			fetch.WithUserAgent(cfg.UserAgent),
		)
	case config.FetchModeRod, "":
		return fetch.NewRodSource(fetch.RodOptions{
			RemoteURL:       cfg.RemoteURL,
			NavigateTimeout: cfg.NavigateTimeout,
			Logger:          logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.Mode)
	}
}

func (o *Orchestrator) buildRunner(v config.VenueConfig, writer *ingestion.Writer, clock func() time.Time) (*ingestion.Runner, error) {
	logger := log.New(o.logger.Writer(), fmt.Sprintf("[runner:%s] ", v.ID), o.logger.Flags())

	disc, err := discovery.NewDiscoverer(v.DiscoveryOptions())
	if err != nil {
		return nil, err
	}

	verifier := verification.NewVerifier(v.DisplayName, o.cfg.DefaultYear)
	if len(v.IdentitySelectors) > 0 {
		verifier.IdentitySelectors = v.IdentitySelectors
	}

	ex := extraction.NewExtractor(extraction.Options{
		Source:        o.source,
		Verifier:      verifier,
		Layout:        v.ColumnLayout(),
		HeaderKeyword: v.HeaderKeyword,
		DetailQuery:   v.DetailQuery,
		Settle:        o.cfg.Fetch.ReportSettle,
		Logger:        logger,
	})

	return ingestion.NewRunner(ingestion.RunnerOptions{
		Venue:         v.Venue(),
		Source:        o.source,
		Discoverer:    disc,
		Extractor:     ex,
		Writer:        writer,
		Rollups:       o.stores.Rollups,
		Reviews:       o.stores.Reviews,
		DefaultYear:   o.cfg.DefaultYear,
		ListingSettle: o.cfg.Fetch.ListingSettle,
		ScrollPasses:  o.cfg.Fetch.ScrollPasses,
		TaskTimeout:   o.cfg.Collect.TaskTimeout,
		Clock:         clock,
		Logger:        logger,
	}), nil
}

func selectVenues(cfg *config.Config, ids []string) ([]config.VenueConfig, error) {
	if len(ids) == 0 {
		return cfg.Venues, nil
	}
	out := make([]config.VenueConfig, 0, len(ids))
	for _, id := range ids {
		v, ok := cfg.FindVenue(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, id)
		}
		out = append(out, v)
	}
	return out, nil
}

// VenueResult is the outcome of one venue within a Run.
type VenueResult struct {
	Venue        string
	Run          *ingestion.RunResult // nil when the pass failed before planning
	Err          error                // iteration-level failure (listing, snapshot)
	Aggregation  *metrics.Result      // set when aggregation ran and succeeded
	AggregateErr error
}

// Result contains results from one orchestrated pass.
type Result struct {
	Venues   []*VenueResult // in configuration order
	Duration time.Duration
}

// Failed returns the number of venues whose pass failed at iteration level.
func (r *Result) Failed() int {
	n := 0
	for _, v := range r.Venues {
		if v.Err != nil {
			n++
		}
	}
	return n
}

// Committed returns the number of days committed across all venues.
func (r *Result) Committed() int {
	n := 0
	for _, v := range r.Venues {
		if v.Run != nil {
			n += len(v.Run.Committed)
		}
	}
	return n
}

// Run performs one collection pass over every selected venue, at most
// Collect.Concurrency at a time. A venue's failure is recorded in its VenueResult
// and never stops the other venues. Returns ctx.Err() if ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Venues: make([]*VenueResult, len(o.runners))}

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Collect.Concurrency)

	for i, runner := range o.runners {
		vc := o.venues[i]
		vr := &VenueResult{Venue: vc.ID}
		result.Venues[i] = vr

		g.Go(func() error {
			if ctx.Err() != nil {
				vr.Err = ctx.Err()
				return nil
			}

			run, err := runner.RunOnce(ctx)
			vr.Run = run
			if err != nil {
				vr.Err = err
				if !errors.Is(err, context.Canceled) {
					o.logger.Printf("[orchestrator] Venue %s failed: %v", vc.ID, err)
				}
				return nil
			}

			o.logger.Printf("[orchestrator] Venue %s: %s, %d days committed, %d failed, %d records",
				vc.ID, run.Status(), len(run.Committed), len(run.Failures), run.RecordsWritten)

			if o.cfg.Collect.AggregateAfterCollect && len(run.Committed) > 0 {
				vr.Aggregation, vr.AggregateErr = o.aggregator.ComputeAndStore(ctx, vc.ID, o.cfg.Filter(vc))
				if vr.AggregateErr != nil {
					o.logger.Printf("[orchestrator] Aggregation for %s failed: %v", vc.ID, vr.AggregateErr)
				}
			}
			return nil
		})
	}

	// Goroutines never return errors; failures live in the venue results.
	_ = g.Wait()
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	o.logger.Printf("[orchestrator] Pass completed in %s: %d venues, %d days committed, %d venues failed",
		result.Duration.Round(time.Millisecond), len(result.Venues), result.Committed(), result.Failed())
	return result, nil
}

// Aggregate recomputes the summary tables of every selected venue.
// Venues without records are skipped.
func (o *Orchestrator) Aggregate(ctx context.Context) (map[string]*metrics.Result, error) {
	out := make(map[string]*metrics.Result, len(o.venues))
	var errs []error
	for _, v := range o.venues {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := o.aggregator.ComputeAndStore(ctx, v.ID, o.cfg.Filter(v))
		if errors.Is(err, metrics.ErrNoRecords) {
			o.logger.Printf("[orchestrator] No records for %s yet", v.ID)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[v.ID] = res
	}
	return out, errors.Join(errs...)
}

// Venues returns the ids of the selected venues in configuration order.
func (o *Orchestrator) Venues() []string {
	ids := make([]string, len(o.venues))
	for i, v := range o.venues {
		ids[i] = v.ID
	}
	return ids
}

// Close releases the page source if the orchestrator created it.
func (o *Orchestrator) Close() error {
	if !o.ownSource {
		return nil
	}
	if c, ok := o.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
