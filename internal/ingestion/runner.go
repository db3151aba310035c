// Package ingestion collects a venue's new report days into the store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hall-data-lab/internal/discovery"
	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/extraction"
	"hall-data-lab/internal/fetch"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/planner"
	"hall-data-lab/internal/storage"
)

// Default listing fetch configuration.
const (
	DefaultListingSettle = 3 * time.Second
	DefaultScrollPasses  = 3
	DefaultTaskTimeout   = 5 * time.Minute
)

// RunResult summarises one collection pass over a venue.
type RunResult struct {
	Venue           string
	Candidates      int
	Plan            *planner.Plan
	Committed       []*domain.DailyRollup
	RecordsWritten  int
	AlreadyIngested int
	Failures        []TaskFailure
	Cancelled       bool
	Duration        time.Duration
}

// Status is "success" when every planned task committed, "partial" when some were
// abandoned, and "cancelled" when the pass was interrupted.
func (r *RunResult) Status() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case len(r.Failures) > 0:
		return "partial"
	default:
		return "success"
	}
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Venue         domain.Venue
	Source        fetch.PageSource // used for the listing page
	Discoverer    *discovery.Discoverer
	Extractor     *extraction.Extractor
	Writer        *Writer
	Rollups       storage.DailyRollupStore
	Reviews       storage.ReviewStore // optional
	DefaultYear   int                 // 0 uses the current year
	ListingSettle time.Duration       // 0 uses DefaultListingSettle; negative disables
	ScrollPasses  int                 // 0 uses DefaultScrollPasses; negative disables
	TaskTimeout   time.Duration       // 0 uses DefaultTaskTimeout
	Clock         func() time.Time
	Logger        *log.Logger
}

// Runner performs collection passes for one venue. Tasks run strictly one after
// another with the venue's polite delay before each report fetch.
type Runner struct {
	venue         domain.Venue
	source        fetch.PageSource
	discoverer    *discovery.Discoverer
	extractor     *extraction.Extractor
	writer        *Writer
	rollups       storage.DailyRollupStore
	reviews       storage.ReviewStore
	defaultYear   int
	listingSettle time.Duration
	scrollPasses  int
	taskTimeout   time.Duration
	clock         func() time.Time
	logger        *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	venue := opts.Venue
	if venue.PoliteDelay == 0 {
		venue.PoliteDelay = domain.DefaultPoliteDelay
	}

	listingSettle := opts.ListingSettle
	if listingSettle == 0 {
		listingSettle = DefaultListingSettle
	}
	if listingSettle < 0 {
		listingSettle = 0
	}

	scrollPasses := opts.ScrollPasses
	if scrollPasses == 0 {
		scrollPasses = DefaultScrollPasses
	}
	if scrollPasses < 0 {
		scrollPasses = 0
	}

	taskTimeout := opts.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		venue:         venue,
		source:        opts.Source,
		discoverer:    opts.Discoverer,
		extractor:     opts.Extractor,
		writer:        opts.Writer,
		rollups:       opts.Rollups,
		reviews:       opts.Reviews,
		defaultYear:   opts.DefaultYear,
		listingSettle: listingSettle,
		scrollPasses:  scrollPasses,
		taskTimeout:   taskTimeout,
		clock:         clock,
		logger:        logger,
	}
}

// Venue returns the venue this runner collects.
func (r *Runner) Venue() domain.Venue {
	return r.venue
}

// RunOnce performs one collection pass: listing, discovery, planning, then each
// task in plan order. Task failures are recorded in the result and never stop the
// pass. Errors returned are iteration-level: the listing or the date snapshot could
// not be read, or ctx was cancelled (the partial result is still returned).
//
// Cancellation is checked between tasks only. A task already started runs to
// completion, bounded by the task timeout.
func (r *Runner) RunOnce(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{Venue: r.venue.ID}
	defer func() {
		result.Duration = time.Since(start)
	}()

	plan, err := r.plan(ctx, result)
	if err != nil {
		observability.RecordCollectionRun(r.venue.ID, "failed", time.Since(start))
		return result, err
	}
	result.Plan = plan

	for _, task := range plan.Tasks {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		if err := r.pause(ctx); err != nil {
			result.Cancelled = true
			break
		}
		r.runTask(ctx, task, result)
	}

	r.logger.Printf("Pass done: %d committed, %d already ingested, %d failed, status %s",
		len(result.Committed), result.AlreadyIngested, len(result.Failures), result.Status())
	observability.RecordCollectionRun(r.venue.ID, result.Status(), time.Since(start))

	if result.Cancelled {
		return result, ctx.Err()
	}
	return result, nil
}

// plan fetches the listing, discovers candidates and plans against a fresh snapshot
// of ingested dates.
func (r *Runner) plan(ctx context.Context, result *RunResult) (*planner.Plan, error) {
	fetchStart := time.Now()
	html, err := r.source.FetchRendered(ctx, r.venue.ListingURL, fetch.FetchOptions{
		Settle:       r.listingSettle,
		ScrollPasses: r.scrollPasses,
	})
	observability.RecordFetch(r.venue.ID, "listing", time.Since(fetchStart))
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	candidates, err := r.discoverer.Discover(html, r.venue.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	result.Candidates = len(candidates)
	observability.RecordDiscovered(r.venue.ID, len(candidates))

	dates, err := r.rollups.GetDates(ctx, r.venue.ID)
	if err != nil {
		return nil, fmt.Errorf("load ingested dates: %w", err)
	}
	existing := planner.NewDateSet(dates...)

	year := r.defaultYear
	if year == 0 {
		year = r.clock().Year()
	}
	plan := planner.BuildPlan(candidates, existing, r.venue.Cutoff, year)

	skips := make(map[string]int)
	for reason, n := range plan.CountSkips() {
		skips[string(reason)] = n
	}
	observability.RecordPlan(r.venue.ID, len(plan.Tasks), skips, len(plan.Review))
	r.logger.Printf("Listing has %d candidates, %d already ingested, %d tasks planned, %d skipped",
		len(candidates), existing.Len(), len(plan.Tasks), len(plan.Skipped))

	r.flagForReview(ctx, plan.Review)
	return plan, nil
}

// flagForReview persists ambiguous titles. Failures are logged only: the task
// itself was still planned from the first token.
func (r *Runner) flagForReview(ctx context.Context, items []planner.Review) {
	for _, rv := range items {
		r.logger.Printf("Ambiguous date in title %q, using %s", rv.Candidate.RawTitleText, rv.Token)
		if r.reviews == nil {
			continue
		}
		err := r.reviews.Flag(ctx, &domain.ReviewItem{
			Venue:     r.venue.ID,
			URL:       rv.Candidate.URL,
			Title:     rv.Candidate.RawTitleText,
			Token:     rv.Token,
			Reason:    "ambiguous_date",
			FlaggedAt: r.clock().UnixMilli(),
		})
		if err != nil {
			r.logger.Printf("Failed to flag %s for review: %v", rv.Candidate.URL, err)
		}
	}
}

func (r *Runner) runTask(ctx context.Context, task domain.FetchTask, result *RunResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.taskTimeout)
	defer cancel()

	fetchStart := time.Now()
	ex, err := r.extractor.Extract(ctx, task)
	observability.RecordFetch(r.venue.ID, "report", time.Since(fetchStart))
	if err != nil {
		r.fail(task, err, result)
		return
	}

	commit, err := r.writer.Commit(ctx, r.venue.ID, task, ex.Rows)
	if errors.Is(err, ErrAlreadyIngested) {
		result.AlreadyIngested++
		r.logger.Printf("Skipping %s: %v", task.Date, err)
		return
	}
	if err != nil {
		r.fail(task, err, result)
		return
	}

	result.Committed = append(result.Committed, commit.Rollup)
	result.RecordsWritten += commit.Inserted
}

func (r *Runner) fail(task domain.FetchTask, err error, result *RunResult) {
	kind := Classify(err)
	result.Failures = append(result.Failures, TaskFailure{Task: task, Kind: kind, Err: err})
	observability.RecordTaskFailed(r.venue.ID, string(kind))
	r.logger.Printf("Abandoned %s (%s): %v", task.Date, kind, err)
}

// pause waits the venue's polite delay or until ctx is done.
func (r *Runner) pause(ctx context.Context) error {
	if r.venue.PoliteDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.venue.PoliteDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
