package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/storage"
)

// ErrNoRecords is returned when a venue has no ingested records to aggregate.
var ErrNoRecords = errors.New("no records available for aggregation")

// Result is one aggregation over a venue's history.
type Result struct {
	UnitStats  []*domain.UnitStat
	DailyStats []*domain.DailyStat
	Funnel     Funnel
}

// Aggregate cleans records with f and computes both statistics tables.
func Aggregate(records []*domain.UnitRecord, f Filter, th Thresholds) *Result {
	cleaned, funnel := Clean(records, f)
	return &Result{
		UnitStats:  ComputeUnitStats(cleaned, th),
		DailyStats: ComputeDailyStats(cleaned, th),
		Funnel:     funnel,
	}
}

// Aggregator computes statistics from the record store and writes them to the
// summary store.
type Aggregator struct {
	records    storage.UnitRecordStore
	summary    storage.SummaryStore
	thresholds Thresholds
	logger     *log.Logger
}

// NewAggregator creates a new metrics aggregator. A nil logger uses log.Default().
func NewAggregator(records storage.UnitRecordStore, summary storage.SummaryStore, th Thresholds, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		records:    records,
		summary:    summary,
		thresholds: th.withDefaults(),
		logger:     logger,
	}
}

// Compute loads the venue's full history and aggregates it without storing.
// Returns ErrNoRecords if the venue has no records.
func (a *Aggregator) Compute(ctx context.Context, venue string, f Filter) (*Result, error) {
	records, err := a.records.GetByVenue(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("load records for %s: %w", venue, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", venue, ErrNoRecords)
	}
	return Aggregate(records, f, a.thresholds), nil
}

// ComputeAndStore aggregates the venue's history and overwrites its unit and daily
// statistics tables.
func (a *Aggregator) ComputeAndStore(ctx context.Context, venue string, f Filter) (*Result, error) {
	res, err := a.Compute(ctx, venue, f)
	if err != nil {
		observability.RecordAggregation(venue, "failed")
		return nil, err
	}

	// Stats carry the venue of their records; the tables are keyed by the requested venue.
	for _, s := range res.UnitStats {
		s.Venue = venue
	}
	for _, s := range res.DailyStats {
		s.Venue = venue
	}

	if err := a.summary.ReplaceUnitStats(ctx, venue, res.UnitStats); err != nil {
		observability.RecordAggregation(venue, "failed")
		return nil, fmt.Errorf("store unit stats for %s: %w", venue, err)
	}
	if err := a.summary.ReplaceDailyStats(ctx, venue, res.DailyStats); err != nil {
		observability.RecordAggregation(venue, "failed")
		return nil, fmt.Errorf("store daily stats for %s: %w", venue, err)
	}

	observability.RecordAggregation(venue, "success")
	a.logger.Printf("Aggregated %s: %d of %d records kept, %d units, %d days",
		venue, res.Funnel.AfterDedup, res.Funnel.Input, len(res.UnitStats), len(res.DailyStats))
	return res, nil
}
