package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/normalization"
	"hall-data-lab/internal/observability"
	"hall-data-lab/internal/retry"
	"hall-data-lab/internal/storage"
)

// Sentinel errors.
var (
	// ErrEmptyDay is returned when a report page has no rows. No rollup is written,
	// so the day stays eligible on the next run.
	ErrEmptyDay = errors.New("report has no rows")
	// ErrAlreadyIngested is returned when the day's rollup already exists.
	ErrAlreadyIngested = errors.New("day already ingested")
)

// WriterOptions contains configuration for creating a Writer.
type WriterOptions struct {
	Records     storage.UnitRecordStore
	Rollups     storage.DailyRollupStore
	StorePolicy retry.Policy // zero value uses retry.DefaultStorePolicy()
	Clock       func() time.Time
	Logger      *log.Logger
}

// Writer commits one day's rows: unit records first, then the rollup that marks
// the day complete.
type Writer struct {
	records storage.UnitRecordStore
	rollups storage.DailyRollupStore
	policy  retry.Policy
	clock   func() time.Time
	logger  *log.Logger
}

// NewWriter creates a Writer.
func NewWriter(opts WriterOptions) *Writer {
	policy := opts.StorePolicy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultStorePolicy()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		records: opts.Records,
		rollups: opts.Rollups,
		policy:  policy,
		clock:   clock,
		logger:  logger,
	}
}

// CommitResult is a committed day. Inserted counts the records actually added;
// rows already stored by an earlier interrupted attempt are not counted.
type CommitResult struct {
	Rollup   *domain.DailyRollup
	Inserted int
}

// Commit normalizes rows into unit records, appends them, then appends the rollup.
//
// A crash between the two appends leaves the date without a rollup, so the next run
// re-fetches it; record ids are deterministic, so the re-append inserts nothing twice.
func (w *Writer) Commit(ctx context.Context, venue string, task domain.FetchTask, rows []domain.RawRow) (*CommitResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", venue, task.Date, ErrEmptyDay)
	}

	createdAt := w.clock().UnixMilli()
	records := normalization.NormalizeRows(venue, task.Date, rows, createdAt)

	var inserted int
	err := w.storeCall(ctx, "append_records", func(ctx context.Context) error {
		n, err := w.records.AppendBulk(ctx, records)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append records %s %s: %w", venue, task.Date, err)
	}

	rollup := domain.NewDailyRollup(venue, task.Date, records, createdAt)
	err = w.storeCall(ctx, "append_rollup", func(ctx context.Context) error {
		return w.rollups.Append(ctx, rollup)
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, fmt.Errorf("%s %s: %w", venue, task.Date, ErrAlreadyIngested)
	}
	if err != nil {
		return nil, fmt.Errorf("append rollup %s %s: %w", venue, task.Date, err)
	}

	observability.RecordCommit(venue, inserted)
	w.logger.Printf("Committed %s %s: %d rows (%d new), total diff %d, total games %d",
		venue, task.Date, rollup.UnitCount, inserted, rollup.TotalDiff, rollup.TotalGames)
	return &CommitResult{Rollup: rollup, Inserted: inserted}, nil
}

// storeCall runs op under the store retry policy. Duplicate and invalid-input
// errors are final.
func (w *Writer) storeCall(ctx context.Context, operation string, op func(context.Context) error) error {
	p := w.policy
	p.Notify = func(err error, wait time.Duration) {
		w.logger.Printf("Store %s failed, retrying in %v: %v", operation, wait, err)
	}

	return retry.Do(ctx, p, func(ctx context.Context) error {
		start := time.Now()
		err := op(ctx)
		observability.RecordStoreCall(operation, time.Since(start), err)
		if errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
			return retry.Permanent(err)
		}
		return err
	})
}
