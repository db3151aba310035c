package ingestion

import (
	"context"
	"errors"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/extraction"
	"hall-data-lab/internal/verification"
)

// FailureKind classifies why a task was abandoned.
type FailureKind string

const (
	// FailureTransient is a malformed page or row; the day is retried next run.
	FailureTransient FailureKind = "transient"
	// FailureIdentityMismatch is a page that does not belong to the venue.
	FailureIdentityMismatch FailureKind = "identity_mismatch"
	// FailureDateMismatch is a page showing another day than the task's.
	FailureDateMismatch FailureKind = "date_mismatch"
	// FailureEmptyDay is a report page without rows.
	FailureEmptyDay FailureKind = "empty_day"
	// FailureUpstreamIO is a fetch or store call that failed after retries.
	FailureUpstreamIO FailureKind = "upstream_io"
	// FailureCancelled is a task interrupted by shutdown.
	FailureCancelled FailureKind = "cancelled"
)

// Classify maps a task error onto a FailureKind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	case errors.Is(err, verification.ErrIdentityMismatch):
		return FailureIdentityMismatch
	case errors.Is(err, verification.ErrDateMismatch):
		return FailureDateMismatch
	case errors.Is(err, ErrEmptyDay):
		return FailureEmptyDay
	case errors.Is(err, extraction.ErrMalformedPage):
		return FailureTransient
	default:
		return FailureUpstreamIO
	}
}

// TaskFailure is an abandoned task.
type TaskFailure struct {
	Task domain.FetchTask
	Kind FailureKind
	Err  error
}
