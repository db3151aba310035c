package fetch

import (
	"context"
	"io"
	"log"
	"time"

	"hall-data-lab/internal/retry"
)

// RetryingSource retries transient fetch failures of an inner PageSource.
// Non-temporary failures (4xx other than 408/429) are returned at once.
type RetryingSource struct {
	inner  PageSource
	policy retry.Policy
	logger *log.Logger
}

// NewRetryingSource wraps inner with policy. A nil logger uses log.Default().
func NewRetryingSource(inner PageSource, policy retry.Policy, logger *log.Logger) *RetryingSource {
	if logger == nil {
		logger = log.Default()
	}
	return &RetryingSource{inner: inner, policy: policy, logger: logger}
}

// FetchRendered delegates to the inner source under the retry policy.
func (s *RetryingSource) FetchRendered(ctx context.Context, pageURL string, opts FetchOptions) (string, error) {
	var html string

	p := s.policy
	p.Notify = func(err error, wait time.Duration) {
		s.logger.Printf("Retrying %s after %v: %v", pageURL, wait, err)
	}

	err := retry.Do(ctx, p, func(ctx context.Context) error {
		out, err := s.inner.FetchRendered(ctx, pageURL, opts)
		if err != nil {
			if !IsTemporary(err) {
				return retry.Permanent(err)
			}
			return err
		}
		html = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

var _ PageSource = (*RetryingSource)(nil)

// Close closes the inner source if it holds resources.
func (s *RetryingSource) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
