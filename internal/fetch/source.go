// Package fetch retrieves page HTML for the collectors, either through a headless
// browser (for listings that render client-side) or plain HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FetchOptions tune a single fetch.
type FetchOptions struct {
	// Settle is how long to wait after load before the DOM is read.
	Settle time.Duration
	// ScrollPasses scrolls to the bottom this many times to trigger lazy rendering.
	ScrollPasses int
}

// PageSource returns the rendered HTML of a page.
type PageSource interface {
	FetchRendered(ctx context.Context, pageURL string, opts FetchOptions) (string, error)
}

// StatusError is returned when a server answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Temporary reports whether retrying may succeed: 5xx, 408 and 429.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// IsTemporary reports whether err is worth retrying. Errors other than
// StatusError (timeouts, resets, browser hiccups) are treated as temporary;
// context cancellation is not.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// WithDetailQuery merges a raw query such as "view=all" into pageURL so the
// report page renders every row. Existing parameters with the same keys are replaced.
func WithDetailQuery(pageURL, query string) (string, error) {
	if query == "" {
		return pageURL, nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse task url: %w", err)
	}
	extra, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("parse detail query %q: %w", query, err)
	}

	q := u.Query()
	for k, vs := range extra {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
