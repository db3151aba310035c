package fetch

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// HTTPSource fetches pages with plain GET requests. It is suitable for sites whose
// report tables are present in the served HTML; ScrollPasses is ignored.
type HTTPSource struct {
	client *resty.Client
}

// HTTPOption configures HTTPSource.
type HTTPOption func(*HTTPSource)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.client.SetTimeout(d)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		if ua != "" {
			s.client.SetHeader("User-Agent", ua)
		}
	}
}

// NewHTTPSource creates an HTTPSource with a cookie jar, so session cookies set by
// the listing page are sent with report requests.
func NewHTTPSource(opts ...HTTPOption) (*HTTPSource, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("User-Agent", DefaultUserAgent)
	client.SetHeader("Accept-Language", "ja,en;q=0.8")

	s := &HTTPSource{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchRendered GETs pageURL and waits opts.Settle before returning the body.
func (s *HTTPSource) FetchRendered(ctx context.Context, pageURL string, opts FetchOptions) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &StatusError{URL: pageURL, Code: resp.StatusCode()}
	}

	if err := sleep(ctx, opts.Settle); err != nil {
		return "", err
	}
	return resp.String(), nil
}

var _ PageSource = (*HTTPSource)(nil)
