// Package fetchtest provides an in-memory fetch.PageSource for tests.
package fetchtest

import (
	"context"
	"net/http"
	"sync"

	"hall-data-lab/internal/fetch"
)

// Pages serves fixed HTML by URL. Unknown URLs answer with a 404 StatusError.
type Pages struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

// NewPages creates a Pages serving the given url -> html map.
func NewPages(pages map[string]string) *Pages {
	p := &Pages{pages: make(map[string]string), errs: make(map[string]error)}
	for u, html := range pages {
		p.pages[u] = html
	}
	return p
}

// Set replaces the HTML served for pageURL.
func (p *Pages) Set(pageURL, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[pageURL] = html
}

// Fail makes every fetch of pageURL return err.
func (p *Pages) Fail(pageURL string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[pageURL] = err
}

// Calls returns the fetched URLs in order.
func (p *Pages) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// FetchRendered implements fetch.PageSource.
func (p *Pages) FetchRendered(ctx context.Context, pageURL string, _ fetch.FetchOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pageURL)

	if err, ok := p.errs[pageURL]; ok {
		return "", err
	}
	html, ok := p.pages[pageURL]
	if !ok {
		return "", &fetch.StatusError{URL: pageURL, Code: http.StatusNotFound}
	}
	return html, nil
}

var _ fetch.PageSource = (*Pages)(nil)
