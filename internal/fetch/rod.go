package fetch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// DefaultNavigateTimeout bounds navigation plus load of a single page.
const DefaultNavigateTimeout = 45 * time.Second

// scrollPause lets lazily rendered rows attach between scroll passes.
const scrollPause = 500 * time.Millisecond

// RodOptions configures RodSource.
type RodOptions struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	NavigateTimeout time.Duration
	Logger          *log.Logger
}

// RodSource renders pages in headless Chrome with stealth patches applied,
// for listings that build their tables client-side.
type RodSource struct {
	opts RodOptions

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRodSource creates a RodSource. Chrome is started lazily on first fetch.
func NewRodSource(opts RodOptions) *RodSource {
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = DefaultNavigateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &RodSource{opts: opts}
}

func (s *RodSource) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	wsURL := s.opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		s.lnch = l
		s.opts.Logger.Printf("Launched local chrome: %s", wsURL)
	} else {
		s.opts.Logger.Printf("Connecting to remote chrome: %s", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanupLocked()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	s.browser = b
	return b, nil
}

// FetchRendered opens a stealth tab, navigates, scrolls, waits for the page to settle
// and returns the serialised DOM.
func (s *RodSource) FetchRendered(ctx context.Context, pageURL string, opts FetchOptions) (string, error) {
	b, err := s.ensureBrowser()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		s.reset()
		return "", fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigateTimeout)
	defer cancel()

	p := page.Context(navCtx)
	if err := p.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		s.opts.Logger.Printf("Wait load timeout for %s: %v", pageURL, err)
	}

	for i := 0; i < opts.ScrollPasses; i++ {
		if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return "", fmt.Errorf("scroll %s: %w", pageURL, err)
		}
		if err := sleep(ctx, scrollPause); err != nil {
			return "", err
		}
	}

	if err := sleep(ctx, opts.Settle); err != nil {
		return "", err
	}

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("read DOM %s: %w", pageURL, err)
	}
	return res.Value.Str(), nil
}

// reset drops the browser so the next fetch reconnects, e.g. after Chrome crashed.
func (s *RodSource) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

// Close shuts down Chrome (if launched locally) and disconnects.
func (s *RodSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	return nil
}

func (s *RodSource) cleanupLocked() {
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

var _ PageSource = (*RodSource)(nil)
