package fetch

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hall-data-lab/internal/retry"
)

func TestHTTPSource_FetchRendered(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body><table></table></body></html>")
	}))
	defer server.Close()

	src, err := NewHTTPSource(WithUserAgent("hall-test/1.0"), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	html, err := src.FetchRendered(context.Background(), server.URL+"/report/1000", FetchOptions{Settle: time.Millisecond})
	if err != nil {
		t.Fatalf("FetchRendered: %v", err)
	}
	if html != "<html><body><table></table></body></html>" {
		t.Errorf("Unexpected body: %q", html)
	}
	if gotUA != "hall-test/1.0" {
		t.Errorf("Expected custom user agent, got %q", gotUA)
	}
}

func TestHTTPSource_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src, _ := NewHTTPSource()
	_, err := src.FetchRendered(context.Background(), server.URL, FetchOptions{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || se.Temporary() {
		t.Errorf("Expected permanent 404, got %d temporary=%v", se.Code, se.Temporary())
	}
}

func TestHTTPSource_SettleHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	src, _ := NewHTTPSource()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.FetchRendered(ctx, server.URL, FetchOptions{Settle: time.Minute})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestRetryingSource_RetriesTemporary(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "done")
	}))
	defer server.Close()

	inner, _ := NewHTTPSource()
	src := NewRetryingSource(inner, retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}, log.New(io.Discard, "", 0))

	html, err := src.FetchRendered(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchRendered: %v", err)
	}
	if html != "done" {
		t.Errorf("Expected done, got %q", html)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestRetryingSource_PermanentNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	inner, _ := NewHTTPSource()
	src := NewRetryingSource(inner, retry.Policy{
		MaxAttempts:     5,
		InitialInterval: time.Millisecond,
	}, log.New(io.Discard, "", 0))

	_, err := src.FetchRendered(context.Background(), server.URL, FetchOptions{})

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

func TestWithDetailQuery(t *testing.T) {
	tests := []struct {
		url   string
		query string
		want  string
	}{
		{"https://example.com/report/1000", "", "https://example.com/report/1000"},
		{"https://example.com/report/1000", "view=all", "https://example.com/report/1000?view=all"},
		{"https://example.com/report/1000?page=2", "view=all", "https://example.com/report/1000?page=2&view=all"},
		{"https://example.com/report/1000?view=top", "view=all", "https://example.com/report/1000?view=all"},
	}

	for _, tt := range tests {
		got, err := WithDetailQuery(tt.url, tt.query)
		if err != nil {
			t.Fatalf("WithDetailQuery(%q, %q): %v", tt.url, tt.query, err)
		}
		if got != tt.want {
			t.Errorf("WithDetailQuery(%q, %q): expected %q, got %q", tt.url, tt.query, tt.want, got)
		}
	}
}

func TestIsTemporary(t *testing.T) {
	if IsTemporary(nil) {
		t.Error("nil is not temporary")
	}
	if IsTemporary(context.Canceled) {
		t.Error("cancellation is not temporary")
	}
	if !IsTemporary(errors.New("connection reset")) {
		t.Error("transport errors are temporary")
	}
	if !IsTemporary(&StatusError{Code: 429}) || IsTemporary(&StatusError{Code: 400}) {
		t.Error("status classification is wrong")
	}
}
