package discovery

import (
	"regexp"
	"testing"

	"hall-data-lab/internal/domain"
)

const listingHTML = `
<html><body>
  <ul>
    <li>
      <h3>Hall Alpha Shinjuku</h3>
      <a href="/report/1001#top">11/5(火) データ</a>
    </li>
    <li>
      <h3>Other Hall</h3>
      <a href="/report/2002">11/5(火) データ</a>
    </li>
    <li>
      <h3>Hall Alpha Shinjuku</h3>
      <a href="https://example.com/report/1000"><img src="x.png"></a>
    </li>
    <li>
      <h3>Hall Alpha Shinjuku</h3>
      <a href="/report/1000">11/4(月) データ</a>
    </li>
  </ul>
  <a href="/about">About</a>
  <a href="mailto:info@example.com">Mail</a>
  <a href="#section">Jump</a>
  <a href="/report/12/">short id</a>
</body></html>`

func TestDiscover_NameScoped(t *testing.T) {
	d, err := NewDiscoverer(Options{
		Strategy:       domain.StrategyNameScoped,
		VenueSubstring: "Hall Alpha",
	})
	if err != nil {
		t.Fatalf("NewDiscoverer: %v", err)
	}

	got, err := d.Discover(listingHTML, "https://example.com/list/?page=1")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []domain.ReportCandidate{
		{URL: "https://example.com/report/1001", RawTitleText: "11/5(火) データ"},
		{URL: "https://example.com/report/1000", RawTitleText: "11/4(月) データ"},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidate %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestDiscover_PatternScoped(t *testing.T) {
	d, err := NewDiscoverer(Options{Strategy: domain.StrategyPatternScoped})
	if err != nil {
		t.Fatalf("NewDiscoverer: %v", err)
	}

	got, err := d.Discover(listingHTML, "https://example.com/list/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	// 1001, 2002, 1000 in document order; /report/12/ is too short, /about has no id.
	if len(got) != 3 {
		t.Fatalf("Expected 3 candidates, got %d: %+v", len(got), got)
	}
	if got[0].URL != "https://example.com/report/1001" || got[1].URL != "https://example.com/report/2002" {
		t.Errorf("Unexpected order: %+v", got)
	}
	if got[2].URL != "https://example.com/report/1000" || got[2].RawTitleText != "11/4(月) データ" {
		t.Errorf("Expected empty title upgraded by later anchor, got %+v", got[2])
	}
}

func TestDiscover_CustomPattern(t *testing.T) {
	d, err := NewDiscoverer(Options{
		Strategy:    domain.StrategyPatternScoped,
		LinkPattern: regexp.MustCompile(`^/about$`),
	})
	if err != nil {
		t.Fatalf("NewDiscoverer: %v", err)
	}

	got, err := d.Discover(listingHTML, "https://example.com/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://example.com/about" {
		t.Errorf("Unexpected candidates: %+v", got)
	}
}

func TestDiscover_EmptyListing(t *testing.T) {
	d, _ := NewDiscoverer(Options{Strategy: domain.StrategyPatternScoped})

	got, err := d.Discover("<html><body><p>no links</p></body></html>", "https://example.com/")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no candidates, got %+v", got)
	}
}

func TestNewDiscoverer_Validation(t *testing.T) {
	if _, err := NewDiscoverer(Options{Strategy: "bogus"}); err == nil {
		t.Error("Expected error for unknown strategy")
	}
	if _, err := NewDiscoverer(Options{Strategy: domain.StrategyNameScoped}); err == nil {
		t.Error("Expected error for name strategy without venue substring")
	}
}
