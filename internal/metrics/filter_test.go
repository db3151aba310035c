package metrics

import (
	"testing"

	"hall-data-lab/internal/domain"
)

var (
	nov4 = domain.MustDate(2024, 11, 4)
	nov5 = domain.MustDate(2024, 11, 5)
)

func rec(date domain.CalendarDate, label string, diff, games int64) *domain.UnitRecord {
	return &domain.UnitRecord{
		RecordID:   date.ISO() + "-" + label,
		Venue:      "hall-x",
		Date:       date,
		ModelName:  "Model A",
		UnitLabel:  label,
		PayoutDiff: diff,
		PlayCount:  games,
	}
}

func TestFilterBySubstrings(t *testing.T) {
	other := rec(nov5, "2", 0, 0)
	other.ModelName = "Model B"
	records := []*domain.UnitRecord{rec(nov5, "1", 0, 0), other}

	if got := FilterBySubstrings(records, "", ""); len(got) != 2 {
		t.Errorf("Expected empty substrings to keep all, got %d", len(got))
	}
	got := FilterBySubstrings(records, "hall", "Model B")
	if len(got) != 1 || got[0].UnitLabel != "2" {
		t.Errorf("Expected only unit 2, got %+v", got)
	}
	if got := FilterBySubstrings(records, "hall-y", ""); len(got) != 0 {
		t.Errorf("Expected venue filter to drop all, got %d", len(got))
	}
}

func TestDropSummaryRows(t *testing.T) {
	records := []*domain.UnitRecord{
		rec(nov5, "123", 0, 0),
		rec(nov5, "合計", 0, 0),
		rec(nov5, "平均1", 0, 0),
	}

	got := DropSummaryRows(records, DefaultSummaryGlyphs)
	if len(got) != 1 || got[0].UnitLabel != "123" {
		t.Errorf("Expected only 123 to survive, got %+v", got)
	}
}

func TestKeepUnitRange(t *testing.T) {
	tests := []struct {
		label string
		keep  bool
	}{
		{"1", true},
		{"123", true},
		{"4000", true},
		{"4506", false},
		{"0", false},
		{"", false},
		{"12a", false},
		{"-5", false},
		{"１２", false},
	}

	for _, tt := range tests {
		got := KeepUnitRange([]*domain.UnitRecord{rec(nov5, tt.label, 0, 0)}, DefaultMaxUnitNumber)
		if (len(got) == 1) != tt.keep {
			t.Errorf("KeepUnitRange(%q): expected keep=%v, got %d records", tt.label, tt.keep, len(got))
		}
	}
}

func TestKeepUnitRange_FillsUnitNumberOnCopy(t *testing.T) {
	orig := rec(nov5, "0123", 0, 0)

	got := KeepUnitRange([]*domain.UnitRecord{orig}, DefaultMaxUnitNumber)
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}
	if got[0].UnitNumber == nil || *got[0].UnitNumber != 123 {
		t.Errorf("Expected unit number 123, got %v", got[0].UnitNumber)
	}
	if orig.UnitNumber != nil {
		t.Error("Input record must not be modified")
	}
}

func TestDedupByDateUnit_FirstWins(t *testing.T) {
	records := KeepUnitRange([]*domain.UnitRecord{
		rec(nov5, "123", 100, 0),
		rec(nov5, "123", 999, 0),
		rec(nov4, "123", 200, 0),
	}, DefaultMaxUnitNumber)

	got := DedupByDateUnit(records)
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].PayoutDiff != 100 {
		t.Errorf("Expected first occurrence to win, got diff %d", got[0].PayoutDiff)
	}
}

func TestClean_Funnel(t *testing.T) {
	records := []*domain.UnitRecord{
		rec(nov5, "123", 0, 0),
		rec(nov5, "123", 0, 0),
		rec(nov5, "4506", 0, 0),
		rec(nov5, "合計", 0, 0),
	}

	got, fn := Clean(records, Filter{})
	want := Funnel{Input: 4, AfterSubstring: 4, AfterSummary: 3, AfterRange: 2, AfterDedup: 1}
	if fn != want {
		t.Errorf("Expected funnel %+v, got %+v", want, fn)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 record, got %d", len(got))
	}
}
