package normalization

import (
	"fmt"
	"testing"

	"hall-data-lab/internal/domain"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in          string
		defaultYear int
		want        domain.CalendarDate
		ok          bool
	}{
		{"3/14", 2026, domain.MustDate(2026, 3, 14), true},
		{"2024/11/1", 2026, domain.MustDate(2024, 11, 1), true},
		{"2024/11/05(火)", 2026, domain.MustDate(2024, 11, 5), true},
		{"11/5（火）", 2024, domain.MustDate(2024, 11, 5), true},
		{"11/5 (Tue)", 2024, domain.MustDate(2024, 11, 5), true},
		{"2024年11月5日", 2026, domain.MustDate(2024, 11, 5), true},
		{"11月5日", 2024, domain.MustDate(2024, 11, 5), true},
		{"2024-11-05", 2026, domain.MustDate(2024, 11, 5), true},
		{"2024.11.05", 2026, domain.MustDate(2024, 11, 5), true},
		{"２０２４／１１／５", 2026, domain.MustDate(2024, 11, 5), true},
		{"24/11/5", 2026, domain.MustDate(2024, 11, 5), true},
		{"2/29", 2024, domain.MustDate(2024, 2, 29), true},
		{"2/29", 2023, domain.CalendarDate{}, false},
		{"13/99", 2026, domain.CalendarDate{}, false},
		{"", 2026, domain.CalendarDate{}, false},
		{"abc", 2026, domain.CalendarDate{}, false},
		{"11/", 2026, domain.CalendarDate{}, false},
		{"1/2/3/4", 2026, domain.CalendarDate{}, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.in, tt.defaultYear), func(t *testing.T) {
			got, ok := NormalizeDate(tt.in, tt.defaultYear)
			if ok != tt.ok {
				t.Fatalf("NormalizeDate(%q): expected ok=%v, got %v", tt.in, tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeDate(%q): expected %s, got %s", tt.in, tt.want, got)
			}
		})
	}
}

func TestNormalizeRows(t *testing.T) {
	date := domain.MustDate(2024, 11, 5)
	rows := []domain.RawRow{
		{Name: " Model X ", UnitLabelText: " 101 ", DiffText: "+3,070", GamesText: "5,200"},
		{Name: "Model X", UnitLabelText: "102", DiffText: "▲1,200", GamesText: "3,100"},
	}

	records := NormalizeRows("hall-a", date, rows, 42)

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].PayoutDiff != 3070 || records[0].PlayCount != 5200 {
		t.Errorf("Record 0: expected (3070, 5200), got (%d, %d)", records[0].PayoutDiff, records[0].PlayCount)
	}
	if records[1].PayoutDiff != -1200 || records[1].PlayCount != 3100 {
		t.Errorf("Record 1: expected (-1200, 3100), got (%d, %d)", records[1].PayoutDiff, records[1].PlayCount)
	}
	if records[0].ModelName != "Model X" || records[0].UnitLabel != "101" {
		t.Errorf("Expected trimmed text fields, got %q / %q", records[0].ModelName, records[0].UnitLabel)
	}
	if records[1].RowIndex != 1 || records[1].CreatedAt != 42 {
		t.Errorf("Record 1: expected RowIndex 1, CreatedAt 42, got %d, %d", records[1].RowIndex, records[1].CreatedAt)
	}
	if records[0].RecordID == records[1].RecordID {
		t.Error("Expected distinct record IDs")
	}

	again := NormalizeRows("hall-a", date, rows, 99)
	if again[0].RecordID != records[0].RecordID {
		t.Error("Record ID must not depend on creation time")
	}
}
