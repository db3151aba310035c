package idhash

import (
	"testing"

	"hall-data-lab/internal/domain"
)

func TestComputeRecordID(t *testing.T) {
	date := domain.MustDate(2024, 11, 5)

	tests := []struct {
		name      string
		venue     string
		rowIndex  int
		unitLabel string
	}{
		{name: "first row", venue: "hall-a", rowIndex: 0, unitLabel: "101"},
		{name: "later row", venue: "hall-a", rowIndex: 57, unitLabel: "1205"},
		{name: "empty label", venue: "hall-b", rowIndex: 3, unitLabel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRecordID(tt.venue, date, tt.rowIndex, tt.unitLabel)
			if got == "" {
				t.Fatal("ComputeRecordID() returned empty string")
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeRecordID(tt.venue, date, tt.rowIndex, tt.unitLabel)
			if got != got2 {
				t.Errorf("ComputeRecordID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeRecordID_DifferentInputs(t *testing.T) {
	date := domain.MustDate(2024, 11, 5)
	base := ComputeRecordID("hall-a", date, 0, "101")

	if base == ComputeRecordID("hall-b", date, 0, "101") {
		t.Error("Different venue should produce different hash")
	}
	if base == ComputeRecordID("hall-a", domain.MustDate(2024, 11, 6), 0, "101") {
		t.Error("Different date should produce different hash")
	}
	if base == ComputeRecordID("hall-a", date, 1, "101") {
		t.Error("Different row index should produce different hash")
	}
	if base == ComputeRecordID("hall-a", date, 0, "102") {
		t.Error("Different unit label should produce different hash")
	}
}
