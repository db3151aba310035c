package memory

import (
	"context"
	"errors"
	"testing"

	"hall-data-lab/internal/domain"
	"hall-data-lab/internal/storage"
)

func testRecord(id, venue string, date domain.CalendarDate, row int, diff int64) *domain.UnitRecord {
	return &domain.UnitRecord{
		RecordID:   id,
		Venue:      venue,
		Date:       date,
		RowIndex:   row,
		ModelName:  "Model X",
		UnitLabel:  "101",
		PayoutDiff: diff,
		PlayCount:  1000,
	}
}

func TestUnitRecordStore_AppendAndGet(t *testing.T) {
	store := NewUnitRecordStore()
	ctx := context.Background()
	d1 := domain.MustDate(2024, 11, 5)
	d2 := domain.MustDate(2024, 11, 4)

	records := []*domain.UnitRecord{
		testRecord("r2", "hall-a", d1, 1, -1200),
		testRecord("r1", "hall-a", d1, 0, 3070),
		testRecord("r3", "hall-a", d2, 0, 500),
		testRecord("r4", "hall-b", d1, 0, 10),
	}

	inserted, err := store.AppendBulk(ctx, records)
	if err != nil {
		t.Fatalf("AppendBulk failed: %v", err)
	}
	if inserted != 4 {
		t.Errorf("Expected 4 inserted, got %d", inserted)
	}

	result, err := store.GetByVenue(ctx, "hall-a")
	if err != nil {
		t.Fatalf("GetByVenue failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(result))
	}
	if result[0].RecordID != "r3" || result[1].RecordID != "r1" || result[2].RecordID != "r2" {
		t.Errorf("Unexpected order: %s, %s, %s", result[0].RecordID, result[1].RecordID, result[2].RecordID)
	}

	day, err := store.GetByVenueDate(ctx, "hall-a", d1)
	if err != nil {
		t.Fatalf("GetByVenueDate failed: %v", err)
	}
	if len(day) != 2 || day[0].PayoutDiff != 3070 || day[1].PayoutDiff != -1200 {
		t.Errorf("Unexpected day records: %+v", day)
	}
}

func TestUnitRecordStore_AppendIsIdempotent(t *testing.T) {
	store := NewUnitRecordStore()
	ctx := context.Background()
	d := domain.MustDate(2024, 11, 5)

	batch := []*domain.UnitRecord{
		testRecord("r1", "hall-a", d, 0, 3070),
		testRecord("r2", "hall-a", d, 1, -1200),
	}

	if _, err := store.AppendBulk(ctx, batch); err != nil {
		t.Fatalf("First AppendBulk failed: %v", err)
	}

	inserted, err := store.AppendBulk(ctx, batch)
	if err != nil {
		t.Fatalf("Second AppendBulk failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected 0 inserted on replay, got %d", inserted)
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 stored records, got %d", store.Len())
	}
}

func TestUnitRecordStore_InvalidInputLeavesStoreUntouched(t *testing.T) {
	store := NewUnitRecordStore()
	ctx := context.Background()
	d := domain.MustDate(2024, 11, 5)

	batch := []*domain.UnitRecord{
		testRecord("r1", "hall-a", d, 0, 1),
		testRecord("", "hall-a", d, 1, 2),
	}

	_, err := store.AppendBulk(ctx, batch)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d records", store.Len())
	}
}

func TestUnitRecordStore_ReturnsCopies(t *testing.T) {
	store := NewUnitRecordStore()
	ctx := context.Background()
	d := domain.MustDate(2024, 11, 5)

	if _, err := store.AppendBulk(ctx, []*domain.UnitRecord{testRecord("r1", "hall-a", d, 0, 100)}); err != nil {
		t.Fatalf("AppendBulk failed: %v", err)
	}

	got, _ := store.GetByVenue(ctx, "hall-a")
	got[0].PayoutDiff = 999

	again, _ := store.GetByVenue(ctx, "hall-a")
	if again[0].PayoutDiff != 100 {
		t.Errorf("Store mutated through returned record: %d", again[0].PayoutDiff)
	}
}
