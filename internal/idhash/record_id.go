package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"hall-data-lab/internal/domain"
)

// ComputeRecordID computes a deterministic record_id using SHA256.
// Formula: SHA256(venue|YYYY-MM-DD|row_index|unit_label)
// Returns the base58-encoded hash. Re-fetching the same page yields the same IDs,
// which keeps record appends idempotent.
func ComputeRecordID(
	venue string,
	date domain.CalendarDate,
	rowIndex int,
	unitLabel string,
) string {
	data := fmt.Sprintf("%s|%s|%d|%s",
		venue,
		date.ISO(),
		rowIndex,
		unitLabel,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
