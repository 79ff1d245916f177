package repository

import (
	"testing"
	"time"
)

// The daily stats window starts at local midnight, not UTC midnight.
func TestStartOfDayUsesLocalBoundary(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2026, 8, 29, 1, 30, 0, 0, loc)

	got := startOfDay(at)
	want := time.Date(2026, 8, 29, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("startOfDay(%v) = %v, want %v", at, got, want)
	}

	// Truncating in UTC lands on the previous local day for this zone, so
	// the two boundaries must differ.
	if at.Truncate(24 * time.Hour).Equal(got) {
		t.Error("UTC truncation coincides with the local boundary, zone choice proves nothing")
	}
}
