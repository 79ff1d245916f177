package session

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// memStore keeps sessions in memory with the same matching semantics as the
// repository: most recent active session first.
type memStore struct {
	sessions []*alpr.ParkingSession
}

func (m *memStore) CreateSession(_ context.Context, vehicleID, entryEventID string, entryTime time.Time) error {
	m.sessions = append(m.sessions, &alpr.ParkingSession{
		ID:           uuid.NewString(),
		VehicleID:    vehicleID,
		EntryEventID: entryEventID,
		EntryTime:    entryTime,
		Status:       alpr.SessionActive,
	})
	return nil
}

func (m *memStore) ActiveForVehicle(_ context.Context, vehicleID string) (*alpr.ParkingSession, error) {
	var active []*alpr.ParkingSession
	for _, s := range m.sessions {
		if s.VehicleID == vehicleID && s.Status == alpr.SessionActive {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].EntryTime.After(active[j].EntryTime) })
	return active[0], nil
}

func (m *memStore) CompleteSession(_ context.Context, sessionID, exitEventID string, exitTime time.Time, durationMinutes int) error {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Status = alpr.SessionCompleted
			s.ExitEventID = &exitEventID
			s.ExitTime = &exitTime
			s.DurationMinutes = &durationMinutes
		}
	}
	return nil
}

func (m *memStore) activeCount(vehicleID string) int {
	n := 0
	for _, s := range m.sessions {
		if s.VehicleID == vehicleID && s.Status == alpr.SessionActive {
			n++
		}
	}
	return n
}

func TestEntryOpensSession(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store, zerolog.Nop())

	if err := tr.RecordEntry(context.Background(), "veh-1", "ev-1", time.Now()); err != nil {
		t.Fatalf("RecordEntry failed: %v", err)
	}
	if store.activeCount("veh-1") != 1 {
		t.Errorf("active sessions = %d, want 1", store.activeCount("veh-1"))
	}
}

// A second entry while a session is active must not create a duplicate
// active session.
func TestDuplicateEntryKeepsExistingSession(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store, zerolog.Nop())
	ctx := context.Background()

	first := time.Now().Add(-time.Hour)
	if err := tr.RecordEntry(ctx, "veh-1", "ev-1", first); err != nil {
		t.Fatalf("RecordEntry failed: %v", err)
	}
	if err := tr.RecordEntry(ctx, "veh-1", "ev-2", time.Now()); err != nil {
		t.Fatalf("second RecordEntry failed: %v", err)
	}

	if store.activeCount("veh-1") != 1 {
		t.Fatalf("active sessions = %d, want 1", store.activeCount("veh-1"))
	}
	if store.sessions[0].EntryEventID != "ev-1" {
		t.Error("existing session was replaced by the duplicate entry")
	}
}

func TestExitCompletesMostRecentActiveSession(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store, zerolog.Nop())
	ctx := context.Background()

	entry := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(95 * time.Minute)

	if err := tr.RecordEntry(ctx, "veh-1", "ev-1", entry); err != nil {
		t.Fatalf("RecordEntry failed: %v", err)
	}
	if err := tr.RecordExit(ctx, "veh-1", "ev-2", exit); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}

	s := store.sessions[0]
	if s.Status != alpr.SessionCompleted {
		t.Fatalf("session status = %s, want completed", s.Status)
	}
	if s.DurationMinutes == nil || *s.DurationMinutes != 95 {
		t.Errorf("duration = %v, want 95 whole minutes", s.DurationMinutes)
	}
	if s.ExitEventID == nil || *s.ExitEventID != "ev-2" {
		t.Errorf("exit event = %v, want ev-2", s.ExitEventID)
	}
}

func TestUnmatchedExitCreatesNothing(t *testing.T) {
	store := &memStore{}
	tr := NewTracker(store, zerolog.Nop())

	if err := tr.RecordExit(context.Background(), "ghost", "ev-9", time.Now()); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}
	if len(store.sessions) != 0 {
		t.Errorf("sessions = %d after unmatched exit, want 0", len(store.sessions))
	}
}
