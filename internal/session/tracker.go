package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Store is the persistence seam for parking sessions. ActiveForVehicle
// returns the most recent active session, or nil.
type Store interface {
	CreateSession(ctx context.Context, vehicleID, entryEventID string, entryTime time.Time) error
	ActiveForVehicle(ctx context.Context, vehicleID string) (*alpr.ParkingSession, error)
	CompleteSession(ctx context.Context, sessionID, exitEventID string, exitTime time.Time, durationMinutes int) error
}

// Tracker applies the session lifecycle rules: one active session per
// vehicle, most-recent-first exit matching, duration in whole minutes.
type Tracker struct {
	store Store
	log   zerolog.Logger
}

func NewTracker(store Store, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// RecordEntry opens a session for an authorized entry. If the vehicle
// already has an active session the entry is logged as a conflict and the
// existing session is left untouched, preserving the single-active-session
// invariant.
func (t *Tracker) RecordEntry(ctx context.Context, vehicleID, eventID string, entryTime time.Time) error {
	active, err := t.store.ActiveForVehicle(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("lookup active session: %w", err)
	}
	if active != nil {
		t.log.Warn().
			Str("vehicle_id", vehicleID).
			Str("session_id", active.ID).
			Msg("entry for vehicle with an active session, keeping existing session")
		return nil
	}

	if err := t.store.CreateSession(ctx, vehicleID, eventID, entryTime); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	t.log.Info().Str("vehicle_id", vehicleID).Msg("parking session opened")
	return nil
}

// RecordExit closes the vehicle's most recent active session. An exit with
// no matching active session is still a valid event; it just produces no
// session change.
func (t *Tracker) RecordExit(ctx context.Context, vehicleID, eventID string, exitTime time.Time) error {
	active, err := t.store.ActiveForVehicle(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("lookup active session: %w", err)
	}
	if active == nil {
		t.log.Warn().Str("vehicle_id", vehicleID).Msg("exit without an active session")
		return nil
	}

	duration := int(exitTime.Sub(active.EntryTime).Minutes())
	if err := t.store.CompleteSession(ctx, active.ID, eventID, exitTime, duration); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	t.log.Info().
		Str("vehicle_id", vehicleID).
		Str("session_id", active.ID).
		Int("duration_minutes", duration).
		Msg("parking session completed")
	return nil
}
