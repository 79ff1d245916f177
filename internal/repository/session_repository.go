package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// SessionRepository implements the session tracker's Store against
// postgres.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, vehicleID, entryEventID string, entryTime time.Time) error {
	now := time.Now()
	session := ParkingSession{
		ID:           uuid.NewString(),
		VehicleID:    vehicleID,
		EntryEventID: entryEventID,
		EntryTime:    entryTime,
		Status:       alpr.SessionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return r.db.WithContext(ctx).Create(&session).Error
}

// ActiveForVehicle returns the vehicle's most recent active session, or nil.
func (r *SessionRepository) ActiveForVehicle(ctx context.Context, vehicleID string) (*alpr.ParkingSession, error) {
	var session ParkingSession
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status = ?", vehicleID, alpr.SessionActive).
		Order("entry_time DESC").
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomainSession(&session), nil
}

func (r *SessionRepository) CompleteSession(ctx context.Context, sessionID, exitEventID string, exitTime time.Time, durationMinutes int) error {
	return r.db.WithContext(ctx).
		Model(&ParkingSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"exit_event_id":    exitEventID,
			"exit_time":        exitTime,
			"duration_minutes": durationMinutes,
			"status":           alpr.SessionCompleted,
			"updated_at":       time.Now(),
		}).Error
}

// ActiveSessions lists all active sessions, newest entry first.
func (r *SessionRepository) ActiveSessions(ctx context.Context) ([]alpr.ParkingSession, error) {
	var sessions []ParkingSession
	err := r.db.WithContext(ctx).
		Where("status = ?", alpr.SessionActive).
		Order("entry_time DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return toDomainSessions(sessions), nil
}

// SessionHistory lists completed sessions, newest entry first.
func (r *SessionRepository) SessionHistory(ctx context.Context, vehicleID *string, from, to *time.Time, limit int) ([]alpr.ParkingSession, error) {
	query := r.db.WithContext(ctx).Where("status = ?", alpr.SessionCompleted)
	if vehicleID != nil {
		query = query.Where("vehicle_id = ?", *vehicleID)
	}
	if from != nil {
		query = query.Where("entry_time >= ?", *from)
	}
	if to != nil {
		query = query.Where("exit_time <= ?", *to)
	}
	if limit <= 0 {
		limit = 50
	}

	var sessions []ParkingSession
	err := query.Order("entry_time DESC").Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return toDomainSessions(sessions), nil
}

func toDomainSession(s *ParkingSession) *alpr.ParkingSession {
	return &alpr.ParkingSession{
		ID:              s.ID,
		VehicleID:       s.VehicleID,
		EntryEventID:    s.EntryEventID,
		ExitEventID:     s.ExitEventID,
		EntryTime:       s.EntryTime,
		ExitTime:        s.ExitTime,
		DurationMinutes: s.DurationMinutes,
		Status:          s.Status,
	}
}

func toDomainSessions(sessions []ParkingSession) []alpr.ParkingSession {
	out := make([]alpr.ParkingSession, 0, len(sessions))
	for i := range sessions {
		out = append(out, *toDomainSession(&sessions[i]))
	}
	return out
}
