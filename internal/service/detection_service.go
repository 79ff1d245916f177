package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/repository"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/session"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/utils"
)

// DetectionService is the persistence side of the pipeline: it answers
// authorization lookups, records detection events, and applies the parking
// session rules for authorized passages.
type DetectionService struct {
	events   *repository.EventRepository
	sessions *repository.SessionRepository
	tracker  *session.Tracker
	log      zerolog.Logger
}

func NewDetectionService(
	events *repository.EventRepository,
	sessions *repository.SessionRepository,
	tracker *session.Tracker,
	log zerolog.Logger,
) *DetectionService {
	return &DetectionService{
		events:   events,
		sessions: sessions,
		tracker:  tracker,
		log:      log,
	}
}

// Authorized reports whether the plate belongs to a registered vehicle in
// active status. Unknown plates are a plain denial, not an error.
func (s *DetectionService) Authorized(ctx context.Context, plate string) (bool, error) {
	vehicle, err := s.events.GetVehicleByPlate(ctx, plate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vehicle lookup: %w", err)
	}
	return vehicle.Status == "active", nil
}

// RecordDetection persists the event and, for an authorized passage of a
// registered vehicle, applies the session lifecycle rules. Session failures
// are logged but do not fail the event: the event is the durable record.
func (s *DetectionService) RecordDetection(ctx context.Context, event alpr.DetectionEvent) (string, error) {
	var vehicleID *string
	vehicle, err := s.events.GetVehicleByPlate(ctx, event.PlateNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Error().Err(err).Str("plate", event.PlateNumber).Msg("vehicle lookup failed")
	}
	if vehicle != nil {
		vehicleID = &vehicle.ID
	}

	eventID, err := s.events.CreateEvent(ctx, &event, vehicleID)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	s.log.Info().
		Str("event_id", eventID).
		Str("plate", event.PlateNumber).
		Str("camera_id", event.CameraID).
		Str("event_type", string(event.EventType)).
		Str("barrier_action", string(event.BarrierAction)).
		Msg("detection event recorded")

	if vehicle != nil && event.BarrierAction == alpr.ActionOpened {
		switch event.EventType {
		case alpr.EventEntry:
			if err := s.tracker.RecordEntry(ctx, vehicle.ID, eventID, event.Timestamp); err != nil {
				s.log.Error().Err(err).Str("vehicle_id", vehicle.ID).Msg("failed to open parking session")
			}
		case alpr.EventExit:
			if err := s.tracker.RecordExit(ctx, vehicle.ID, eventID, event.Timestamp); err != nil {
				s.log.Error().Err(err).Str("vehicle_id", vehicle.ID).Msg("failed to close parking session")
			}
		}
	}

	return eventID, nil
}

// EventInfo is the query DTO served over HTTP.
type EventInfo struct {
	ID               string    `json:"id"`
	VehicleID        *string   `json:"vehicle_id,omitempty"`
	PlateNumber      string    `json:"plate_number"`
	EventType        string    `json:"event_type"`
	Timestamp        time.Time `json:"timestamp"`
	CameraID         string    `json:"camera_id"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ImagePath        *string   `json:"image_path,omitempty"`
	BarrierAction    string    `json:"barrier_action"`
	ProcessingTimeMs *int      `json:"processing_time_ms,omitempty"`
}

func (s *DetectionService) FindEvents(ctx context.Context, plateQuery *string, from, to *string, limit, offset int) ([]EventInfo, error) {
	filter := repository.EventFilter{}

	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized != "" {
			filter.Plate = &normalized
		}
	}
	if from != nil && *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from time format", alpr.ErrInvalidInput)
		}
		filter.From = &t
	}
	if to != nil && *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to time format", alpr.ErrInvalidInput)
		}
		filter.To = &t
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.events.FindEvents(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}

	result := make([]EventInfo, 0, len(events))
	for _, e := range events {
		result = append(result, EventInfo{
			ID:               e.ID,
			VehicleID:        e.VehicleID,
			PlateNumber:      e.PlateNumber,
			EventType:        e.EventType,
			Timestamp:        e.Timestamp,
			CameraID:         e.CameraID,
			ConfidenceScore:  e.ConfidenceScore,
			ImagePath:        e.ImagePath,
			BarrierAction:    e.BarrierAction,
			ProcessingTimeMs: e.ProcessingTimeMs,
		})
	}
	return result, nil
}

func (s *DetectionService) ActiveSessions(ctx context.Context) ([]alpr.ParkingSession, error) {
	return s.sessions.ActiveSessions(ctx)
}

func (s *DetectionService) SessionHistory(ctx context.Context, vehicleID *string, from, to *time.Time, limit int) ([]alpr.ParkingSession, error) {
	return s.sessions.SessionHistory(ctx, vehicleID, from, to, limit)
}

// TodayStats summarizes today's traffic.
type TodayStats struct {
	Total       int64   `json:"total"`
	Entries     int64   `json:"entries"`
	Exits       int64   `json:"exits"`
	Denied      int64   `json:"denied"`
	SuccessRate float64 `json:"success_rate"`
}

func (s *DetectionService) StatsToday(ctx context.Context) (*TodayStats, error) {
	total, entries, exits, denied, err := s.events.TodayStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("today stats: %w", err)
	}
	stats := &TodayStats{Total: total, Entries: entries, Exits: exits, Denied: denied}
	if total > 0 {
		stats.SuccessRate = float64(total-denied) / float64(total) * 100
	}
	return stats, nil
}
