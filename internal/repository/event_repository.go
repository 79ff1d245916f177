package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

type Vehicle struct {
	ID           string `gorm:"primaryKey"`
	PlateNumber  string `gorm:"not null;uniqueIndex"`
	OwnerName    string `gorm:"not null"`
	OwnerContact *string
	VehicleType  string `gorm:"not null"`
	VehicleMake  *string
	VehicleModel *string
	VehicleColor *string
	Status       string `gorm:"not null"`
	Notes        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Event struct {
	ID               string `gorm:"primaryKey"`
	VehicleID        *string
	PlateNumber      string    `gorm:"not null"`
	EventType        string    `gorm:"not null"`
	Timestamp        time.Time `gorm:"not null"`
	CameraID         string    `gorm:"not null"`
	ConfidenceScore  float64   `gorm:"not null"`
	ImagePath        *string
	BarrierAction    string `gorm:"not null"`
	ProcessingTimeMs *int
	Candidates       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time
}

type ParkingSession struct {
	ID              string `gorm:"primaryKey"`
	VehicleID       string `gorm:"not null"`
	EntryEventID    string `gorm:"not null"`
	ExitEventID     *string
	EntryTime       time.Time `gorm:"not null"`
	ExitTime        *time.Time
	DurationMinutes *int
	Status          string `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GetVehicleByPlate returns the registered vehicle for a normalized plate,
// or gorm.ErrRecordNotFound.
func (r *EventRepository) GetVehicleByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	var vehicle Vehicle
	err := r.db.WithContext(ctx).Where("plate_number = ?", plate).First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// CreateEvent persists a detection event and returns its identity. The
// vehicle link is resolved from the plate when one is registered.
func (r *EventRepository) CreateEvent(ctx context.Context, event *alpr.DetectionEvent, vehicleID *string) (string, error) {
	dbEvent := Event{
		ID:            uuid.NewString(),
		VehicleID:     vehicleID,
		PlateNumber:   event.PlateNumber,
		EventType:     string(event.EventType),
		Timestamp:     event.Timestamp,
		CameraID:      event.CameraID,
		BarrierAction: string(event.BarrierAction),
		CreatedAt:     time.Now(),
	}
	dbEvent.ConfidenceScore = event.ConfidenceScore

	if event.ImagePath != "" {
		dbEvent.ImagePath = &event.ImagePath
	}
	if event.ProcessingTimeMs != 0 {
		ms := event.ProcessingTimeMs
		dbEvent.ProcessingTimeMs = &ms
	}
	if len(event.Candidates) > 0 {
		if raw, err := json.Marshal(event.Candidates); err == nil {
			dbEvent.Candidates = datatypes.JSON(raw)
		}
	}

	if err := r.db.WithContext(ctx).Create(&dbEvent).Error; err != nil {
		return "", err
	}
	return dbEvent.ID, nil
}

type EventFilter struct {
	Plate         *string
	CameraID      *string
	EventType     *string
	BarrierAction *string
	From          *time.Time
	To            *time.Time
}

func (r *EventRepository) FindEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, error) {
	query := r.db.WithContext(ctx).Model(&Event{})

	if filter.Plate != nil {
		query = query.Where("plate_number = ?", *filter.Plate)
	}
	if filter.CameraID != nil {
		query = query.Where("camera_id = ?", *filter.CameraID)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.BarrierAction != nil {
		query = query.Where("barrier_action = ?", *filter.BarrierAction)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp <= ?", *filter.To)
	}

	query = query.Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []Event
	err := query.Find(&events).Error
	return events, err
}

// startOfDay is midnight in t's location, not the UTC day boundary.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TodayStats counts today's events broken down by type and outcome.
func (r *EventRepository) TodayStats(ctx context.Context) (total, entries, exits, denied int64, err error) {
	dayStart := startOfDay(time.Now())
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Event{}).Where("timestamp >= ?", dayStart)
	}

	if err = base().Count(&total).Error; err != nil {
		return
	}
	if err = base().Where("event_type = ?", string(alpr.EventEntry)).Count(&entries).Error; err != nil {
		return
	}
	if err = base().Where("event_type = ?", string(alpr.EventExit)).Count(&exits).Error; err != nil {
		return
	}
	err = base().Where("barrier_action = ?", string(alpr.ActionDenied)).Count(&denied).Error
	return
}
