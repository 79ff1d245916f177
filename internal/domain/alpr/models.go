package alpr

import (
	"time"
)

// EventType classifies a detection by the direction of travel it represents.
type EventType string

const (
	EventEntry EventType = "entry"
	EventExit  EventType = "exit"
)

// BarrierAction records what happened to the barrier as part of an event.
type BarrierAction string

const (
	ActionOpened BarrierAction = "opened"
	ActionDenied BarrierAction = "denied"
	ActionManual BarrierAction = "manual"
	ActionError  BarrierAction = "error"
)

// BarrierState is the live state of a physical barrier arm.
type BarrierState string

const (
	StateClosed  BarrierState = "closed"
	StateOpening BarrierState = "opening"
	StateOpen    BarrierState = "open"
	StateClosing BarrierState = "closing"
	StateError   BarrierState = "error"
	StateUnknown BarrierState = "unknown"
)

// Frame is a single captured image. Data is always a private copy for the
// holder; the capture loop never hands out its own buffer.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// CameraHealth is a point-in-time snapshot of a capture loop's counters.
type CameraHealth struct {
	Name                string    `json:"name"`
	Device              string    `json:"device"`
	FramesCaptured      uint64    `json:"frames_captured"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
	LastFrameTime       time.Time `json:"last_frame_time"`
	Alive               bool      `json:"alive"`
	Width               int       `json:"width"`
	Height              int       `json:"height"`
	FPS                 int       `json:"fps"`
}

// Candidate is one alternative reading of a plate from the recognizer.
type Candidate struct {
	Plate      string  `json:"plate"`
	Confidence float64 `json:"confidence"`
}

// Coordinate is a corner of the detected plate's bounding polygon.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DetectionResult is one recognized plate from a single recognition call.
type DetectionResult struct {
	Plate       string        `json:"plate"`
	Confidence  float64       `json:"confidence"`
	Coordinates []Coordinate  `json:"coordinates,omitempty"`
	Candidates  []Candidate   `json:"candidates,omitempty"`
	Latency     time.Duration `json:"-"`
}

// DetectionEvent is the durable record emitted for each accepted detection.
type DetectionEvent struct {
	PlateNumber      string        `json:"plate_number"`
	EventType        EventType     `json:"event_type"`
	CameraID         string        `json:"camera_id"`
	ConfidenceScore  float64       `json:"confidence_score"`
	ImagePath        string        `json:"image_path,omitempty"`
	BarrierAction    BarrierAction `json:"barrier_action"`
	ProcessingTimeMs int           `json:"processing_time_ms"`
	Candidates       []Candidate   `json:"candidates,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}

// BarrierCommand is the transient message consumed from the command topic.
type BarrierCommand struct {
	BarrierID string    `json:"barrier_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// BarrierStats is the per-barrier status document published after each
// command and folded into the periodic stats report.
type BarrierStats struct {
	Name              string       `json:"name"`
	State             BarrierState `json:"state"`
	OperationCount    uint64       `json:"operation_count"`
	ErrorCount        uint64       `json:"error_count"`
	LastOperationTime time.Time    `json:"last_operation_time"`
	IsOperational     bool         `json:"is_operational"`
}

// ParkingSession links an entry event to its eventual exit event.
type ParkingSession struct {
	ID              string     `json:"id"`
	VehicleID       string     `json:"vehicle_id"`
	EntryEventID    string     `json:"entry_event_id"`
	ExitEventID     *string    `json:"exit_event_id,omitempty"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Status          string     `json:"status"`
}

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)
