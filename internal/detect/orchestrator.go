package detect

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/utils"
)

// FrameProvider hands out the latest frame per camera.
type FrameProvider interface {
	Frame(key string) *alpr.Frame
}

// Enhancer applies the pre-recognition image transform.
type Enhancer interface {
	Enhance(frame *alpr.Frame) *alpr.Frame
}

// PassthroughEnhancer leaves frames untouched.
type PassthroughEnhancer struct{}

func (PassthroughEnhancer) Enhance(frame *alpr.Frame) *alpr.Frame { return frame }

// Authorizer answers whether a plate may pass. Any error is treated as a
// denial downstream.
type Authorizer interface {
	Authorized(ctx context.Context, plate string) (bool, error)
}

// EventSink persists an accepted detection and returns its identity.
type EventSink interface {
	RecordDetection(ctx context.Context, event alpr.DetectionEvent) (string, error)
}

// SnapshotSaver stores a detection image and returns its relative path.
type SnapshotSaver interface {
	Save(frame *alpr.Frame, cameraKey, plate string, ts time.Time) (string, error)
}

// Commander issues barrier commands onto the command channel.
type Commander interface {
	SendCommand(barrierID, action string) error
}

// Assignment binds a monitored camera to its barrier and event direction.
type Assignment struct {
	CameraKey string
	BarrierID string
	EventType alpr.EventType
}

// Config carries the orchestrator's tunables.
type Config struct {
	Interval        time.Duration
	Cooldown        time.Duration
	ConfidenceFloor float64
	TopN            int
	SaveImages      bool
}

// Stats is a snapshot of the orchestrator's counters.
type Stats struct {
	EntryDetections uint64 `json:"entry_detections"`
	ExitDetections  uint64 `json:"exit_detections"`
	FramesProcessed uint64 `json:"frames_processed"`
	Errors          uint64 `json:"errors"`
}

// Orchestrator pulls frames, runs recognition, deduplicates per (camera,
// plate), and turns accepted detections into barrier commands and events.
type Orchestrator struct {
	cfg       Config
	frames    FrameProvider
	enhancer  Enhancer
	engine    Engine
	auth      Authorizer
	sink      EventSink
	snapshots SnapshotSaver
	commander Commander
	log       zerolog.Logger

	entryDetections atomic.Uint64
	exitDetections  atomic.Uint64
	framesProcessed atomic.Uint64
	errors          atomic.Uint64
}

func NewOrchestrator(
	cfg Config,
	frames FrameProvider,
	enhancer Enhancer,
	engine Engine,
	auth Authorizer,
	sink EventSink,
	snapshots SnapshotSaver,
	commander Commander,
	log zerolog.Logger,
) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	if enhancer == nil {
		enhancer = PassthroughEnhancer{}
	}
	return &Orchestrator{
		cfg:       cfg,
		frames:    frames,
		enhancer:  enhancer,
		engine:    engine,
		auth:      auth,
		sink:      sink,
		snapshots: snapshots,
		commander: commander,
		log:       log,
	}
}

// Run processes the assigned camera on the configured interval until the
// context is canceled. Each camera gets its own Run goroutine; cooldown
// state is owned by that goroutine and never shared across cameras.
func (o *Orchestrator) Run(ctx context.Context, cam Assignment) {
	log := o.log.With().Str("camera", cam.CameraKey).Logger()
	log.Info().Str("event_type", string(cam.EventType)).Msg("camera processing started")

	cooldown := make(map[string]time.Time)
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("camera processing stopped")
			return
		case <-ticker.C:
			o.processCycle(ctx, cam, cooldown, log)
		}
	}
}

func (o *Orchestrator) processCycle(ctx context.Context, cam Assignment, cooldown map[string]time.Time, log zerolog.Logger) {
	frame := o.frames.Frame(cam.CameraKey)
	if frame == nil {
		return
	}

	enhanced := o.enhancer.Enhance(frame)

	start := time.Now()
	results, err := o.engine.Recognize(ctx, enhanced, o.cfg.TopN, o.cfg.ConfidenceFloor)
	if err != nil {
		// Recognition errors are non-fatal; the frame is not retried.
		o.errors.Add(1)
		log.Error().Err(err).Msg("recognition failed")
		return
	}
	processingTime := time.Since(start)
	o.framesProcessed.Add(1)

	for _, result := range results {
		o.handleDetection(ctx, cam, frame, result, processingTime, cooldown, log)
	}
}

func (o *Orchestrator) handleDetection(
	ctx context.Context,
	cam Assignment,
	frame *alpr.Frame,
	result alpr.DetectionResult,
	processingTime time.Duration,
	cooldown map[string]time.Time,
	log zerolog.Logger,
) {
	plate := utils.NormalizePlate(result.Plate)
	if plate == "" {
		return
	}

	now := time.Now()
	if last, seen := cooldown[plate]; seen && now.Sub(last) < o.cfg.Cooldown {
		return
	}
	cooldown[plate] = now

	log.Info().
		Str("plate", plate).
		Float64("confidence", result.Confidence).
		Msg("plate detected")

	var imagePath string
	if o.cfg.SaveImages && o.snapshots != nil {
		path, err := o.snapshots.Save(frame, cam.CameraKey, plate, now)
		if err != nil {
			log.Error().Err(err).Str("plate", plate).Msg("failed to save snapshot")
		} else {
			imagePath = path
		}
	}

	authorized, err := o.auth.Authorized(ctx, plate)
	if err != nil {
		// Conservative: an unreachable lookup denies.
		log.Error().Err(err).Str("plate", plate).Msg("authorization lookup failed, denying")
		authorized = false
	}

	action := alpr.ActionDenied
	if authorized {
		if err := o.commander.SendCommand(cam.BarrierID, "open"); err != nil {
			o.errors.Add(1)
			log.Error().Err(err).Str("barrier", cam.BarrierID).Msg("failed to send barrier command")
			action = alpr.ActionError
		} else {
			action = alpr.ActionOpened
		}
	}

	event := alpr.DetectionEvent{
		PlateNumber:      plate,
		EventType:        cam.EventType,
		CameraID:         cam.CameraKey,
		ConfidenceScore:  result.Confidence,
		ImagePath:        imagePath,
		BarrierAction:    action,
		ProcessingTimeMs: int(processingTime.Milliseconds()),
		Candidates:       result.Candidates,
		Timestamp:        now,
	}
	if _, err := o.sink.RecordDetection(ctx, event); err != nil {
		// Log and drop; retrying risks duplicate actuation.
		o.errors.Add(1)
		log.Error().Err(err).Str("plate", plate).Msg("failed to record detection event")
	}

	switch cam.EventType {
	case alpr.EventEntry:
		o.entryDetections.Add(1)
	case alpr.EventExit:
		o.exitDetections.Add(1)
	}
}

// Stats returns a snapshot of the orchestrator's counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		EntryDetections: o.entryDetections.Load(),
		ExitDetections:  o.exitDetections.Load(),
		FramesProcessed: o.framesProcessed.Load(),
		Errors:          o.errors.Load(),
	}
}
