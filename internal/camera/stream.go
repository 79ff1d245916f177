package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

const (
	// reconnect is attempted after this many consecutive failed grabs.
	reconnectThreshold = 10
	// a camera counts as alive only if a frame arrived this recently.
	aliveWindow = 5 * time.Second
)

// Descriptor holds a camera's immutable identity and target parameters.
type Descriptor struct {
	Key    string
	Name   string
	Device string
	Width  int
	Height int
	FPS    int
}

// Stream owns one capture device and its background capture loop. The loop
// is the single writer of the latest-frame slot and the health counters;
// everything handed out is a copy.
type Stream struct {
	desc    Descriptor
	factory DeviceFactory
	log     zerolog.Logger

	reconnectPause time.Duration

	mu       sync.Mutex
	device   Device
	frame    *alpr.Frame
	frames   uint64
	failures uint64
	lastOK   time.Time

	stopCh  chan struct{}
	done    chan struct{}
	started bool
}

func NewStream(desc Descriptor, factory DeviceFactory, log zerolog.Logger) *Stream {
	return &Stream{
		desc:           desc,
		factory:        factory,
		log:            log.With().Str("camera", desc.Key).Logger(),
		reconnectPause: time.Second,
	}
}

// SetReconnectPause overrides the pause between releasing a failed device
// and reopening it.
func (s *Stream) SetReconnectPause(d time.Duration) { s.reconnectPause = d }

// Start opens the device and validates it with one synchronous grab before
// launching the capture loop. A failure here leaves no background activity.
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: camera %s already started", alpr.ErrInvalidInput, s.desc.Key)
	}

	dev := s.factory(s.desc.Device, s.desc.Width, s.desc.Height, s.desc.FPS)
	if err := dev.Open(); err != nil {
		return fmt.Errorf("%w: %s: %v", alpr.ErrCameraOpen, s.desc.Key, err)
	}

	data, w, h, err := dev.Grab()
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: %s: initial read: %v", alpr.ErrCameraOpen, s.desc.Key, err)
	}

	now := time.Now()
	s.device = dev
	s.frame = &alpr.Frame{Data: data, Width: w, Height: h, CapturedAt: now}
	s.frames = 1
	s.lastOK = now
	s.started = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.captureLoop(dev)

	s.log.Info().
		Str("device", s.desc.Device).
		Int("width", s.desc.Width).
		Int("height", s.desc.Height).
		Int("fps", s.desc.FPS).
		Msg("camera started")
	return nil
}

func (s *Stream) captureLoop(dev Device) {
	defer close(s.done)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		data, w, h, err := dev.Grab()
		if err != nil {
			s.mu.Lock()
			s.failures++
			failures := s.failures
			s.mu.Unlock()

			s.log.Warn().Uint64("consecutive_failures", failures).Msg("frame read failed")

			if failures >= reconnectThreshold {
				dev = s.reconnect(dev)
			}
			continue
		}

		s.mu.Lock()
		s.frame = &alpr.Frame{Data: data, Width: w, Height: h, CapturedAt: time.Now()}
		s.frames++
		s.failures = 0
		s.lastOK = s.frame.CapturedAt
		s.mu.Unlock()
	}
}

// reconnect releases the device, pauses, and reopens with the same
// parameters. The failure counter resets regardless of the outcome; a
// failed reopen is retried on the next failure streak.
func (s *Stream) reconnect(old Device) Device {
	s.log.Error().Msg("too many read failures, reconnecting")

	old.Close()

	select {
	case <-s.stopCh:
		return old
	case <-time.After(s.reconnectPause):
	}

	dev := s.factory(s.desc.Device, s.desc.Width, s.desc.Height, s.desc.FPS)
	err := dev.Open()

	s.mu.Lock()
	s.failures = 0
	if err == nil {
		s.device = dev
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("reconnect failed")
		return dev
	}
	s.log.Info().Msg("camera reconnected")
	return dev
}

// Read returns a deep copy of the most recent frame, or nil before the
// first successful capture. It never blocks on device I/O.
func (s *Stream) Read() *alpr.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame.Clone()
}

// Stop terminates the capture loop and releases the device.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	dev := s.device
	s.mu.Unlock()

	<-s.done
	if dev != nil {
		dev.Close()
	}
	s.log.Info().Msg("camera stopped")
}

// Health returns a consistent snapshot of the capture counters.
func (s *Stream) Health() alpr.CameraHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return alpr.CameraHealth{
		Name:                s.desc.Name,
		Device:              s.desc.Device,
		FramesCaptured:      s.frames,
		ConsecutiveFailures: s.failures,
		LastFrameTime:       s.lastOK,
		Alive:               s.aliveLocked(),
		Width:               s.desc.Width,
		Height:              s.desc.Height,
		FPS:                 s.desc.FPS,
	}
}

// Alive reports whether a frame was captured within the last 5 seconds.
// Pure function of health state; never a blocking check.
func (s *Stream) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked()
}

func (s *Stream) aliveLocked() bool {
	return s.started && time.Since(s.lastOK) < aliveWindow
}
