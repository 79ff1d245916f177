package camera

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Registry owns a named collection of camera streams. A camera only exists
// in the registry while its stream started successfully; a failed Start
// never registers.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	streams map[string]*Stream
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:     log,
		streams: make(map[string]*Stream),
	}
}

// Add builds, starts, and registers a stream for the descriptor.
func (r *Registry) Add(desc Descriptor, factory DeviceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[desc.Key]; exists {
		return fmt.Errorf("%w: camera %q", alpr.ErrDuplicateKey, desc.Key)
	}

	stream := NewStream(desc, factory, r.log)
	if err := stream.Start(); err != nil {
		return err
	}
	r.streams[desc.Key] = stream
	return nil
}

// Frame returns a copy of the latest frame from the named camera, or nil if
// the camera is unknown or has not captured yet.
func (r *Registry) Frame(key string) *alpr.Frame {
	r.mu.RLock()
	stream := r.streams[key]
	r.mu.RUnlock()
	if stream == nil {
		return nil
	}
	return stream.Read()
}

// Remove stops and unregisters the named camera.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	stream := r.streams[key]
	delete(r.streams, key)
	r.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

// HealthReport returns health snapshots keyed by camera.
func (r *Registry) HealthReport() map[string]alpr.CameraHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report := make(map[string]alpr.CameraHealth, len(r.streams))
	for key, stream := range r.streams {
		report[key] = stream.Health()
	}
	return report
}

// AllAlive reports whether every registered camera captured recently.
func (r *Registry) AllAlive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stream := range r.streams {
		if !stream.Alive() {
			return false
		}
	}
	return true
}

// StopAll stops every camera and clears the registry.
func (r *Registry) StopAll() {
	r.mu.Lock()
	streams := r.streams
	r.streams = make(map[string]*Stream)
	r.mu.Unlock()
	for _, stream := range streams {
		stream.Stop()
	}
}
