package barrier

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Registry owns named actuators and dispatches commands to them. An
// actuator that failed initialization is never registered.
type Registry struct {
	log zerolog.Logger

	mu       sync.RWMutex
	barriers map[string]*Actuator
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:      log,
		barriers: make(map[string]*Actuator),
	}
}

// Add registers an operational actuator under its descriptor key.
func (r *Registry) Add(key string, a *Actuator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.barriers[key]; exists {
		return fmt.Errorf("%w: barrier %q", alpr.ErrDuplicateKey, key)
	}
	if !a.IsOperational() {
		return fmt.Errorf("%w: %s failed initialization", alpr.ErrBarrierError, key)
	}
	r.barriers[key] = a
	r.log.Info().Str("barrier", key).Msg("barrier registered")
	return nil
}

func (r *Registry) get(key string) (*Actuator, error) {
	r.mu.RLock()
	a := r.barriers[key]
	r.mu.RUnlock()
	if a == nil {
		return nil, fmt.Errorf("%w: %q", alpr.ErrBarrierNotFound, key)
	}
	return a, nil
}

// Open opens the named barrier; duration <= 0 uses the barrier's default.
func (r *Registry) Open(key string, duration time.Duration) error {
	a, err := r.get(key)
	if err != nil {
		return err
	}
	return a.Open(duration)
}

// Close signals the named barrier's open countdown to finish early.
func (r *Registry) Close(key string) error {
	a, err := r.get(key)
	if err != nil {
		return err
	}
	return a.Close()
}

// Reset recovers the named barrier from its error state.
func (r *Registry) Reset(key string) error {
	a, err := r.get(key)
	if err != nil {
		return err
	}
	return a.Reset()
}

// Stats returns the status snapshot for one barrier.
func (r *Registry) Stats(key string) (alpr.BarrierStats, error) {
	a, err := r.get(key)
	if err != nil {
		return alpr.BarrierStats{}, err
	}
	return a.Stats(), nil
}

// AllStats returns status snapshots keyed by barrier.
func (r *Registry) AllStats() map[string]alpr.BarrierStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := make(map[string]alpr.BarrierStats, len(r.barriers))
	for key, a := range r.barriers {
		stats[key] = a.Stats()
	}
	return stats
}

// SetObserver registers the transition observer on every barrier.
func (r *Registry) SetObserver(obs StateObserver) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.barriers {
		a.SetObserver(obs)
	}
}

// CleanupAll stops all in-flight operations, forces fail-safe positions,
// and clears the registry.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	barriers := r.barriers
	r.barriers = make(map[string]*Actuator)
	r.mu.Unlock()
	for _, a := range barriers {
		a.Cleanup()
	}
}
