package barrier

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

// Relay drives the physical actuator. On energizes (arm up), Off
// de-energizes (arm down, the fail-safe position).
type Relay interface {
	On() error
	Off() error
}

// Sensor reports whether something blocks the barrier's travel path.
type Sensor interface {
	Obstructed() (bool, error)
}

// StateObserver receives every barrier state transition.
type StateObserver interface {
	BarrierStateChanged(name string, from, to alpr.BarrierState)
}

// Descriptor holds a barrier's immutable identity and operating parameters.
type Descriptor struct {
	Key          string
	Name         string
	OpenDuration time.Duration
	Timeout      time.Duration
	SafetyCheck  bool
	Settle       time.Duration
}

// Actuator owns one physical barrier. At most one operation goroutine is in
// flight at a time; state transitions are totally ordered per barrier.
type Actuator struct {
	desc   Descriptor
	relay  Relay
	sensor Sensor
	log    zerolog.Logger

	// opMu serializes operation starts (Open, Reset, Cleanup) so the
	// check-stop-launch sequence is atomic: without it two concurrent
	// opens could both pass the state check and actuate the relay twice.
	opMu sync.Mutex

	mu       sync.Mutex
	state    alpr.BarrierState
	observer StateObserver
	stopCh   chan struct{} // signals early end of the open countdown
	opDone   chan struct{} // closed when the in-flight operation finishes
	opCount  uint64
	errCount uint64
	lastOp   time.Time
}

// NewActuator forces the relay to the de-energized position and starts in
// Closed, or in Error if the relay cannot be driven.
func NewActuator(desc Descriptor, relay Relay, sensor Sensor, log zerolog.Logger) *Actuator {
	if desc.OpenDuration <= 0 {
		desc.OpenDuration = 5 * time.Second
	}
	if desc.Timeout <= 0 {
		desc.Timeout = 10 * time.Second
	}
	if desc.Settle <= 0 {
		desc.Settle = 2 * time.Second
	}

	a := &Actuator{
		desc:   desc,
		relay:  relay,
		sensor: sensor,
		log:    log.With().Str("barrier", desc.Key).Logger(),
		state:  alpr.StateUnknown,
	}

	if err := relay.Off(); err != nil {
		a.log.Error().Err(err).Msg("relay initialization failed")
		a.state = alpr.StateError
		a.errCount++
		return a
	}
	a.state = alpr.StateClosed
	a.log.Info().Msg("barrier initialized")
	return a
}

// SetObserver registers the single transition observer.
func (a *Actuator) SetObserver(obs StateObserver) {
	a.mu.Lock()
	a.observer = obs
	a.mu.Unlock()
}

// Open raises the barrier, holds it for duration (the descriptor default
// when duration <= 0), then closes it. Already Opening/Open is a successful
// no-op. Error state rejects until Reset.
func (a *Actuator) Open(duration time.Duration) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	switch a.state {
	case alpr.StateOpening, alpr.StateOpen:
		a.mu.Unlock()
		a.log.Warn().Msg("already open or opening")
		return nil
	case alpr.StateError:
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", alpr.ErrBarrierError, a.desc.Key)
	}
	a.mu.Unlock()

	if a.desc.SafetyCheck && a.sensor != nil {
		obstructed, err := a.sensor.Obstructed()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", alpr.ErrSafetyCheck, a.desc.Key, err)
		}
		if obstructed {
			a.log.Warn().Msg("obstruction detected, open aborted")
			return fmt.Errorf("%w: %s: obstruction detected", alpr.ErrSafetyCheck, a.desc.Key)
		}
	}

	// Fully stop any in-flight operation before actuating again.
	a.stopOperation()

	a.mu.Lock()
	if a.state == alpr.StateError {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", alpr.ErrBarrierError, a.desc.Key)
	}
	if duration <= 0 {
		duration = a.desc.OpenDuration
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})
	a.stopCh = stopCh
	a.opDone = done
	a.lastOp = time.Now()
	a.mu.Unlock()

	// Transition before releasing opMu so a concurrent Open observes
	// Opening and no-ops instead of queueing a second actuation.
	a.setState(alpr.StateOpening)

	go a.openOperation(duration, stopCh, done)
	return nil
}

func (a *Actuator) openOperation(duration time.Duration, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if err := a.relay.On(); err != nil {
		a.emergencyStop(err)
		return
	}

	// Mechanical travel; not preemptible mid-phase.
	time.Sleep(a.desc.Settle)
	a.setState(alpr.StateOpen)

	a.mu.Lock()
	a.opCount++
	a.mu.Unlock()

	a.log.Info().Dur("open_duration", duration).Msg("barrier open")

	// Countdown resolves on timeout or on an early close signal.
	select {
	case <-time.After(duration):
	case <-stopCh:
		a.log.Info().Msg("early close requested")
	}

	a.closeSequence()
}

func (a *Actuator) closeSequence() {
	a.setState(alpr.StateClosing)
	if err := a.relay.Off(); err != nil {
		a.emergencyStop(err)
		return
	}
	time.Sleep(a.desc.Settle)
	a.setState(alpr.StateClosed)
	a.log.Info().Msg("barrier closed")
}

// Close signals the open countdown to finish early. Already Closed is a
// successful no-op, as is Close with no open in flight; Error rejects.
func (a *Actuator) Close() error {
	a.mu.Lock()
	switch a.state {
	case alpr.StateClosed:
		a.mu.Unlock()
		a.log.Warn().Msg("already closed")
		return nil
	case alpr.StateError:
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", alpr.ErrBarrierError, a.desc.Key)
	}
	a.signalStopLocked()
	a.mu.Unlock()
	return nil
}

// Reset recovers from Error: forces the fail-safe position and returns to
// Closed. Only valid from Error.
func (a *Actuator) Reset() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.state != alpr.StateError {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: reset only valid from error state, barrier %s is %s",
			alpr.ErrInvalidInput, a.desc.Key, state)
	}
	a.mu.Unlock()

	a.stopOperation()
	if err := a.relay.Off(); err != nil {
		return fmt.Errorf("reset %s: %w", a.desc.Key, err)
	}
	a.setState(alpr.StateClosed)
	a.log.Info().Msg("barrier reset to closed")
	return nil
}

// emergencyStop latches the Error state and drives the actuator to the
// de-energized position. Error is terminal until Reset.
func (a *Actuator) emergencyStop(cause error) {
	a.log.Error().Err(cause).Msg("EMERGENCY STOP")
	a.mu.Lock()
	a.errCount++
	a.mu.Unlock()
	a.setState(alpr.StateError)
	if err := a.relay.Off(); err != nil {
		a.log.Error().Err(err).Msg("failed to force fail-safe position")
	}
}

// signalStopLocked closes the countdown channel at most once. Caller holds mu.
func (a *Actuator) signalStopLocked() {
	if a.stopCh == nil {
		return
	}
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

// stopOperation signals the in-flight operation and waits for it to finish.
func (a *Actuator) stopOperation() {
	a.mu.Lock()
	a.signalStopLocked()
	done := a.opDone
	timeout := a.desc.Timeout
	a.mu.Unlock()

	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		a.log.Error().Msg("in-flight operation did not finish within timeout")
	}
}

func (a *Actuator) setState(next alpr.BarrierState) {
	a.mu.Lock()
	prev := a.state
	a.state = next
	obs := a.observer
	a.mu.Unlock()

	if prev == next {
		return
	}
	a.log.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("state changed")
	if obs != nil {
		obs.BarrierStateChanged(a.desc.Key, prev, next)
	}
}

// State returns the current barrier state.
func (a *Actuator) State() alpr.BarrierState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsOperational reports whether the barrier can accept commands.
func (a *Actuator) IsOperational() bool {
	return a.State() != alpr.StateError
}

// Stats returns a snapshot of the barrier's counters.
func (a *Actuator) Stats() alpr.BarrierStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return alpr.BarrierStats{
		Name:              a.desc.Name,
		State:             a.state,
		OperationCount:    a.opCount,
		ErrorCount:        a.errCount,
		LastOperationTime: a.lastOp,
		IsOperational:     a.state != alpr.StateError,
	}
}

// Cleanup stops any in-flight operation and forces the fail-safe position.
func (a *Actuator) Cleanup() {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.stopOperation()
	if err := a.relay.Off(); err != nil {
		a.log.Error().Err(err).Msg("cleanup: relay off failed")
	}
	a.log.Info().Msg("barrier cleanup complete")
}
