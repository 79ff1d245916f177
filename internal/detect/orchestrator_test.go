package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

type staticFrames struct{ frame *alpr.Frame }

func (s staticFrames) Frame(string) *alpr.Frame { return s.frame }

type scriptedEngine struct {
	results []alpr.DetectionResult
	err     error
	calls   int
}

func (e *scriptedEngine) Recognize(_ context.Context, _ *alpr.Frame, _ int, minConfidence float64) ([]alpr.DetectionResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([]alpr.DetectionResult, 0, len(e.results))
	for _, r := range e.results {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAuth struct {
	authorized bool
	err        error
}

func (a fakeAuth) Authorized(context.Context, string) (bool, error) { return a.authorized, a.err }

type recordingSink struct {
	mu     sync.Mutex
	events []alpr.DetectionEvent
	err    error
}

func (s *recordingSink) RecordDetection(_ context.Context, ev alpr.DetectionEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, ev)
	return fmt.Sprintf("event-%d", len(s.events)), nil
}

func (s *recordingSink) all() []alpr.DetectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alpr.DetectionEvent, len(s.events))
	copy(out, s.events)
	return out
}

type recordingCommander struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (c *recordingCommander) SendCommand(barrierID, action string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.commands = append(c.commands, barrierID+":"+action)
	return nil
}

func (c *recordingCommander) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

type pathSaver struct{}

func (pathSaver) Save(_ *alpr.Frame, cameraKey, plate string, ts time.Time) (string, error) {
	return fmt.Sprintf("%s/%s_%s_%s.jpg", ts.Format("2006/01/02"), cameraKey, plate, ts.Format("150405")), nil
}

func detection(plate string, confidence float64) alpr.DetectionResult {
	return alpr.DetectionResult{Plate: plate, Confidence: confidence}
}

func testOrchestrator(engine Engine, auth Authorizer, sink EventSink, cmd Commander) *Orchestrator {
	return NewOrchestrator(
		Config{Interval: 10 * time.Millisecond, Cooldown: 5 * time.Second, ConfidenceFloor: 80, TopN: 3, SaveImages: true},
		staticFrames{frame: &alpr.Frame{Data: []byte{1}, Width: 1, Height: 1, CapturedAt: time.Now()}},
		nil, engine, auth, sink, pathSaver{}, cmd, zerolog.Nop(),
	)
}

var entryCam = Assignment{CameraKey: "entry", BarrierID: "entry", EventType: alpr.EventEntry}

// An authorized detection produces one open command and one event with
// barrier_action=opened.
func TestAuthorizedDetectionOpensBarrier(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("abc123", 92)}}
	sink := &recordingSink{}
	cmd := &recordingCommander{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, cmd)

	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())

	commands := cmd.all()
	if len(commands) != 1 || commands[0] != "entry:open" {
		t.Fatalf("commands = %v, want [entry:open]", commands)
	}
	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.PlateNumber != "ABC123" {
		t.Errorf("plate = %q, want normalized ABC123", ev.PlateNumber)
	}
	if ev.BarrierAction != alpr.ActionOpened {
		t.Errorf("barrier_action = %s, want opened", ev.BarrierAction)
	}
	if ev.EventType != alpr.EventEntry || ev.CameraID != "entry" {
		t.Errorf("event identity wrong: %+v", ev)
	}
	if ev.ConfidenceScore != 92 {
		t.Errorf("confidence = %v, want 92", ev.ConfidenceScore)
	}
	if ev.ImagePath == "" {
		t.Error("image path missing with SaveImages enabled")
	}
	if s := o.Stats(); s.EntryDetections != 1 || s.FramesProcessed != 1 {
		t.Errorf("stats = %+v, want 1 entry detection / 1 frame", s)
	}
}

func TestUnauthorizedDetectionIsDenied(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("XYZ789", 95)}}
	sink := &recordingSink{}
	cmd := &recordingCommander{}
	o := testOrchestrator(engine, fakeAuth{authorized: false}, sink, cmd)

	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())

	if len(cmd.all()) != 0 {
		t.Error("barrier command sent for unauthorized plate")
	}
	events := sink.all()
	if len(events) != 1 || events[0].BarrierAction != alpr.ActionDenied {
		t.Fatalf("events = %+v, want one denied event", events)
	}
}

func TestAuthorizationErrorDenies(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("XYZ789", 95)}}
	sink := &recordingSink{}
	cmd := &recordingCommander{}
	o := testOrchestrator(engine, fakeAuth{err: errors.New("backend unreachable")}, sink, cmd)

	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())

	if len(cmd.all()) != 0 {
		t.Error("barrier opened despite authorization lookup failure")
	}
	if events := sink.all(); len(events) != 1 || events[0].BarrierAction != alpr.ActionDenied {
		t.Fatalf("events = %+v, want one denied event", events)
	}
}

// The same plate seen twice within the cooldown window from the same camera
// emits exactly one event.
func TestCooldownSuppressesRepeatDetection(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("ABC123", 92)}}
	sink := &recordingSink{}
	cmd := &recordingCommander{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, cmd)

	cooldown := map[string]time.Time{}
	o.processCycle(context.Background(), entryCam, cooldown, zerolog.Nop())
	// Second sighting 2 seconds later, inside the 5s window.
	cooldown["ABC123"] = time.Now().Add(-2 * time.Second)
	o.processCycle(context.Background(), entryCam, cooldown, zerolog.Nop())

	if events := sink.all(); len(events) != 1 {
		t.Fatalf("events = %d, want 1 (second sighting inside cooldown)", len(events))
	}
	if commands := cmd.all(); len(commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(commands))
	}
}

func TestCooldownExpiryAllowsRedetection(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("ABC123", 92)}}
	sink := &recordingSink{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, &recordingCommander{})

	cooldown := map[string]time.Time{"ABC123": time.Now().Add(-6 * time.Second)}
	o.processCycle(context.Background(), entryCam, cooldown, zerolog.Nop())

	if events := sink.all(); len(events) != 1 {
		t.Fatalf("events = %d, want 1 (cooldown expired)", len(events))
	}
}

// Independent cooldown maps per camera: the same plate on another camera is
// not suppressed.
func TestCooldownIsPerCamera(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("ABC123", 92)}}
	sink := &recordingSink{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, &recordingCommander{})

	exitCam := Assignment{CameraKey: "exit", BarrierID: "exit", EventType: alpr.EventExit}
	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())
	o.processCycle(context.Background(), exitCam, map[string]time.Time{}, zerolog.Nop())

	if events := sink.all(); len(events) != 2 {
		t.Fatalf("events = %d, want 2 (cooldown state is per camera)", len(events))
	}
}

func TestConfidenceFloorFiltersResults(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("LOW111", 42), detection("HIGH22", 90)}}
	sink := &recordingSink{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, &recordingCommander{})

	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())

	events := sink.all()
	if len(events) != 1 || events[0].PlateNumber != "HIGH22" {
		t.Fatalf("events = %+v, want only the high-confidence plate", events)
	}
}

func TestRecognitionErrorSkipsCycle(t *testing.T) {
	engine := &scriptedEngine{err: alpr.ErrRecognitionTimeout}
	sink := &recordingSink{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, &recordingCommander{})

	o.processCycle(context.Background(), entryCam, map[string]time.Time{}, zerolog.Nop())

	if len(sink.all()) != 0 {
		t.Error("events emitted despite recognition failure")
	}
	if s := o.Stats(); s.Errors != 1 || s.FramesProcessed != 0 {
		t.Errorf("stats = %+v, want 1 error / 0 frames processed", s)
	}
}

func TestEventSinkFailureIsDropped(t *testing.T) {
	engine := &scriptedEngine{results: []alpr.DetectionResult{detection("ABC123", 92)}}
	sink := &recordingSink{err: errors.New("persistence down")}
	cmd := &recordingCommander{}
	o := testOrchestrator(engine, fakeAuth{authorized: true}, sink, cmd)

	cooldown := map[string]time.Time{}
	o.processCycle(context.Background(), entryCam, cooldown, zerolog.Nop())
	o.processCycle(context.Background(), entryCam, cooldown, zerolog.Nop())

	// The barrier still opened once; the failed event is not retried on the
	// next cycle (cooldown already recorded the plate).
	if commands := cmd.all(); len(commands) != 1 {
		t.Errorf("commands = %d, want 1 (no duplicate actuation after sink failure)", len(commands))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	engine := &scriptedEngine{}
	o := testOrchestrator(engine, fakeAuth{}, &recordingSink{}, &recordingCommander{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, entryCam)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
