package camera

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeDevice scripts grab outcomes and counts lifecycle calls.
type fakeDevice struct {
	mu        sync.Mutex
	openErr   error
	grabs     int
	failFrom  int // grab index (1-based) from which grabs fail; 0 = never
	failUntil int // last failing grab index; 0 = fail forever once failing
	opens     int
	closes    int
}

func (d *fakeDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	return d.openErr
}

func (d *fakeDevice) Grab() ([]byte, int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabs++
	if d.failFrom > 0 && d.grabs >= d.failFrom && (d.failUntil == 0 || d.grabs <= d.failUntil) {
		return nil, 0, 0, fmt.Errorf("grab %d failed", d.grabs)
	}
	return []byte{byte(d.grabs)}, 2, 2, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDevice) counts() (opens, closes, grabs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes, d.grabs
}

func testStream(dev Device) *Stream {
	s := NewStream(Descriptor{Key: "entry", Name: "Entry Camera", Device: "fake0", Width: 2, Height: 2, FPS: 30},
		func(string, int, int, int) Device { return dev }, zerolog.Nop())
	s.SetReconnectPause(time.Millisecond)
	return s
}

func TestStartFailsWithoutRegisteringLoop(t *testing.T) {
	dev := &fakeDevice{openErr: fmt.Errorf("no such device")}
	s := testStream(dev)
	if err := s.Start(); err == nil {
		t.Fatal("Start() succeeded with a dead device")
	}
	// No background loop: no grabs ever happen.
	time.Sleep(20 * time.Millisecond)
	if _, _, grabs := dev.counts(); grabs != 0 {
		t.Errorf("grabs = %d after failed Start, want 0", grabs)
	}
}

func TestStartFailsOnInitialReadFailure(t *testing.T) {
	dev := &fakeDevice{failFrom: 1}
	s := testStream(dev)
	if err := s.Start(); err == nil {
		t.Fatal("Start() succeeded with a device that cannot read")
	}
	if _, closes, _ := dev.counts(); closes != 1 {
		t.Errorf("device not released after failed initial read: closes = %d", closes)
	}
}

func TestReadReturnsCopy(t *testing.T) {
	dev := &fakeDevice{}
	s := testStream(dev)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	a := s.Read()
	if a == nil {
		t.Fatal("Read() returned nil after synchronous validation grab")
	}
	a.Data[0] = 0xFF
	b := s.Read()
	if b.Data[0] == 0xFF {
		t.Error("Read() exposes a shared buffer: mutation through one copy visible in another")
	}
}

// Eleven consecutive failed reads must trigger exactly one reconnect, and
// the failure counter must reset regardless of the reconnect outcome.
func TestReconnectAfterFailureStreak(t *testing.T) {
	// Grab 1 is the synchronous validation read; grabs 2..12 fail (11
	// consecutive loop failures), then the device recovers.
	dev := &fakeDevice{failFrom: 2, failUntil: 12}
	s := testStream(dev)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h := s.Health(); h.FramesCaptured > 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	opens, closes, _ := dev.counts()
	// One open at Start plus exactly one reopen in reconnect.
	if opens != 2 {
		t.Errorf("opens = %d, want 2 (initial + one reconnect)", opens)
	}
	if closes < 1 {
		t.Errorf("closes = %d, want >= 1 (device released before reconnect)", closes)
	}

	h := s.Health()
	if h.FramesCaptured < 2 {
		t.Errorf("capture did not resume after reconnect: frames = %d", h.FramesCaptured)
	}
	if h.ConsecutiveFailures != 0 {
		t.Errorf("failure counter = %d after recovery, want 0", h.ConsecutiveFailures)
	}
}

func TestHealthSnapshot(t *testing.T) {
	dev := &fakeDevice{}
	s := testStream(dev)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer s.Stop()

	h := s.Health()
	if h.Name != "Entry Camera" || h.Device != "fake0" {
		t.Errorf("unexpected identity in health snapshot: %+v", h)
	}
	if !h.Alive {
		t.Error("camera not alive immediately after a successful capture")
	}
	if h.FramesCaptured == 0 {
		t.Error("frames_captured = 0 after validation grab")
	}
}
