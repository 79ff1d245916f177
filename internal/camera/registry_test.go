package camera

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
)

func fakeFactory(dev Device) DeviceFactory {
	return func(string, int, int, int) Device { return dev }
}

func TestRegistryRejectsDuplicateKey(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.StopAll()

	desc := Descriptor{Key: "entry", Device: "fake0", Width: 2, Height: 2}
	if err := r.Add(desc, fakeFactory(&fakeDevice{})); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	err := r.Add(desc, fakeFactory(&fakeDevice{}))
	if !errors.Is(err, alpr.ErrDuplicateKey) {
		t.Errorf("second Add error = %v, want ErrDuplicateKey", err)
	}
}

func TestRegistryDoesNotRegisterFailedCamera(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.StopAll()

	dev := &fakeDevice{openErr: fmt.Errorf("unplugged")}
	err := r.Add(Descriptor{Key: "exit", Device: "fake1", Width: 2, Height: 2}, fakeFactory(dev))
	if !errors.Is(err, alpr.ErrCameraOpen) {
		t.Fatalf("Add error = %v, want ErrCameraOpen", err)
	}
	if frame := r.Frame("exit"); frame != nil {
		t.Error("failed camera still serves frames from the registry")
	}
	if len(r.HealthReport()) != 0 {
		t.Error("failed camera present in health report")
	}
}

func TestRegistryFrameAndHealth(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	defer r.StopAll()

	if err := r.Add(Descriptor{Key: "entry", Name: "Entry", Device: "fake0", Width: 2, Height: 2}, fakeFactory(&fakeDevice{})); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if frame := r.Frame("entry"); frame == nil {
		t.Error("no frame from a started camera")
	}
	if frame := r.Frame("missing"); frame != nil {
		t.Error("frame returned for unknown camera")
	}
	if !r.AllAlive() {
		t.Error("AllAlive() = false with one healthy camera")
	}

	r.Remove("entry")
	if frame := r.Frame("entry"); frame != nil {
		t.Error("removed camera still serves frames")
	}
}
