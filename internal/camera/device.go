package camera

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Device is the seam to the capture driver. Open applies the descriptor's
// resolution and frame rate; Grab blocks on device I/O and returns raw
// image bytes.
type Device interface {
	Open() error
	Grab() (data []byte, width, height int, err error)
	Close() error
}

// DeviceFactory builds a device for the given identifier and target
// parameters. The capture loop calls it again on reconnect.
type DeviceFactory func(id string, width, height, fps int) Device

// SyntheticDevice generates gray frames at the configured size and rate.
// It stands in for real capture hardware in development and tests.
type SyntheticDevice struct {
	id     string
	width  int
	height int
	fps    int

	mu     sync.Mutex
	opened bool
}

func NewSyntheticDevice(id string, width, height, fps int) *SyntheticDevice {
	return &SyntheticDevice{id: id, width: width, height: height, fps: fps}
}

func (d *SyntheticDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.width <= 0 || d.height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", d.width, d.height)
	}
	d.opened = true
	return nil
}

func (d *SyntheticDevice) Grab() ([]byte, int, int, error) {
	d.mu.Lock()
	opened := d.opened
	d.mu.Unlock()
	if !opened {
		return nil, 0, 0, fmt.Errorf("device %s not open", d.id)
	}

	if d.fps > 0 {
		time.Sleep(time.Second / time.Duration(d.fps))
	}
	buf := make([]byte, d.width*d.height)
	shade := byte(rand.Intn(256))
	for i := range buf {
		buf[i] = shade
	}
	return buf, d.width, d.height, nil
}

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	d.opened = false
	d.mu.Unlock()
	return nil
}
