package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

// Device names accepted by OpenDevice.
const (
	DeviceScreen    = "screen"
	DeviceSynthetic = "synthetic"
)

// Device is a frame source that separates latching a frame from copying it
// out, so that the latch can be timed precisely.
type Device interface {
	// Configure requests a frame size and rate. Devices may not honour it.
	Configure(height, width int, rate float64) error
	// Trigger latches a frame. It does not block on data transfer.
	Trigger() error
	// Materialize copies the most recently latched frame into slot.
	Materialize(slot *Frame) error
	// ActualRate is the frame rate the device will really deliver.
	ActualRate() float64
	// Bounds is the size of the frames Materialize produces.
	Bounds() image.Rectangle
	Close() error
}

// OpenDevice opens the named device kind. id selects the display or camera
// where the kind supports more than one.
func OpenDevice(kind string, id int) (Device, error) {
	var (
		dev Device
		err error
	)
	switch kind {
	case DeviceScreen:
		dev, err = openScreenDevice(id)
	case DeviceSynthetic:
		dev = NewSyntheticDevice(0)
	default:
		err = fmt.Errorf("unknown device kind: %s", kind)
	}
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}
	return dev, nil
}

// errDeviceClosed is returned by a synthetic device after Close.
var errDeviceClosed = errors.New("device closed")

// SyntheticDevice generates frames without hardware. Each frame carries the
// sequence number of its trigger in the first four bytes of its pixels, so a
// consumer can verify ordering.
type SyntheticDevice struct {
	mu       sync.Mutex
	bounds   image.Rectangle
	rate     float64
	latency  time.Duration // simulated transfer time of Materialize
	seq      uint32
	latched  uint32
	closed   bool
	failFrom uint32 // triggers numbered >= failFrom fail; 0 disables
}

// NewSyntheticDevice creates an 8x8 synthetic device whose Materialize takes
// latency.
func NewSyntheticDevice(latency time.Duration) *SyntheticDevice {
	return &SyntheticDevice{
		bounds:  image.Rect(0, 0, 8, 8),
		latency: latency,
	}
}

func (d *SyntheticDevice) Configure(height, width int, rate float64) error {
	if height <= 0 || width <= 0 {
		return &DeviceError{Op: "configure", Err: fmt.Errorf("frame size %dx%d", width, height)}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bounds = image.Rect(0, 0, width, height)
	d.rate = rate
	return nil
}

func (d *SyntheticDevice) Trigger() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &DeviceError{Op: "trigger", Err: errDeviceClosed}
	}
	d.seq++
	if d.failFrom > 0 && d.seq >= d.failFrom {
		return &DeviceError{Op: "trigger", Err: fmt.Errorf("frame %d: device unavailable", d.seq)}
	}
	d.latched = d.seq
	return nil
}

func (d *SyntheticDevice) Materialize(slot *Frame) error {
	d.mu.Lock()
	seq, closed := d.latched, d.closed
	d.mu.Unlock()
	if closed {
		return &DeviceError{Op: "materialize", Err: errDeviceClosed}
	}
	if d.latency > 0 {
		time.Sleep(d.latency)
	}
	pix := slot.Image.Pix
	for i := range pix {
		pix[i] = byte(int(seq) + i)
	}
	if len(pix) >= 4 {
		binary.BigEndian.PutUint32(pix, seq)
	}
	return nil
}

func (d *SyntheticDevice) ActualRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

func (d *SyntheticDevice) Bounds() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bounds
}

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// FrameSequence returns the trigger sequence number stamped into a frame by
// a SyntheticDevice.
func FrameSequence(f *Frame) uint32 {
	if len(f.Image.Pix) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(f.Image.Pix)
}
