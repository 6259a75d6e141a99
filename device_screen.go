package main

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/vova616/screenshot"
)

// screenDevice captures a region of the desktop. Trigger grabs the region,
// Materialize copies the grabbed pixels into the slot.
type screenDevice struct {
	mu      sync.Mutex
	screen  image.Rectangle
	region  image.Rectangle
	rate    float64
	latched *image.RGBA
}

func openScreenDevice(id int) (Device, error) {
	if id != 0 {
		return nil, fmt.Errorf("screen %d: only the default screen (0) is supported", id)
	}
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, err
	}
	if rect.Empty() {
		return nil, errors.New("screen has no area")
	}
	return &screenDevice{screen: rect, region: rect}, nil
}

// Configure selects the top-left height x width region of the screen. A
// screen has no native frame rate, so the requested rate is reported back
// unchanged.
func (d *screenDevice) Configure(height, width int, rate float64) error {
	region := image.Rect(0, 0, width, height).Add(d.screen.Min).Intersect(d.screen)
	if region.Empty() {
		return &DeviceError{Op: "configure", Err: fmt.Errorf("region %dx%d outside screen %v", width, height, d.screen)}
	}
	d.mu.Lock()
	d.region = region
	d.rate = rate
	d.mu.Unlock()
	return nil
}

func (d *screenDevice) Trigger() error {
	d.mu.Lock()
	region := d.region
	d.mu.Unlock()
	img, err := screenshot.CaptureRect(region)
	if err != nil {
		return &DeviceError{Op: "trigger", Err: err}
	}
	d.mu.Lock()
	d.latched = img
	d.mu.Unlock()
	return nil
}

func (d *screenDevice) Materialize(slot *Frame) error {
	d.mu.Lock()
	img := d.latched
	d.mu.Unlock()
	if img == nil {
		return &DeviceError{Op: "materialize", Err: errors.New("no frame latched")}
	}
	dst := slot.Image
	if len(dst.Pix) == len(img.Pix) && dst.Stride == img.Stride {
		copy(dst.Pix, img.Pix)
		return nil
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}

func (d *screenDevice) ActualRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

func (d *screenDevice) Bounds() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return image.Rect(0, 0, d.region.Dx(), d.region.Dy())
}

func (d *screenDevice) Close() error {
	d.mu.Lock()
	d.latched = nil
	d.mu.Unlock()
	return nil
}
