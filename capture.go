package main

import (
	"context"
	"fmt"
	"sync/atomic"
)

// defaultWarmupFrames are captured and discarded before timing starts; the
// first frames of a device are slow and irregular.
const defaultWarmupFrames = 5

// CaptureState is the phase of a capture loop.
type CaptureState int32

const (
	StateIdle CaptureState = iota
	StateWarmingUp
	StateRunning
	StateDrained
)

func (s CaptureState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmingUp:
		return "warming-up"
	case StateRunning:
		return "running"
	case StateDrained:
		return "drained"
	}
	return fmt.Sprintf("CaptureState(%d)", int32(s))
}

// captureLoop is the producer: it paces triggers with the scheduler and moves
// every frame into the ring. It is the only caller of Ring.Reserve.
type captureLoop struct {
	dev     Device
	ring    *Ring
	sched   *Scheduler
	clock   Clock
	frames  int
	warmup  int
	metrics *Metrics

	state  atomic.Int32
	stamps []Stamp
}

func newCaptureLoop(dev Device, ring *Ring, sched *Scheduler, clock Clock, frames, warmup int, m *Metrics) *captureLoop {
	return &captureLoop{
		dev:     dev,
		ring:    ring,
		sched:   sched,
		clock:   clock,
		frames:  frames,
		warmup:  warmup,
		metrics: m,
		stamps:  make([]Stamp, 0, frames),
	}
}

// State returns the current phase. Safe to call from any goroutine.
func (c *captureLoop) State() CaptureState {
	return CaptureState(c.state.Load())
}

// run warms the device up into scratch, then captures every frame of the
// session. The returned stamps are in frame order. Device and buffer errors
// end the loop immediately; ctx is checked between frames.
func (c *captureLoop) run(ctx context.Context, scratch *Frame) ([]Stamp, error) {
	c.state.Store(int32(StateWarmingUp))
	for i := 0; i < c.warmup; i++ {
		if err := c.dev.Trigger(); err != nil {
			return nil, fmt.Errorf("warm-up frame %d: %w", i+1, err)
		}
		if err := c.dev.Materialize(scratch); err != nil {
			return nil, fmt.Errorf("warm-up frame %d: %w", i+1, err)
		}
	}

	c.state.Store(int32(StateRunning))
	t0 := c.clock.Now()
	for i := 1; i <= c.frames; i++ {
		if err := ctx.Err(); err != nil {
			return c.stamps, err
		}

		wait := c.sched.Wait(i, t0)
		grab := c.clock.Now() - t0
		if err := c.dev.Trigger(); err != nil {
			return c.stamps, fmt.Errorf("frame %d: %w", i, err)
		}

		_, slot, err := c.ring.Reserve()
		if err != nil {
			return c.stamps, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := c.dev.Materialize(slot); err != nil {
			return c.stamps, fmt.Errorf("frame %d: %w", i, err)
		}
		c.metrics.Pending.Inc()
		c.ring.Commit()
		retrieve := c.clock.Now() - t0

		c.stamps = append(c.stamps, Stamp{Grab: grab, Retrieve: retrieve, WaitMs: wait})
		c.metrics.FramesCaptured.Inc()
	}
	c.state.Store(int32(StateDrained))
	return c.stamps, nil
}
