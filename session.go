package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionParams fixes the timing of a capture session.
type SessionParams struct {
	Frames      int           // frames to capture
	Rate        float64       // target frames per second
	RoughMargin time.Duration // sleep ends this long before each deadline
	FineMargin  time.Duration // spin ends this long before each deadline
	Capacity    int           // ring slots available for hand-off
	Warmup      int           // discarded frames before timing starts
}

// NumFrames is the frame count of a recording of seconds at rate.
func NumFrames(rate float64, seconds int) int {
	return int(rate * float64(seconds))
}

// Interval returns the ideal time between frames.
func (p SessionParams) Interval() time.Duration {
	return time.Duration(float64(time.Second) / p.Rate)
}

// UsesDrain reports whether the session needs a concurrent drain loop, i.e.
// whether the ring cannot hold every frame of the session.
func (p SessionParams) UsesDrain() bool {
	return p.Frames > p.Capacity
}

// Validate rejects parameters a session cannot run with.
func (p SessionParams) Validate() error {
	switch {
	case p.Rate <= 0 || math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0):
		return &ParamError{Name: "target frame rate", Reason: fmt.Sprintf("%v fps must be positive", p.Rate)}
	case p.Frames <= 0:
		return &ParamError{Name: "frame count", Reason: fmt.Sprintf("%d frames must be positive", p.Frames)}
	case p.Capacity < 2:
		return &ParamError{Name: "buffer capacity", Reason: fmt.Sprintf("%d slots, need at least 2", p.Capacity)}
	case p.RoughMargin < 0:
		return &ParamError{Name: "rough margin", Reason: "must not be negative"}
	case p.FineMargin < 0:
		return &ParamError{Name: "fine margin", Reason: "must not be negative"}
	case p.FineMargin > p.RoughMargin:
		return &ParamError{Name: "fine margin", Reason: fmt.Sprintf("%v exceeds rough margin %v", p.FineMargin, p.RoughMargin)}
	case p.Warmup < 0:
		return &ParamError{Name: "warm-up frames", Reason: "must not be negative"}
	}
	return nil
}

// Session is one paced capture run. Fields other than Params, Device and
// Store are optional.
type Session struct {
	ID      uuid.UUID
	Params  SessionParams
	Device  Device
	Store   FrameStore
	Clock   Clock
	Spinner Spinner
	Log     *zap.Logger
	Metrics *Metrics

	Progress io.Writer // receives progress dots during bulk export
	CPU      int       // pin the capture thread to this CPU, -1 for none
	Nice     int       // capture thread priority adjustment, 0 for none
}

// NewSession returns a session with a fresh ID and default collaborators.
func NewSession(p SessionParams, dev Device, store FrameStore, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &Session{
		ID:      id,
		Params:  p,
		Device:  dev,
		Store:   store,
		Clock:   NewMonotonicClock(),
		Log:     log.With(zap.String("session", id.String())),
		Metrics: NewMetrics("", id.String()),
		CPU:     -1,
	}
}

// Result is the outcome of a completed session.
type Result struct {
	Stamps    []Stamp
	Report    *Report
	Persisted int
	Drained   bool // a concurrent drain loop was used
	Final     RingState
	Elapsed   time.Duration // capture phase, warm-up included
}

// Run captures the session. It returns once every frame is persisted, or
// with the first error that ended it. After an error no result is returned
// and frames already persisted may be incomplete.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	p := s.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Device == nil || s.Store == nil {
		return nil, errors.New("session needs a device and a frame store")
	}
	if s.Clock == nil {
		s.Clock = NewMonotonicClock()
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics("", s.ID.String())
	}

	useDrain := p.UsesDrain()
	slots := p.Capacity
	if !useDrain {
		// The whole session stays in memory; add the slot that separates
		// full from empty.
		slots = p.Frames + 1
	}
	bounds := s.Device.Bounds()
	ring, err := NewRing(slots, p.Frames, func() *Frame { return NewFrame(bounds) })
	if err != nil {
		return nil, err
	}
	scratch := NewFrame(bounds)

	interval := p.Interval()
	sched := NewScheduler(s.Clock, interval, p.RoughMargin, p.FineMargin, s.Spinner)
	loop := newCaptureLoop(s.Device, ring, sched, s.Clock, p.Frames, p.Warmup, s.Metrics)
	sink := &drainer{
		ring:     ring,
		store:    s.Store,
		clock:    s.Clock,
		interval: interval,
		metrics:  s.Metrics,
		log:      s.Log,
		progress: s.Progress,
	}

	s.Log.Info("capture started",
		zap.Int("frames", p.Frames),
		zap.Duration("interval", interval),
		zap.Int("slots", slots),
		zap.Bool("drain_loop", useDrain),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := s.Clock.Now()
	var (
		stamps     []Stamp
		captureErr error
		drainErr   error
	)
	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		pinCaptureThread(s.CPU, s.Nice, s.Log)
		stamps, captureErr = loop.run(ctx, scratch)
		if captureErr != nil {
			cancel()
		}
	}()

	if useDrain {
		drainDone := make(chan struct{})
		go func() {
			defer close(drainDone)
			if drainErr = sink.run(ctx); drainErr != nil {
				cancel()
			}
		}()
		<-drainDone
	}
	<-captureDone
	elapsed := s.Clock.Now() - start

	if err := firstCause(captureErr, drainErr); err != nil {
		s.Log.Error("capture aborted", zap.Stringer("state", loop.State()), zap.Int("captured", len(stamps)), zap.Error(err))
		return nil, err
	}
	s.Log.Info("frame grabbing done", zap.Duration("elapsed", elapsed))

	if !useDrain {
		s.Log.Info("saving all frames", zap.Int("frames", p.Frames))
		if err := sink.flush(); err != nil {
			return nil, err
		}
	}

	report := Analyze(stamps, interval)
	s.Metrics.ObserveReport(report)
	return &Result{
		Stamps:    stamps,
		Report:    report,
		Persisted: sink.next,
		Drained:   useDrain,
		Final:     ring.State(),
		Elapsed:   elapsed,
	}, nil
}

// firstCause picks the error that ended the session. A cancellation caused
// by the other goroutine's failure is reported only when nothing else is.
func firstCause(errs ...error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	return fallback
}
