package main

import "time"

// noWait is the wait time recorded for a frame when the scheduler did not
// sleep before it.
const noWait = -1

// Clock is a monotonic time source with an arbitrary origin.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// monotonicClock reads the runtime's monotonic clock.
type monotonicClock struct {
	origin time.Time
}

// NewMonotonicClock returns a Clock whose origin is the moment of the call.
func NewMonotonicClock() Clock {
	return monotonicClock{origin: time.Now()}
}

func (c monotonicClock) Now() time.Duration    { return time.Since(c.origin) }
func (c monotonicClock) Sleep(d time.Duration) { time.Sleep(d) }

// Spinner performs the final, precise part of a wait. It must not return
// before clock reaches until.
type Spinner interface {
	SpinUntil(clock Clock, until time.Duration)
}

// busySpinner polls the clock without yielding the processor.
type busySpinner struct{}

func (busySpinner) SpinUntil(clock Clock, until time.Duration) {
	for clock.Now() < until {
	}
}

// Scheduler paces frame triggers against an ideal, evenly spaced timeline.
//
// Each wait is split in two phases: an OS sleep that ends RoughMargin before
// the deadline, then a busy spin that ends FineMargin before it. Deadlines are
// always i*Interval from the session origin, so a late frame does not move
// the deadlines of the frames after it.
type Scheduler struct {
	Interval    time.Duration // Ideal time between two frames
	RoughMargin time.Duration // Stop sleeping this long before the deadline
	FineMargin  time.Duration // Stop spinning this long before the deadline

	clock   Clock
	spinner Spinner
}

// NewScheduler creates a Scheduler driven by clock. A nil spinner selects the
// busy-poll spinner.
func NewScheduler(clock Clock, interval, rough, fine time.Duration, spinner Spinner) *Scheduler {
	if spinner == nil {
		spinner = busySpinner{}
	}
	return &Scheduler{
		Interval:    interval,
		RoughMargin: rough,
		FineMargin:  fine,
		clock:       clock,
		spinner:     spinner,
	}
}

// Deadline returns the ideal trigger time of 1-based frame i relative to the
// session origin.
func (s *Scheduler) Deadline(i int) time.Duration {
	return time.Duration(i) * s.Interval
}

// Wait blocks until frame i (1-based) is due, measured from origin t0.
// It returns the coarse sleep in whole milliseconds, or -1 when the
// scheduler did not sleep.
func (s *Scheduler) Wait(i int, t0 time.Duration) int {
	elapsed := s.clock.Now() - t0
	deadline := s.Deadline(i)

	waitMs := noWait
	if elapsed < deadline-s.RoughMargin {
		ms := int((deadline - elapsed - s.RoughMargin) / time.Millisecond)
		if ms > 0 {
			s.clock.Sleep(time.Duration(ms) * time.Millisecond)
			waitMs = ms
		}
	}

	s.spinner.SpinUntil(s.clock, t0+deadline-s.FineMargin)
	return waitMs
}
