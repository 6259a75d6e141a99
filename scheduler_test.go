package main

import (
	"sync"
	"testing"
	"time"
)

// fakeClock advances by tick on every read and by the requested duration
// plus oversleep on every Sleep.
type fakeClock struct {
	mu        sync.Mutex
	now       time.Duration
	tick      time.Duration
	oversleep time.Duration
	sleeps    []time.Duration
	reads     int
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.tick
	c.reads++
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now += d + c.oversleep
}

func (c *fakeClock) peek() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestSchedulerTwoPhaseWait(t *testing.T) {
	// 30 fps, 20ms rough margin, 50us fine margin
	clock := &fakeClock{tick: 10 * time.Microsecond}
	interval := time.Second / 30
	s := NewScheduler(clock, interval, 20*time.Millisecond, 50*time.Microsecond, nil)

	wait := s.Wait(1, 0)

	if wait != 13 {
		t.Errorf("coarse wait: got %dms, want 13ms", wait)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 13*time.Millisecond {
		t.Errorf("sleeps: got %v, want [13ms]", clock.sleeps)
	}

	returned := clock.peek()
	if diff := interval - returned; diff < 0 || diff > s.FineMargin {
		t.Errorf("returned at %v, want within %v before %v (diff %v)", returned, s.FineMargin, interval, diff)
	}
}

func TestSchedulerOversleepAbsorbedBySpin(t *testing.T) {
	// OS wakes 4ms late; the spin phase must still end just before the deadline
	clock := &fakeClock{tick: 5 * time.Microsecond, oversleep: 4 * time.Millisecond}
	interval := 50 * time.Millisecond
	s := NewScheduler(clock, interval, 10*time.Millisecond, 100*time.Microsecond, nil)

	s.Wait(1, 0)

	returned := clock.peek()
	if returned < interval-s.FineMargin || returned > interval {
		t.Errorf("returned at %v, want in [%v, %v]", returned, interval-s.FineMargin, interval)
	}
}

func TestSchedulerLateFrameReturnsImmediately(t *testing.T) {
	clock := &fakeClock{tick: time.Microsecond}
	clock.now = 500 * time.Millisecond // far past frame 2's deadline
	s := NewScheduler(clock, 100*time.Millisecond, 20*time.Millisecond, 50*time.Microsecond, nil)

	before := clock.peek()
	wait := s.Wait(2, 0)

	if wait != noWait {
		t.Errorf("wait: got %d, want %d", wait, noWait)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("late frame slept: %v", clock.sleeps)
	}
	// One read to compute elapsed, one read in the spin check
	if spent := clock.peek() - before; spent > 2*clock.tick {
		t.Errorf("late frame spent %v waiting", spent)
	}
}

func TestSchedulerWithinRoughMarginSpinsOnly(t *testing.T) {
	clock := &fakeClock{tick: 10 * time.Microsecond}
	clock.now = 95 * time.Millisecond // 5ms before the deadline, inside the 20ms margin
	s := NewScheduler(clock, 100*time.Millisecond, 20*time.Millisecond, 50*time.Microsecond, nil)

	wait := s.Wait(1, 0)

	if wait != noWait {
		t.Errorf("wait: got %d, want %d", wait, noWait)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("unexpected sleep: %v", clock.sleeps)
	}
	if now := clock.peek(); now < 100*time.Millisecond-s.FineMargin {
		t.Errorf("returned too early at %v", now)
	}
}

func TestSchedulerDeadlinesDoNotRebase(t *testing.T) {
	interval := 40 * time.Millisecond
	clock := &fakeClock{tick: 10 * time.Microsecond}
	s := NewScheduler(clock, interval, 10*time.Millisecond, 50*time.Microsecond, nil)

	t0 := clock.Now()
	s.Wait(1, t0)
	// Frame 1 overruns by 30ms
	clock.Sleep(30 * time.Millisecond)
	s.Wait(2, t0)

	returned := clock.peek() - t0
	want := 2 * interval
	if returned < want-s.FineMargin || returned > want {
		t.Errorf("frame 2 returned at %v, want just before %v", returned, want)
	}
}

func TestSchedulerDeadline(t *testing.T) {
	s := NewScheduler(&fakeClock{}, time.Second/15, 0, 0, nil)
	tests := []struct {
		i    int
		want time.Duration
	}{
		{1, time.Second / 15},
		{15, 15 * (time.Second / 15)},
		{45, 45 * (time.Second / 15)},
	}
	for _, tt := range tests {
		if got := s.Deadline(tt.i); got != tt.want {
			t.Errorf("Deadline(%d) = %v, want %v", tt.i, got, tt.want)
		}
	}
}

type countingSpinner struct {
	calls int
	until time.Duration
}

func (s *countingSpinner) SpinUntil(clock Clock, until time.Duration) {
	s.calls++
	s.until = until
}

func TestSchedulerCustomSpinner(t *testing.T) {
	clock := &fakeClock{tick: time.Microsecond}
	sp := &countingSpinner{}
	s := NewScheduler(clock, 10*time.Millisecond, 2*time.Millisecond, 100*time.Microsecond, sp)

	s.Wait(3, 5*time.Millisecond)

	if sp.calls != 1 {
		t.Fatalf("spinner calls: got %d, want 1", sp.calls)
	}
	want := 5*time.Millisecond + 30*time.Millisecond - 100*time.Microsecond
	if sp.until != want {
		t.Errorf("spin target: got %v, want %v", sp.until, want)
	}
}

func TestSchedulerRealClock(t *testing.T) {
	clock := NewMonotonicClock()
	interval := 20 * time.Millisecond
	s := NewScheduler(clock, interval, 5*time.Millisecond, 50*time.Microsecond, nil)

	t0 := clock.Now()
	for i := 1; i <= 5; i++ {
		s.Wait(i, t0)
		at := clock.Now() - t0
		ideal := s.Deadline(i)
		// Allow the fine margin early and scheduling noise late
		if at < ideal-s.FineMargin || at > ideal+5*time.Millisecond {
			t.Errorf("frame %d: at %v, ideal %v", i, at, ideal)
		}
	}
}
