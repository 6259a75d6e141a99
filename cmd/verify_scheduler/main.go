//go:build ignore

// verify_scheduler compares plain sleeping against sleep-then-spin pacing
// without a capture device.
//
// Usage: go run cmd/verify_scheduler/main.go
package main

import (
	"fmt"
	"math"
	"time"
)

// pacer mirrors the scheduler margins in scheduler.go
type pacer struct {
	interval time.Duration
	rough    time.Duration
	fine     time.Duration
	spin     bool
}

func (p pacer) wait(i int, t0 time.Time) {
	deadline := t0.Add(time.Duration(i) * p.interval)
	if !p.spin {
		time.Sleep(time.Until(deadline))
		return
	}
	if d := time.Until(deadline.Add(-p.rough)); d >= time.Millisecond {
		time.Sleep(d.Truncate(time.Millisecond))
	}
	for time.Now().Before(deadline.Add(-p.fine)) {
	}
}

func main() {
	fmt.Println("=== framepacer Scheduler Verification ===")
	fmt.Println()

	const frames = 150
	interval := time.Second / 30

	fmt.Println("1. Sleep only")
	sleepAvg := measure(pacer{interval: interval}, frames)
	fmt.Println()

	fmt.Println("2. Sleep, then spin (rough 20ms, fine 50us)")
	spinAvg := measure(pacer{interval: interval, rough: 20 * time.Millisecond, fine: 50 * time.Microsecond, spin: true}, frames)
	fmt.Println()

	if spinAvg <= sleepAvg {
		fmt.Println("   ✓ PASS - spinning tightened the schedule")
	} else {
		fmt.Println("   ✗ FAIL - spinning did not help; check the margins with cmd/calibrate_sleep")
	}
}

// measure paces frames at p.interval and returns the average absolute
// deviation in milliseconds.
func measure(p pacer, frames int) float64 {
	t0 := time.Now()
	var sum, worst float64
	for i := 1; i <= frames; i++ {
		p.wait(i, t0)
		dev := float64(time.Since(t0)-time.Duration(i)*p.interval) / float64(time.Millisecond)
		sum += math.Abs(dev)
		worst = math.Max(worst, math.Abs(dev))
	}
	avg := sum / float64(frames)
	fmt.Printf("   Frames: %d at %v\n", frames, p.interval)
	fmt.Printf("   Average |deviation|: %.3f ms, worst: %.3f ms\n", avg, worst)
	return avg
}
