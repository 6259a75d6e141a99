// calibrate_sleep measures how late OS sleeps wake up and how finely the
// clock can be polled, then suggests scheduler margins.
// Usage: go run ./cmd/calibrate_sleep [iterations]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func main() {
	iterations := 200
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid iteration count %q\n", os.Args[1])
			os.Exit(1)
		}
		iterations = n
	}

	fmt.Printf("Sleep overshoot (%d sleeps per request):\n", iterations)
	var worst time.Duration
	for _, req := range []time.Duration{time.Millisecond, 5 * time.Millisecond, 15 * time.Millisecond} {
		min, max, avg := measureSleep(req, iterations)
		fmt.Printf("  %-5v | Min: %v | Max: %v | Avg: %v\n", req, min, max, avg)
		if max > worst {
			worst = max
		}
	}

	step := measureSpin(iterations * 1000)
	fmt.Printf("\nClock poll resolution: %v\n", step)

	// Sleep must end early enough to absorb the worst overshoot; the spin
	// must stop at least one poll step early.
	rough := (worst/time.Millisecond + 1) * time.Millisecond
	fine := max(step*2, 20*time.Microsecond)
	fmt.Printf("\nSuggested margins: --rough-margin %v --fine-margin %v\n", rough, fine)
}

// measureSleep reports the overshoot of sleeping for req.
func measureSleep(req time.Duration, n int) (min, max, avg time.Duration) {
	min = 100 * time.Second // Start high
	var sum time.Duration
	for i := 0; i < n; i++ {
		start := time.Now()
		time.Sleep(req)
		over := time.Since(start) - req
		sum += over
		if over < min {
			min = over
		}
		if over > max {
			max = over
		}
	}
	return min, max, sum / time.Duration(n)
}

// measureSpin reports the largest step between consecutive distinct clock
// readings while busy polling.
func measureSpin(n int) time.Duration {
	var step time.Duration
	prev := time.Now()
	for i := 0; i < n; i++ {
		now := time.Now()
		if d := now.Sub(prev); d > 0 {
			if d > step {
				step = d
			}
			prev = now
		}
	}
	return step
}
