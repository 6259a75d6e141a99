package main

// timing_analysis - Inspect framepacer reports to verify frame pacing
//
// Usage:
//   1. Record a session:
//      framepacer --device synthetic --fps 30 -t 10 -o out
//
//   2. Analyze either report:
//      go run ./cmd/timing_analysis out/demo__time_stamp_report.tab
//      go run ./cmd/timing_analysis out/demo__time_deviation_report.tab
//
// This is a manual verification tool, not an automated test.

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	timestampHeader = "FrameID\tGrabTime(s)"
	deviationHeader = "FrameID\tFrameTime(ms)"
)

// timingEntry is one row of a time stamp report
type timingEntry struct {
	id       int
	grab     time.Duration
	retrieve time.Duration
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/timing_analysis <report-file>")
		fmt.Println("")
		fmt.Println("Record a session first:")
		fmt.Println("  framepacer --fps 30 -t 10 -o out")
		fmt.Println("")
		fmt.Println("Then analyze:")
		fmt.Println("  go run ./cmd/timing_analysis out/demo__time_stamp_report.tab")
		os.Exit(1)
	}

	filename := os.Args[1]
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Analyzing: %s (%d bytes)\n\n", filename, len(data))

	switch {
	case bytes.HasPrefix(data, []byte(timestampHeader)):
		analyzeTimestamps(data)
	case bytes.HasPrefix(data, []byte(deviationHeader)):
		analyzeDeviation(data)
	default:
		fmt.Fprintln(os.Stderr, "Unrecognized report format")
		os.Exit(1)
	}
}

func analyzeTimestamps(data []byte) {
	fmt.Println("Detected: time stamp report")
	fmt.Println("")

	var entries []timingEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 {
			continue
		}
		id, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
		grab, err2 := parseSeconds(fields[1])
		retrieve, err3 := parseSeconds(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			fmt.Printf("  skipping malformed row: %q\n", scanner.Text())
			continue
		}
		entries = append(entries, timingEntry{id: id, grab: grab, retrieve: retrieve})
	}

	printTimingAnalysis(entries)
}

func analyzeDeviation(data []byte) {
	fmt.Println("Detected: time deviation report")
	fmt.Println("")

	var devs []float64
	waits := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Scan() // header
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		dev, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			continue
		}
		if strings.TrimSpace(fields[2]) != "-1" {
			waits++
		}
		devs = append(devs, dev)
	}
	// The summary line follows the blank line
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			fmt.Println(s)
			fmt.Println("")
		}
	}

	if len(devs) == 0 {
		fmt.Println("No frames found")
		return
	}

	sorted := append([]float64(nil), devs...)
	sort.Float64s(sorted)

	fmt.Println("Deviation Statistics:")
	fmt.Println("=====================")
	fmt.Printf("  Frames: %d (%d with a coarse sleep)\n", len(devs), waits)
	fmt.Printf("  Min: %.3f ms\n", sorted[0])
	fmt.Printf("  Median: %.3f ms\n", percentile(sorted, 0.5))
	fmt.Printf("  p99: %.3f ms\n", percentile(sorted, 0.99))
	fmt.Printf("  Max: %.3f ms\n", sorted[len(sorted)-1])
}

func printTimingAnalysis(entries []timingEntry) {
	if len(entries) == 0 {
		fmt.Println("No timing entries found")
		return
	}

	fmt.Printf("Found %d frames\n\n", len(entries))

	// Calculate gaps between grabs
	var gaps []time.Duration
	for i := 1; i < len(entries); i++ {
		gaps = append(gaps, entries[i].grab-entries[i-1].grab)
	}

	var nominal time.Duration
	if len(gaps) > 0 {
		sorted := append([]time.Duration(nil), gaps...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		nominal = sorted[len(sorted)/2]
	}

	// Show gaps well beyond the typical frame interval
	fmt.Printf("Late frames (gap > 1.5x median %v):\n", nominal)
	fmt.Println("=====================================")

	lateCount := 0
	for i, gap := range gaps {
		if gap > nominal*3/2 {
			fmt.Printf("  frame %d at %v: +%v\n", entries[i+1].id, entries[i+1].grab, gap)
			lateCount++
		}
	}

	if lateCount == 0 {
		fmt.Println("  (none found)")
	}

	// Statistics
	fmt.Println("")
	fmt.Println("Timing Statistics:")
	fmt.Println("==================")
	fmt.Printf("  Total duration: %v\n", entries[len(entries)-1].grab)
	fmt.Printf("  Total frames: %d\n", len(entries))

	if len(gaps) > 0 {
		var totalGap, maxGap time.Duration
		minGap := gaps[0]
		for _, g := range gaps {
			totalGap += g
			maxGap = max(maxGap, g)
			minGap = min(minGap, g)
		}
		fmt.Printf("  Average gap: %v\n", totalGap/time.Duration(len(gaps)))
		fmt.Printf("  Min gap: %v\n", minGap)
		fmt.Printf("  Max gap: %v\n", maxGap)
	}

	var totalCopy, maxCopy time.Duration
	for _, e := range entries {
		c := e.retrieve - e.grab
		totalCopy += c
		maxCopy = max(maxCopy, c)
	}
	fmt.Printf("  Average grab to retrieve: %v\n", totalCopy/time.Duration(len(entries)))
	fmt.Printf("  Max grab to retrieve: %v\n", maxCopy)
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(v * float64(time.Second)), nil
}

func percentile(sorted []float64, p float64) float64 {
	i := int(p * float64(len(sorted)-1))
	return sorted[i]
}
