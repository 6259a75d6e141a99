package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// progressEvery is how many rows or frames pass between progress dots.
const progressEvery = 100

// Stamp is the timing of one captured frame relative to the session origin.
type Stamp struct {
	Grab     time.Duration // capture trigger issued
	Retrieve time.Duration // data copied into the slot
	WaitMs   int           // coarse sleep before the trigger, -1 if none
}

// FrameDeviation is the derived timing of one frame.
type FrameDeviation struct {
	ID          int     // 1-based
	RelativeMs  float64 // grab time measured from the start of the frame's interval
	WaitMs      int
	Expected    time.Duration
	DeviationMs float64 // grab minus ideal time
}

// Report summarises how closely a session met its schedule.
type Report struct {
	Frames         []FrameDeviation
	SumAbsDevMs    float64
	AvgAbsDevMs    float64
	MinDevMs       float64
	MaxDevMs       float64
	MaxAbsDevMs    float64
	MeanIntervalMs float64 // mean gap between consecutive grabs
}

// Analyze derives per-frame and aggregate deviation from a finished
// timestamp record. It does not modify stamps.
func Analyze(stamps []Stamp, interval time.Duration) *Report {
	r := &Report{Frames: make([]FrameDeviation, len(stamps))}
	if len(stamps) == 0 {
		return r
	}

	r.MinDevMs = math.Inf(1)
	r.MaxDevMs = math.Inf(-1)
	for i, s := range stamps {
		grab := s.Grab.Seconds()
		start := float64(i) * interval.Seconds()
		expected := float64(i+1) * interval.Seconds()
		dev := (grab - expected) * 1000

		r.Frames[i] = FrameDeviation{
			ID:          i + 1,
			RelativeMs:  (grab - start) * 1000,
			WaitMs:      s.WaitMs,
			Expected:    time.Duration(i+1) * interval,
			DeviationMs: dev,
		}
		r.SumAbsDevMs += math.Abs(dev)
		r.MinDevMs = math.Min(r.MinDevMs, dev)
		r.MaxDevMs = math.Max(r.MaxDevMs, dev)
	}
	r.AvgAbsDevMs = r.SumAbsDevMs / float64(len(stamps))
	r.MaxAbsDevMs = math.Max(math.Abs(r.MinDevMs), math.Abs(r.MaxDevMs))
	if n := len(stamps); n > 1 {
		r.MeanIntervalMs = (stamps[n-1].Grab - stamps[0].Grab).Seconds() * 1000 / float64(n-1)
	}
	return r
}

// Summary is the aggregate line shared by the deviation report and the
// console.
func (r *Report) Summary() string {
	return fmt.Sprintf("Total absolute deviation time = %.2f ms, average absolute deviation time = %.3f ms",
		r.SumAbsDevMs, r.AvgAbsDevMs)
}

// WriteTimestamps writes the grab and retrieve time of every frame in
// seconds. progress receives a dot every hundred rows and may be nil.
func WriteTimestamps(w io.Writer, stamps []Stamp, progress io.Writer) error {
	bw := bufio.NewWriter(w)
	dots := &rate.Sometimes{Every: progressEvery}

	fmt.Fprint(bw, "FrameID\tGrabTime(s)\tRetrievalTime(s)\n")
	for i, s := range stamps {
		fmt.Fprintf(bw, "%d\t%s\t%s\n", i+1, formatSeconds(s.Grab), formatSeconds(s.Retrieve))
		dots.Do(func() { dot(progress) })
	}
	return bw.Flush()
}

// WriteDeviation writes the per-frame deviation table followed by the
// aggregate line.
func WriteDeviation(w io.Writer, r *Report, progress io.Writer) error {
	bw := bufio.NewWriter(w)
	dots := &rate.Sometimes{Every: progressEvery}

	fmt.Fprint(bw, "FrameID\tFrameTime(ms)\tWaitTime(ms)\tArrivalTimeDeviation(ms)\n")
	for _, f := range r.Frames {
		fmt.Fprintf(bw, "%3d\t%5.2f\t%2d\t%.2f\n", f.ID, f.RelativeMs, f.WaitMs, f.DeviationMs)
		dots.Do(func() { dot(progress) })
	}
	fmt.Fprintf(bw, "\n%s\n", r.Summary())
	return bw.Flush()
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func dot(w io.Writer) {
	if w != nil {
		fmt.Fprint(w, ".")
	}
}
