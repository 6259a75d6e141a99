package main

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

func TestAnalyzeDeviation(t *testing.T) {
	interval := 100 * time.Millisecond
	stamps := []Stamp{
		{Grab: 101 * time.Millisecond, Retrieve: 103 * time.Millisecond, WaitMs: 80},
		{Grab: 199 * time.Millisecond, Retrieve: 202 * time.Millisecond, WaitMs: 79},
		{Grab: 303 * time.Millisecond, Retrieve: 305 * time.Millisecond, WaitMs: -1},
	}

	r := Analyze(stamps, interval)

	wantDev := []float64{1, -1, 3}
	wantRel := []float64{101, 99, 103}
	for i, f := range r.Frames {
		if f.ID != i+1 {
			t.Errorf("frame %d: ID %d", i, f.ID)
		}
		if math.Abs(f.DeviationMs-wantDev[i]) > 1e-9 {
			t.Errorf("frame %d: deviation %v, want %v", i, f.DeviationMs, wantDev[i])
		}
		if math.Abs(f.RelativeMs-wantRel[i]) > 1e-9 {
			t.Errorf("frame %d: relative %v, want %v", i, f.RelativeMs, wantRel[i])
		}
		if f.Expected != time.Duration(i+1)*interval {
			t.Errorf("frame %d: expected %v", i, f.Expected)
		}
		if f.WaitMs != stamps[i].WaitMs {
			t.Errorf("frame %d: wait %d, want %d", i, f.WaitMs, stamps[i].WaitMs)
		}
	}

	if math.Abs(r.MinDevMs+1) > 1e-9 || math.Abs(r.MaxDevMs-3) > 1e-9 || math.Abs(r.MaxAbsDevMs-3) > 1e-9 {
		t.Errorf("min/max: %v %v %v", r.MinDevMs, r.MaxDevMs, r.MaxAbsDevMs)
	}
	if math.Abs(r.MeanIntervalMs-101) > 1e-9 {
		t.Errorf("mean interval: %v, want 101", r.MeanIntervalMs)
	}
}

func TestAnalyzeAggregateIsExact(t *testing.T) {
	interval := time.Second / 30
	var stamps []Stamp
	for i := 0; i < 97; i++ {
		jitter := time.Duration((i*7919)%200-100) * time.Microsecond
		stamps = append(stamps, Stamp{Grab: time.Duration(i+1)*interval + jitter, WaitMs: -1})
	}

	r := Analyze(stamps, interval)

	var sum float64
	for _, f := range r.Frames {
		sum += math.Abs(f.DeviationMs)
	}
	if r.SumAbsDevMs != sum {
		t.Errorf("sum: got %v, want %v", r.SumAbsDevMs, sum)
	}
	if r.AvgAbsDevMs != r.SumAbsDevMs/float64(len(stamps)) {
		t.Errorf("avg: got %v, want %v", r.AvgAbsDevMs, r.SumAbsDevMs/float64(len(stamps)))
	}

	// Pure: a second analysis gives the same answer
	again := Analyze(stamps, interval)
	if again.SumAbsDevMs != r.SumAbsDevMs || again.AvgAbsDevMs != r.AvgAbsDevMs {
		t.Error("Analyze is not repeatable")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	r := Analyze(nil, time.Second)
	if len(r.Frames) != 0 || r.SumAbsDevMs != 0 || r.AvgAbsDevMs != 0 {
		t.Errorf("empty report: %+v", r)
	}
}

func TestWriteDeviation(t *testing.T) {
	stamps := []Stamp{
		{Grab: 101 * time.Millisecond, WaitMs: 80},
		{Grab: 199 * time.Millisecond, WaitMs: -1},
	}
	r := Analyze(stamps, 100*time.Millisecond)

	var out, progress bytes.Buffer
	if err := WriteDeviation(&out, r, &progress); err != nil {
		t.Fatalf("WriteDeviation failed: %v", err)
	}

	want := "FrameID\tFrameTime(ms)\tWaitTime(ms)\tArrivalTimeDeviation(ms)\n" +
		"  1\t101.00\t80\t1.00\n" +
		"  2\t99.00\t-1\t-1.00\n" +
		"\nTotal absolute deviation time = 2.00 ms, average absolute deviation time = 1.000 ms\n"
	if out.String() != want {
		t.Errorf("report mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
	if progress.String() != "." {
		t.Errorf("progress: got %q, want one dot", progress.String())
	}
}

func TestWriteTimestamps(t *testing.T) {
	stamps := make([]Stamp, 201)
	for i := range stamps {
		stamps[i] = Stamp{Grab: time.Duration(i+1) * 10 * time.Millisecond, Retrieve: time.Duration(i+1)*10*time.Millisecond + 1500*time.Microsecond}
	}

	var out, progress bytes.Buffer
	if err := WriteTimestamps(&out, stamps, &progress); err != nil {
		t.Fatalf("WriteTimestamps failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != len(stamps)+1 {
		t.Fatalf("lines: got %d, want %d", len(lines), len(stamps)+1)
	}
	if lines[0] != "FrameID\tGrabTime(s)\tRetrievalTime(s)" {
		t.Errorf("header: %q", lines[0])
	}
	if lines[1] != "1\t0.01\t0.0115" {
		t.Errorf("first row: %q", lines[1])
	}
	// A dot on the first row and every hundredth after it
	if progress.String() != "..." {
		t.Errorf("progress: got %q, want 3 dots", progress.String())
	}
}
