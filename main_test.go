package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeSettings(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "capture_settings.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if cfg.RoughMargin != 20*time.Millisecond {
		t.Errorf("rough margin: got %v, want 20ms", cfg.RoughMargin)
	}
	if cfg.FineMargin != 50*time.Microsecond {
		t.Errorf("fine margin: got %v, want 50us", cfg.FineMargin)
	}
	if cfg.Device != DeviceScreen {
		t.Errorf("device: got %q", cfg.Device)
	}
	if cfg.RatePolicy != RateAuto {
		t.Errorf("rate policy: got %q", cfg.RatePolicy)
	}
	if cfg.CPU != -1 || cfg.Warmup != defaultWarmupFrames {
		t.Errorf("cpu/warmup: got %d/%d", cfg.CPU, cfg.Warmup)
	}

	p := sessionParams(cfg)
	if p.Frames != 45 || p.Capacity != 30 || !p.UsesDrain() {
		t.Errorf("session params: %+v", p)
	}
}

func TestParseFlagsSettingsFile(t *testing.T) {
	path := writeSettings(t, map[string]any{
		"series_name":              "bench",
		"io_buffer_length":         120,
		"target_frame_per_sec":     30.0,
		"record_time_sec":          2,
		"precap_rough_margin_time": 0.005,
		"video_export":             true,
	})

	for _, args := range [][]string{{path}, {"--config", path}} {
		cfg, err := parseFlags(args)
		if err != nil {
			t.Fatalf("parseFlags(%v) failed: %v", args, err)
		}
		s := cfg.Settings
		if s.SeriesName != "bench" || s.IOBufferLength != 120 || s.TargetFramePerSec != 30 || !s.VideoExport {
			t.Errorf("settings not loaded: %+v", s)
		}
		// Absent keys keep their defaults
		if s.FrameHeight != 480 || s.OutputFolder != "frames" {
			t.Errorf("defaults lost: %+v", s)
		}
		if cfg.RoughMargin != 5*time.Millisecond {
			t.Errorf("rough margin: got %v, want 5ms", cfg.RoughMargin)
		}
		if p := sessionParams(cfg); p.Frames != 60 || p.UsesDrain() {
			t.Errorf("session params: %+v", p)
		}
	}
}

func TestParseFlagsPrecedence(t *testing.T) {
	path := writeSettings(t, map[string]any{
		"io_buffer_length":          50,
		"precap_rough_margin_time":  0.030,
		"precap_fine_margin_time":   0.0001,
		"series_name_report_prefix": true,
	})

	cfg, err := parseFlags([]string{
		"--profile", "hrtimer",
		"--fine-margin", "10us",
		"--buffer", "8",
		"--fps", "30000/1001",
		"--report-prefix=false",
		path,
	})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	// Profile replaces the file's rough margin; the explicit flag wins for fine
	if cfg.RoughMargin != profiles["hrtimer"].RoughMargin {
		t.Errorf("rough margin: got %v, want the profile's", cfg.RoughMargin)
	}
	if cfg.FineMargin != 10*time.Microsecond {
		t.Errorf("fine margin: got %v, want 10us", cfg.FineMargin)
	}
	if cfg.Settings.IOBufferLength != 8 {
		t.Errorf("buffer: got %d, want 8", cfg.Settings.IOBufferLength)
	}
	if math.Abs(cfg.Settings.TargetFramePerSec-29.97) > 0.001 {
		t.Errorf("fps: got %v", cfg.Settings.TargetFramePerSec)
	}
	if cfg.Settings.SeriesNameReportPrefix {
		t.Error("report prefix flag ignored")
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown profile", []string{"--profile", "nope"}},
		{"bad margin", []string{"--rough-margin", "soon"}},
		{"bad fps", []string{"--fps", "fast"}},
		{"bad policy", []string{"--on-rate-mismatch", "maybe"}},
		{"missing settings", []string{"/nonexistent/settings.json"}},
		{"unknown flag", []string{"--bandwidth", "1M"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(tt.args); err == nil {
				t.Errorf("parseFlags(%v) succeeded", tt.args)
			}
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"30", 30, false},
		{"29.97", 29.97, false},
		{"30000/1001", 30000.0 / 1001, false},
		{"25fps", 25, false},
		{"60 Hz", 60, false},
		{" 15 ", 15, false},
		{"0", 0, true},
		{"30/0", 0, true},
		{"-30", 0, true},
		{"fast", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFrameRate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFrameRate(%q): err %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	d := time.Second
	if err := parseDuration("", "rough-margin", &d); err != nil || d != time.Second {
		t.Errorf("empty value changed dst: %v %v", d, err)
	}
	if err := parseDuration("2ms", "rough-margin", &d); err != nil || d != 2*time.Millisecond {
		t.Errorf("got %v %v, want 2ms", d, err)
	}
	err := parseDuration("later", "fine-margin", &d)
	if err == nil || !strings.Contains(err.Error(), "--fine-margin") {
		t.Errorf("error does not name the flag: %v", err)
	}
}

func TestReportNames(t *testing.T) {
	s := DefaultSettings()
	ts, dev := s.ReportNames()
	if ts != "demo__time_stamp_report.tab" || dev != "demo__time_deviation_report.tab" {
		t.Errorf("prefixed names: %q %q", ts, dev)
	}
	s.SeriesNameReportPrefix = false
	ts, dev = s.ReportNames()
	if ts != "time_stamp_report.tab" || dev != "time_deviation_report.tab" {
		t.Errorf("plain names: %q %q", ts, dev)
	}
}

func TestPrintProfiles(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf)
	for name := range profiles {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("profile %q missing from listing", name)
		}
	}
}

func syntheticConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := parseFlags([]string{
		"--device", DeviceSynthetic,
		"--series", "e2e",
		"-o", t.TempDir(),
		"--fps", "100",
		"--duration", "1",
		"--buffer", "20",
		"--height", "8",
		"--width", "12",
		"--profile", "hrtimer",
		"--warmup", "2",
		"--on-rate-mismatch", "abort",
	})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	return cfg
}

func TestCaptureSynthetic(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "framepacer.prom")

	if err := capture(cfg, zap.NewNop()); err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	dir := cfg.Settings.OutputFolder
	for _, name := range []string{"e2e000.png", "e2e099.png", "e2e_time_stamp_report.tab", "e2e_time_deviation_report.tab"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "e2e100.png")); !os.IsNotExist(err) {
		t.Errorf("unexpected extra frame: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "e2e_time_deviation_report.tab"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Total absolute deviation time =") {
		t.Errorf("deviation report has no summary:\n%s", data)
	}

	metrics, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metrics), "framepacer_frames_persisted_total") {
		t.Errorf("metrics file lacks counters:\n%s", metrics)
	}
}

func TestCaptureVideoExport(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Settings.RecordTimeSec = 1
	cfg.Settings.TargetFramePerSec = 20
	cfg.Settings.VideoExport = true

	if err := capture(cfg, zap.NewNop()); err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(cfg.Settings.OutputFolder, "e2e.avi"))
	if err != nil {
		t.Fatalf("video missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("video is empty")
	}
}

func TestCaptureInvalidParams(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.Settings.IOBufferLength = 1

	err := capture(cfg, zap.NewNop())
	var pe *ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("capture: got %v, want ParamError", err)
	}
	// Nothing is written for a rejected configuration
	entries, _ := os.ReadDir(cfg.Settings.OutputFolder)
	if len(entries) != 0 {
		t.Errorf("output folder has %d entries", len(entries))
	}
}

func TestRunExitCodes(t *testing.T) {
	cfg := syntheticConfig(t)
	cfg.LogLevel = "error"
	if code := run(cfg); code != 0 {
		t.Errorf("run: exit %d, want 0", code)
	}

	cfg = syntheticConfig(t)
	cfg.LogLevel = "error"
	cfg.Device = "webcam"
	if code := run(cfg); code != 1 {
		t.Errorf("run with unknown device: exit %d, want 1", code)
	}
}
