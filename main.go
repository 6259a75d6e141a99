package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var version = "0.2.0"

// Config holds all command-line configuration
type Config struct {
	Settings *Settings

	// Device
	Device string

	// Scheduler
	RoughMargin time.Duration
	FineMargin  time.Duration
	Warmup      int
	Profile     string

	// Capture thread tuning
	CPU  int
	Nice int

	// Rate mismatch handling
	RatePolicy RatePolicy

	// Observability
	MetricsAddr string
	MetricsFile string
	LogLevel    string
	LogJSON     bool

	// Misc
	Help         bool
	Version      bool
	ListProfiles bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("framepacer %s\n", version)
		os.Exit(0)
	}

	if cfg.ListProfiles {
		printProfiles(os.Stdout)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

func parseFlags(args []string) (*Config, error) {
	cfg := &Config{
		Warmup: defaultWarmupFrames,
	}

	fs := flag.NewFlagSet("framepacer", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false // Preserve definition order in help

	configPath := fs.StringP("config", "C", "", "JSON capture settings file")
	series := fs.String("series", "", "Series name, prefix of every output file")
	output := fs.StringP("output", "o", "", "Folder for frames, video and reports")
	buffer := fs.IntP("buffer", "b", 0, "Frame buffer length (frames)")
	device := fs.String("device", DeviceScreen, "Capture device: screen or synthetic")
	camera := fs.Int("camera", 0, "Device id")
	height := fs.Int("height", 0, "Frame height (pixels)")
	width := fs.Int("width", 0, "Frame width (pixels)")
	fps := fs.StringP("fps", "f", "", "Target frame rate (e.g., 30, 29.97, 30000/1001)")
	duration := fs.IntP("duration", "t", 0, "Recording time (seconds)")
	rough := fs.String("rough-margin", "", "Stop sleeping this long before each frame (e.g., 20ms)")
	fine := fs.String("fine-margin", "", "Stop spinning this long before each frame (e.g., 50us)")
	profile := fs.StringP("profile", "p", "", "Margin profile (see --list-profiles)")
	fs.IntVar(&cfg.Warmup, "warmup", defaultWarmupFrames, "Frames discarded before timing starts")
	video := fs.Bool("video", false, "Export the frames as an MJPEG video")
	reportPrefix := fs.Bool("report-prefix", true, "Prefix report file names with the series name")
	ratePolicy := fs.String("on-rate-mismatch", string(RateAuto), "continue, abort, ask or auto")
	fs.IntVar(&cfg.CPU, "cpu", -1, "Pin the capture thread to this CPU (-1 = no pinning)")
	fs.IntVar(&cfg.Nice, "nice", 0, "Capture thread priority adjustment (negative = higher)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file at the end")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "Log as JSON lines")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show help")
	fs.BoolVarP(&cfg.Version, "version", "v", false, "Show version")
	fs.BoolVarP(&cfg.ListProfiles, "list-profiles", "L", false, "List margin profiles")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "framepacer - capture frames on an evenly paced schedule")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Triggers every frame as close as possible to its ideal time, hands frames")
		fmt.Fprintln(os.Stderr, "to a background writer, and reports how far each trigger deviated.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: framepacer [flags] [settings.json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  framepacer capture_settings.json")
		fmt.Fprintln(os.Stderr, "  framepacer --fps 30 --duration 10 --profile hrtimer -o out")
		fmt.Fprintln(os.Stderr, "  framepacer --device synthetic --fps 30000/1001 -t 5 --on-rate-mismatch abort")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags override the settings file; --profile overrides its margins.")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Help {
		fs.Usage()
		return cfg, flag.ErrHelp
	}

	// Settings file: --config or the first positional argument
	path := *configPath
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path != "" {
		s, err := LoadSettings(path)
		if err != nil {
			return nil, err
		}
		cfg.Settings = s
	} else {
		cfg.Settings = DefaultSettings()
	}
	s := cfg.Settings
	cfg.RoughMargin = secondsToDuration(s.PrecapRoughMarginTimeSeconds)
	cfg.FineMargin = secondsToDuration(s.PrecapFineMarginTimeSeconds)

	// Profile replaces the file's margins (explicit margin flags still win)
	cfg.Profile = *profile
	if cfg.Profile != "" {
		p, ok := profiles[cfg.Profile]
		if !ok {
			return nil, fmt.Errorf("unknown profile: %s", cfg.Profile)
		}
		cfg.RoughMargin = p.RoughMargin
		cfg.FineMargin = p.FineMargin
	}

	for _, d := range []struct {
		value    string
		flagName string
		dst      *time.Duration
	}{
		{*rough, "rough-margin", &cfg.RoughMargin},
		{*fine, "fine-margin", &cfg.FineMargin},
	} {
		if err := parseDuration(d.value, d.flagName, d.dst); err != nil {
			return nil, err
		}
	}

	if *fps != "" {
		r, err := parseFrameRate(*fps)
		if err != nil {
			return nil, fmt.Errorf("invalid --fps: %w", err)
		}
		s.TargetFramePerSec = r
	}
	if *series != "" {
		s.SeriesName = *series
	}
	if *output != "" {
		s.OutputFolder = *output
	}
	if fs.Changed("buffer") {
		s.IOBufferLength = *buffer
	}
	if fs.Changed("camera") {
		s.CameraID = *camera
	}
	if fs.Changed("height") {
		s.FrameHeight = *height
	}
	if fs.Changed("width") {
		s.FrameWidth = *width
	}
	if fs.Changed("duration") {
		s.RecordTimeSec = *duration
	}
	if fs.Changed("video") {
		s.VideoExport = *video
	}
	if fs.Changed("report-prefix") {
		s.SeriesNameReportPrefix = *reportPrefix
	}

	cfg.Device = *device
	policy, err := ParseRatePolicy(*ratePolicy)
	if err != nil {
		return nil, fmt.Errorf("invalid --on-rate-mismatch: %w", err)
	}
	cfg.RatePolicy = policy

	return cfg, nil
}

// parseDuration parses a duration flag value into dst if non-empty.
// Returns an error with the flag name if parsing fails.
func parseDuration(s string, flagName string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	*dst = d
	return nil
}

// parseFrameRate parses frame rates like "30", "29.97", "30000/1001" or
// "25fps".
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	re := regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:\s*/\s*(\d+(?:\.\d+)?))?\s*(fps|hz)?$`)
	matches := re.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid frame rate format: %s", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}
	if matches[2] != "" {
		den, err := strconv.ParseFloat(matches[2], 64)
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("zero denominator: %s", s)
		}
		value /= den
	}
	if value <= 0 {
		return 0, fmt.Errorf("frame rate must be positive: %s", s)
	}
	return value, nil
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// sessionParams derives the session timing from the configuration.
func sessionParams(cfg *Config) SessionParams {
	s := cfg.Settings
	return SessionParams{
		Frames:      NumFrames(s.TargetFramePerSec, s.RecordTimeSec),
		Rate:        s.TargetFramePerSec,
		RoughMargin: cfg.RoughMargin,
		FineMargin:  cfg.FineMargin,
		Capacity:    s.IOBufferLength,
		Warmup:      cfg.Warmup,
	}
}

// logSettings prints the effective settings so the operator can check what
// was actually read.
func logSettings(log *zap.Logger, cfg *Config, p SessionParams) {
	s := cfg.Settings
	tsName, devName := s.ReportNames()
	log.Info("capture settings",
		zap.String("series", s.SeriesName),
		zap.String("output_folder", s.OutputFolder),
		zap.String("time_stamp_report", tsName),
		zap.String("time_deviation_report", devName),
		zap.Int("io_buffer_length", s.IOBufferLength),
		zap.String("device", cfg.Device),
		zap.Int("camera_id", s.CameraID),
		zap.Int("frame_height", s.FrameHeight),
		zap.Int("frame_width", s.FrameWidth),
		zap.Float64("target_fps", s.TargetFramePerSec),
		zap.Int("record_time_sec", s.RecordTimeSec),
		zap.Int("frames", p.Frames),
		zap.Duration("rough_margin", p.RoughMargin),
		zap.Duration("fine_margin", p.FineMargin),
		zap.Int("warmup", p.Warmup),
		zap.Bool("video_export", s.VideoExport),
	)
}

func run(cfg *Config) int {
	log, err := newLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := capture(cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if isRateRejected(err) {
			return 2
		}
		return 1
	}
	return 0
}

// capture runs one complete session: device setup, rate check, paced
// capture, reports and the optional video.
func capture(cfg *Config, log *zap.Logger) error {
	s := cfg.Settings
	p := sessionParams(cfg)
	logSettings(log, cfg, p)
	if err := p.Validate(); err != nil {
		return err
	}

	dev, err := OpenDevice(cfg.Device, s.CameraID)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.Configure(s.FrameHeight, s.FrameWidth, s.TargetFramePerSec); err != nil {
		return err
	}
	actual := dev.ActualRate()
	log.Info("device configured", zap.Float64("target_fps", s.TargetFramePerSec), zap.Float64("actual_fps", actual))
	check := RateCheck{Policy: cfg.RatePolicy, In: os.Stdin, Out: os.Stderr}
	if err := check.Check(s.TargetFramePerSec, actual); err != nil {
		return err
	}

	store, err := NewFileStore(s.OutputFolder, s.SeriesName, p.Frames)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := NewSession(p, dev, store, log)
	sess.Metrics = NewMetrics(s.SeriesName, sess.ID.String())
	sess.Progress = os.Stderr
	sess.CPU = cfg.CPU
	sess.Nice = cfg.Nice
	if cfg.MetricsAddr != "" {
		sess.Metrics.Serve(ctx, cfg.MetricsAddr, sess.Log)
	}

	res, err := sess.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeReports(s, res, sess.Log); err != nil {
		return err
	}

	if s.VideoExport {
		start := time.Now()
		sess.Log.Info("exporting video", zap.Int("frames", res.Persisted))
		path, err := ExportVideo(store, res.Persisted, s.TargetFramePerSec, dev.Bounds(), os.Stderr)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		sess.Log.Info("video exported", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	}

	if cfg.MetricsFile != "" {
		if err := sess.Metrics.WriteFile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Println(res.Report.Summary())
	return nil
}

// writeReports writes the time stamp and deviation reports into the output
// folder.
func writeReports(s *Settings, res *Result, log *zap.Logger) error {
	tsName, devName := s.ReportNames()

	tsPath := filepath.Join(s.OutputFolder, tsName)
	log.Info("saving time stamps", zap.String("path", tsPath))
	if err := writeFile(tsPath, func(f *os.File) error {
		return WriteTimestamps(f, res.Stamps, os.Stderr)
	}); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	devPath := filepath.Join(s.OutputFolder, devName)
	log.Info("saving time deviation", zap.String("path", devPath))
	if err := writeFile(devPath, func(f *os.File) error {
		return WriteDeviation(f, res.Report, os.Stderr)
	}); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)

	log.Info("deviation",
		zap.Float64("sum_abs_ms", res.Report.SumAbsDevMs),
		zap.Float64("avg_abs_ms", res.Report.AvgAbsDevMs),
		zap.Float64("max_abs_ms", res.Report.MaxAbsDevMs),
	)
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// isRateRejected reports whether err means the operator or policy declined
// the device's frame rate.
func isRateRejected(err error) bool {
	return errors.Is(err, ErrRateRejected)
}
