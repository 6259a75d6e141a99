package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	metricsNamespace       = "framepacer"
	metricsShutdownTimeout = 2 * time.Second
	heartStatus            = http.StatusOK
)

// Metrics holds the instruments of one capture session. Each session owns a
// private registry so sessions never share series.
type Metrics struct {
	Registry *prometheus.Registry

	FramesCaptured  prometheus.Counter
	FramesPersisted prometheus.Counter
	DrainIdlePolls  prometheus.Counter
	Pending         prometheus.Gauge
	Deviation       prometheus.Histogram // ms, observed at report time
	CoarseSleep     prometheus.Histogram // ms, observed at report time
}

// NewMetrics creates and registers the session instruments. series and
// sessionID become const labels.
func NewMetrics(series, sessionID string) *Metrics {
	labels := prometheus.Labels{"series": series, "session": sessionID}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_captured_total",
			Help:        "Frames triggered and materialized into the ring.",
			ConstLabels: labels,
		}),
		FramesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_persisted_total",
			Help:        "Frames written to the frame store.",
			ConstLabels: labels,
		}),
		DrainIdlePolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "drain_idle_polls_total",
			Help:        "Times the drain loop found the ring empty and slept.",
			ConstLabels: labels,
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_pending",
			Help:        "Frames in the ring waiting to be persisted.",
			ConstLabels: labels,
		}),
		Deviation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "grab_deviation_ms",
			Help:        "Signed difference between actual and ideal trigger time.",
			ConstLabels: labels,
			Buckets:     []float64{-5, -1, -0.5, -0.1, -0.05, 0, 0.05, 0.1, 0.5, 1, 5, 20},
		}),
		CoarseSleep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "coarse_sleep_ms",
			Help:        "OS sleep issued by the scheduler before each frame.",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0, 5, 12),
		}),
	}
	m.Registry.MustRegister(
		m.FramesCaptured,
		m.FramesPersisted,
		m.DrainIdlePolls,
		m.Pending,
		m.Deviation,
		m.CoarseSleep,
	)
	return m
}

// ObserveReport records the per-frame deviations and coarse sleeps of a
// finished session.
func (m *Metrics) ObserveReport(r *Report) {
	for _, f := range r.Frames {
		m.Deviation.Observe(f.DeviationMs)
		if f.WaitMs >= 0 {
			m.CoarseSleep.Observe(float64(f.WaitMs))
		}
	}
}

// WriteFile writes the registry in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Serve exposes /metrics and /heart on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/heart", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(heartStatus)
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
