// Package metrics exports Prometheus counters for the tracking daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/handtrack-data/pose.report/internal/pose"
)

// Metrics holds the Prometheus collectors for packet ingestion and
// recording. It satisfies dispatch.Stats so the dispatcher can feed it
// directly.
type Metrics struct {
	registry        *prometheus.Registry
	packetsTotal    prometheus.Counter
	rejectedTotal   prometheus.Counter
	updatesTotal    *prometheus.CounterVec
	recordingArmed  prometheus.Gauge
	framesRecorded  prometheus.Counter
	recordingsSaved prometheus.Counter
}

// New creates and registers the daemon's Prometheus metrics on a private
// registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	packetsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glove_packets_total",
		Help: "Total number of OSC messages received across all listeners",
	})
	rejectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glove_packets_rejected_total",
		Help: "Total number of messages dropped by the kinematic decoder",
	})
	updatesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glove_pose_updates_total",
		Help: "Total number of accepted pose updates per hand",
	}, []string{"hand"})
	recordingArmed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "glove_recording_armed",
		Help: "Whether the frame recorder is currently armed (0 or 1)",
	})
	framesRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glove_frames_recorded_total",
		Help: "Total number of paired frames appended to recordings",
	})
	recordingsSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glove_recordings_saved_total",
		Help: "Total number of recordings persisted to disk",
	})

	registry.MustRegister(
		packetsTotal,
		rejectedTotal,
		updatesTotal,
		recordingArmed,
		framesRecorded,
		recordingsSaved,
	)

	return &Metrics{
		registry:        registry,
		packetsTotal:    packetsTotal,
		rejectedTotal:   rejectedTotal,
		updatesTotal:    updatesTotal,
		recordingArmed:  recordingArmed,
		framesRecorded:  framesRecorded,
		recordingsSaved: recordingsSaved,
	}
}

// AddPacket increments the received-message counter.
func (m *Metrics) AddPacket() {
	m.packetsTotal.Inc()
}

// AddRejected increments the rejected-message counter.
func (m *Metrics) AddRejected() {
	m.rejectedTotal.Inc()
}

// AddUpdate increments the accepted-update counter for one hand.
func (m *Metrics) AddUpdate(h pose.Hand) {
	m.updatesTotal.WithLabelValues(h.String()).Inc()
}

// LogStats is a no-op; Prometheus scrapes instead of logging.
func (m *Metrics) LogStats() {}

// SetRecordingArmed reflects the recorder's armed state.
func (m *Metrics) SetRecordingArmed(armed bool) {
	if armed {
		m.recordingArmed.Set(1)
		return
	}
	m.recordingArmed.Set(0)
}

// AddFrameRecorded counts one sampled frame.
func (m *Metrics) AddFrameRecorded() {
	m.framesRecorded.Inc()
}

// AddRecordingSaved counts one persisted recording.
func (m *Metrics) AddRecordingSaved() {
	m.recordingsSaved.Inc()
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
