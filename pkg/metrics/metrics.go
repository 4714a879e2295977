package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the VoIP service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Call lifecycle metrics
	callsCreatedTotal    *prometheus.CounterVec
	callsTerminatedTotal *prometheus.CounterVec
	callDurationSeconds  prometheus.Histogram
	callUpdateConflicts  prometheus.Counter

	// Recording metrics
	recordingsCreatedTotal *prometheus.CounterVec
	recordingUploadBytes   prometheus.Histogram
	recordingUploadsFailed prometheus.Counter
	recordingSharesTotal   prometheus.Counter

	// WebSocket metrics
	websocketConnections prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics on a private registry
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),
		callsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "voip_calls_created_total",
				Help:        "Total number of call sessions created",
				ConstLabels: labels,
			},
			[]string{"direction"},
		),
		callsTerminatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "voip_calls_terminated_total",
				Help:        "Total number of call sessions reaching a terminal state",
				ConstLabels: labels,
			},
			[]string{"state"},
		),
		callDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "voip_call_duration_seconds",
				Help:        "Talk time of completed calls in seconds",
				ConstLabels: labels,
				Buckets:     []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		callUpdateConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "voip_call_update_conflicts_total",
				Help:        "Total number of call state updates rejected due to concurrent modification",
				ConstLabels: labels,
			},
		),
		recordingsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "voip_recordings_created_total",
				Help:        "Total number of recordings opened",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		recordingUploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "voip_recording_upload_bytes",
				Help:        "Histogram of uploaded recording sizes in bytes",
				ConstLabels: labels,
				Buckets:     []float64{10240, 102400, 1048576, 5242880, 10485760, 52428800},
			},
		),
		recordingUploadsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "voip_recording_uploads_failed_total",
				Help:        "Total number of recording uploads that failed",
				ConstLabels: labels,
			},
		),
		recordingSharesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "voip_recording_shares_total",
				Help:        "Total number of recording share grants",
				ConstLabels: labels,
			},
		),
		websocketConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of active websocket event connections",
				ConstLabels: labels,
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.callsCreatedTotal,
		m.callsTerminatedTotal,
		m.callDurationSeconds,
		m.callUpdateConflicts,
		m.recordingsCreatedTotal,
		m.recordingUploadBytes,
		m.recordingUploadsFailed,
		m.recordingSharesTotal,
		m.websocketConnections,
	)

	return m
}

// GetRegistry returns the private registry for the metrics endpoint
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordCallCreated records a new call session
func (m *Metrics) RecordCallCreated(direction string) {
	m.callsCreatedTotal.WithLabelValues(direction).Inc()
}

// RecordCallTerminated records a call reaching a terminal state
func (m *Metrics) RecordCallTerminated(state string, duration time.Duration) {
	m.callsTerminatedTotal.WithLabelValues(state).Inc()
	if duration > 0 {
		m.callDurationSeconds.Observe(duration.Seconds())
	}
}

// RecordCallUpdateConflict records a rejected concurrent call update
func (m *Metrics) RecordCallUpdateConflict() {
	m.callUpdateConflicts.Inc()
}

// RecordRecordingCreated records a newly opened recording
func (m *Metrics) RecordRecordingCreated(recordingType string) {
	m.recordingsCreatedTotal.WithLabelValues(recordingType).Inc()
}

// RecordRecordingUpload records a completed recording upload
func (m *Metrics) RecordRecordingUpload(sizeBytes int64) {
	m.recordingUploadBytes.Observe(float64(sizeBytes))
}

// RecordRecordingUploadFailed records a failed recording upload
func (m *Metrics) RecordRecordingUploadFailed() {
	m.recordingUploadsFailed.Inc()
}

// RecordRecordingShare records a share grant
func (m *Metrics) RecordRecordingShare() {
	m.recordingSharesTotal.Inc()
}

// IncWebsocketConnections increments the websocket connection gauge
func (m *Metrics) IncWebsocketConnections() {
	m.websocketConnections.Inc()
}

// DecWebsocketConnections decrements the websocket connection gauge
func (m *Metrics) DecWebsocketConnections() {
	m.websocketConnections.Dec()
}
