package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Provisioning metrics
	ProvisionTotal    *prometheus.CounterVec
	ProvisionDuration *prometheus.HistogramVec
	VenvDetected      *prometheus.CounterVec

	// Terminal metrics
	TerminalsActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	TotalProvisions int64   `json:"total_provisions"`
	FailedProvision int64   `json:"failed_provisions"`
	ActiveTerminals int64   `json:"active_terminals"`
	TotalDuration   float64 `json:"total_duration_seconds"`
	RequestCount    int64   `json:"request_count"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termprov_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termprov_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termprov_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termprov_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Provisioning metrics
		ProvisionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termprov_provision_total",
				Help: "Total number of terminal provisioning requests",
			},
			[]string{"kind", "mode", "status"},
		),
		ProvisionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termprov_provision_duration_seconds",
				Help:    "Time spent resolving a launch plan",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind", "mode"},
		),
		VenvDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termprov_venv_detected_total",
				Help: "Virtual environments detected, by lookup step",
			},
			[]string{"source"},
		),

		// Terminal metrics
		TerminalsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termprov_terminals_active",
				Help: "Number of live terminal sessions",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termprov_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termprov_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termprov_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	return m
}

// Run updates the uptime gauge until done is closed
func (m *Metrics) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordProvision records one provisioning attempt. Safe on a nil receiver.
func (m *Metrics) RecordProvision(kind, mode, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProvisionTotal.WithLabelValues(kind, mode, status).Inc()
	m.ProvisionDuration.WithLabelValues(kind, mode).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalProvisions++
	if status != "success" {
		m.snapshot.FailedProvision++
	}
	m.mu.Unlock()
}

// RecordVenv records which lookup step found a virtual environment. Safe on
// a nil receiver.
func (m *Metrics) RecordVenv(source string) {
	if m == nil {
		return
	}
	m.VenvDetected.WithLabelValues(source).Inc()
}

// SetTerminalsActive sets the number of live terminals. Safe on a nil receiver.
func (m *Metrics) SetTerminalsActive(count int) {
	if m == nil {
		return
	}
	m.TerminalsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveTerminals = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message. Safe on a nil receiver.
func (m *Metrics) RecordWSMessage(direction string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
