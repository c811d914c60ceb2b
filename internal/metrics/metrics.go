package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesProcessed atomic.Uint64
	InvalidGeometry atomic.Uint64
	EncodeErrors    atomic.Uint64
	EncodeLatencyMs atomic.Uint64

	// Detection counters, per reported state
	DetectionsRed     atomic.Uint64
	DetectionsYellow  atomic.Uint64
	DetectionsGreen   atomic.Uint64
	DetectionsUnknown atomic.Uint64

	// Configuration counters
	ConfigReloads    atomic.Uint64
	ConfigSaves      atomic.Uint64
	ConfigSaveErrors atomic.Uint64

	// Stream client counters
	ActiveStreamClients atomic.Int64
	TotalStreamClients  atomic.Uint64

	registry *prometheus.Registry
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"tld_frames_processed_total", "Total frames processed",
			func() float64 { return float64(m.FramesProcessed.Load()) }},
		{"tld_invalid_geometry_total", "Frames skipped due to an out-of-bounds ROI",
			func() float64 { return float64(m.InvalidGeometry.Load()) }},
		{"tld_encode_errors_total", "Total JPEG encode errors",
			func() float64 { return float64(m.EncodeErrors.Load()) }},
		{"tld_encode_latency_ms", "Latest classify+encode latency in milliseconds",
			func() float64 { return float64(m.EncodeLatencyMs.Load()) }},
		{"tld_detections_red_total", "Frames classified RED",
			func() float64 { return float64(m.DetectionsRed.Load()) }},
		{"tld_detections_yellow_total", "Frames classified YELLOW",
			func() float64 { return float64(m.DetectionsYellow.Load()) }},
		{"tld_detections_green_total", "Frames classified GREEN",
			func() float64 { return float64(m.DetectionsGreen.Load()) }},
		{"tld_detections_unknown_total", "Frames classified UNKNOWN",
			func() float64 { return float64(m.DetectionsUnknown.Load()) }},
		{"tld_config_reloads_total", "Configuration reloads performed by the processing loop",
			func() float64 { return float64(m.ConfigReloads.Load()) }},
		{"tld_config_saves_total", "Configuration records persisted via the control API",
			func() float64 { return float64(m.ConfigSaves.Load()) }},
		{"tld_config_save_errors_total", "Rejected or failed configuration saves",
			func() float64 { return float64(m.ConfigSaveErrors.Load()) }},
		{"tld_active_stream_clients", "Currently connected MJPEG clients",
			func() float64 { return float64(m.ActiveStreamClients.Load()) }},
		{"tld_total_stream_clients", "Total MJPEG clients ever connected",
			func() float64 { return float64(m.TotalStreamClients.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.fn,
		))
	}
}

// UpdateEncodeLatency records the latest per-frame processing latency
func (m *Metrics) UpdateEncodeLatency(d time.Duration) {
	m.EncodeLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
