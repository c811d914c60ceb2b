// Package server exposes the local control and streaming endpoints: the
// MJPEG stream of annotated frames, the configuration save endpoint and a
// small state readout. It listens on loopback only; the device's reverse
// proxy fronts it.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/acap-vision/tld/internal/config"
	"github.com/acap-vision/tld/internal/logger"
	"github.com/acap-vision/tld/internal/metrics"
	"github.com/acap-vision/tld/internal/stream"
)

// Config defines the runtime configuration for the control server.
type Config struct {
	Addr       string
	ConfigPath string
	// FrameInterval caps the client-observed frame rate.
	FrameInterval time.Duration
	// FrameWait is the backoff while the published frame buffer is empty.
	FrameWait time.Duration
}

// DefaultConfig returns a config aligned with the on-camera deployment.
func DefaultConfig() Config {
	return Config{
		Addr:          "127.0.0.1:8080",
		ConfigPath:    "./config.json",
		FrameInterval: 33 * time.Millisecond,
		FrameWait:     10 * time.Millisecond,
	}
}

// Server routes control and streaming requests. Each connection is handled
// on its own goroutine by net/http, so a stalled stream client never blocks
// configuration updates, other clients or the processing loop.
type Server struct {
	cfg     Config
	store   *config.Store
	frames  *stream.LatestFrame
	status  *stream.LatestStatus
	reload  *atomic.Bool
	metrics *metrics.Metrics
}

// New returns a configured control server.
func New(cfg Config, store *config.Store, frames *stream.LatestFrame, status *stream.LatestStatus, reload *atomic.Bool, m *metrics.Metrics) *Server {
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.FrameWait <= 0 {
		cfg.FrameWait = def.FrameWait
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		frames:  frames,
		status:  status,
		reload:  reload,
		metrics: m,
	}
}

// Handler exposes the HTTP handler for the server. Unregistered paths get
// the mux's 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/local/tld/api/save_config", s.handleSaveConfig)
	mux.HandleFunc("/local/tld/api/stream", s.handleStream)
	mux.HandleFunc("/local/tld/api/state", s.handleState)
	return mux
}

// handleSaveConfig persists the posted configuration record verbatim and
// signals the processing loop to reload it. An empty or syntactically
// invalid body is rejected without touching any state.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.ConfigSaveErrors.Add(1)
		writeStatus(w, http.StatusBadRequest, "error", "Invalid request format")
		return
	}
	if len(body) == 0 {
		s.metrics.ConfigSaveErrors.Add(1)
		writeStatus(w, http.StatusBadRequest, "error", "Empty body")
		return
	}
	if !json.Valid(body) {
		s.metrics.ConfigSaveErrors.Add(1)
		writeStatus(w, http.StatusBadRequest, "error", "Malformed JSON body")
		return
	}

	if err := config.WriteRaw(s.cfg.ConfigPath, body); err != nil {
		logger.Error("Server", "Failed to persist config: %v", err)
		s.metrics.ConfigSaveErrors.Add(1)
		writeStatus(w, http.StatusInternalServerError, "error", "Failed to persist configuration")
		return
	}

	s.reload.Store(true)
	s.metrics.ConfigSaves.Add(1)
	logger.Info("Server", "Configuration saved (%d bytes), reload scheduled", len(body))
	writeStatus(w, http.StatusOK, "success", "")
}

// handleState reports the most recent classification for observability.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, ok := s.status.Load()
	if !ok {
		writeJSONWithStatus(w, map[string]any{"state": "UNKNOWN", "ready": false}, http.StatusOK)
		return
	}
	writeJSONWithStatus(w, map[string]any{
		"state": st.Result.State.String(),
		"ready": true,
		"brightness": map[string]float64{
			"red":    st.Result.Means[0],
			"yellow": st.Result.Means[1],
			"green":  st.Result.Means[2],
		},
		"roi_valid": st.Result.ROIValid,
		"timestamp": float64(st.When.Unix()),
	}, http.StatusOK)
}

func writeStatus(w http.ResponseWriter, code int, status, message string) {
	payload := map[string]any{"status": status}
	if message != "" {
		payload["message"] = message
	}
	// The static configuration page is served from a different origin on the
	// camera, so the save endpoint answers with an open CORS header.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSONWithStatus(w, payload, code)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
