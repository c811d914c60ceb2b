package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/acap-vision/tld/internal/logger"
)

// handleStream serves the long-lived MJPEG response. Each iteration copies
// the latest published frame out under its lock, then writes the multipart
// part outside the lock. Any write failure ends the handler; the deferred
// cleanup releases the connection's resources.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()[:8]
	s.metrics.TotalStreamClients.Add(1)
	s.metrics.ActiveStreamClients.Add(1)
	defer s.metrics.ActiveStreamClients.Add(-1)
	logger.Info("MJPEG", "Client %s connected from %s", clientID, r.RemoteAddr)
	defer logger.Info("MJPEG", "Client %s disconnected", clientID)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, ok := s.frames.Copy()
		if !ok {
			// Nothing published yet; pace-wait and retry.
			time.Sleep(s.cfg.FrameWait)
			continue
		}

		header := fmt.Sprintf("--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write([]byte(header)); err != nil {
			logger.Debug("MJPEG", "Client %s write failed: %v", clientID, err)
			return
		}
		if _, err := w.Write(frame); err != nil {
			logger.Debug("MJPEG", "Client %s frame write failed: %v", clientID, err)
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			logger.Debug("MJPEG", "Client %s delimiter write failed: %v", clientID, err)
			return
		}
		flusher.Flush()

		// Soft frame-rate cap, independent of the producer's speed.
		time.Sleep(s.cfg.FrameInterval)
	}
}
