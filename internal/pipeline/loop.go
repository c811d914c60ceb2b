// Package pipeline runs the frame processing loop: fetch, classify, render,
// publish, release. It is the sole consumer of the frame source and the sole
// writer of the published frame buffer.
package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/acap-vision/tld/internal/config"
	"github.com/acap-vision/tld/internal/detect"
	"github.com/acap-vision/tld/internal/logger"
	"github.com/acap-vision/tld/internal/metrics"
	"github.com/acap-vision/tld/internal/render"
	"github.com/acap-vision/tld/internal/stream"
	"github.com/acap-vision/tld/internal/video"
)

// ErrSourceEnded is returned by Run when the frame source stops delivering
// frames. The caller treats it as fatal and shuts the process down.
var ErrSourceEnded = errors.New("frame source ended")

// Loop wires the processing cycle's collaborators together. All fields must
// be set before Run is called.
type Loop struct {
	Source     video.Source
	Store      *config.Store
	Reload     *atomic.Bool
	ConfigPath string
	Frames     *stream.LatestFrame
	Status     *stream.LatestStatus
	Metrics    *metrics.Metrics
}

// Run executes the processing cycle until the source ends, then returns
// ErrSourceEnded. It must be the only goroutine driving the source.
func (l *Loop) Run() error {
	for {
		// A save handler may set the flag again between the swap and the
		// reload; that only costs one extra reload cycle.
		if l.Reload.CompareAndSwap(true, false) {
			if err := l.Store.LoadFile(l.ConfigPath); err != nil {
				logger.Warn("Pipeline", "Config reload failed, keeping current settings: %v", err)
			} else {
				l.Metrics.ConfigReloads.Add(1)
				logger.Info("Pipeline", "Configuration reloaded")
			}
		}

		cfg := l.Store.Snapshot()

		frame := l.Source.Fetch()
		if frame == nil {
			logger.Error("Pipeline", "Frame source ended, shutting down")
			return ErrSourceEnded
		}

		l.process(frame, cfg)
		l.Source.Release(frame)
	}
}

func (l *Loop) process(frame *video.Frame, cfg config.Settings) {
	start := time.Now()

	res := detect.Classify(frame.Luma(), frame.Width, frame.Height, cfg)
	if !res.ROIValid {
		l.Metrics.InvalidGeometry.Add(1)
	} else {
		logger.Debug("Pipeline", "Brightness R:%.1f Y:%.1f G:%.1f threshold %d -> %s",
			res.Means[0], res.Means[1], res.Means[2], cfg.BrightnessThreshold, res.State)
	}

	jpeg, err := render.Encode(frame.Data, frame.Width, frame.Height, res)
	if err != nil {
		// The stream keeps serving the previous frame; nothing to publish.
		logger.Error("Pipeline", "Frame %d encode failed: %v", frame.Seq, err)
		l.Metrics.EncodeErrors.Add(1)
		return
	}

	l.Frames.Publish(jpeg)
	l.Status.Store(res)
	l.countState(res.State)
	l.Metrics.FramesProcessed.Add(1)
	l.Metrics.UpdateEncodeLatency(time.Since(start))
}

func (l *Loop) countState(s detect.State) {
	switch s {
	case detect.StateRed:
		l.Metrics.DetectionsRed.Add(1)
	case detect.StateYellow:
		l.Metrics.DetectionsYellow.Add(1)
	case detect.StateGreen:
		l.Metrics.DetectionsGreen.Add(1)
	default:
		l.Metrics.DetectionsUnknown.Add(1)
	}
}
