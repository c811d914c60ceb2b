package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/acap-vision/tld/internal/config"
	"github.com/acap-vision/tld/internal/logger"
	"github.com/acap-vision/tld/internal/metrics"
	"github.com/acap-vision/tld/internal/pipeline"
	"github.com/acap-vision/tld/internal/server"
	"github.com/acap-vision/tld/internal/stream"
	"github.com/acap-vision/tld/internal/video"
)

var (
	// Command-line flags
	httpAddr    = flag.String("http", "127.0.0.1:8080", "Control/stream server address (loopback; the reverse proxy fronts it)")
	metricsAddr = flag.String("metrics", "127.0.0.1:9090", "Metrics server address")
	pprofAddr   = flag.String("pprof", "127.0.0.1:6060", "pprof server address")
	configPath  = flag.String("config", "./config.json", "Path of the persisted configuration record")
	width       = flag.Int("width", 1280, "Capture width")
	height      = flag.Int("height", 720, "Capture height")
	fps         = flag.Int("fps", 30, "Capture frame rate")
	buffers     = flag.Int("buffers", 2, "Capture buffer pool size")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Traffic light detector starting (%dx%d @ %d fps)", *width, *height, *fps)

	store := config.NewStore(config.Defaults())
	if err := store.LoadFile(*configPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("Main", "No config file at %s, using defaults", *configPath)
		} else {
			logger.Warn("Main", "Config load failed, using defaults: %v", err)
		}
	}

	var reload atomic.Bool
	frames := &stream.LatestFrame{}
	status := &stream.LatestStatus{}
	m := metrics.New()

	source := video.NewTestPattern(*width, *height, *buffers, *fps)
	if err := source.Start(); err != nil {
		log.Fatalf("Failed to start frame source: %v", err)
	}

	srv := server.New(server.Config{
		Addr:       *httpAddr,
		ConfigPath: *configPath,
	}, store, frames, status, &reload, m)

	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("Main", "Control server listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Main", "HTTP server error: %v", err)
		}
	}()

	go func() {
		logger.Info("Main", "Metrics server listening on %s", *metricsAddr)
		if err := m.StartServer(*metricsAddr); err != nil {
			logger.Error("Main", "Metrics server error: %v", err)
		}
	}()

	go func() {
		logger.Info("Main", "pprof server listening on %s", *pprofAddr)
		if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
			logger.Error("Main", "pprof server error: %v", err)
		}
	}()

	loop := &pipeline.Loop{
		Source:     source,
		Store:      store,
		Reload:     &reload,
		ConfigPath: *configPath,
		Frames:     frames,
		Status:     status,
		Metrics:    m,
	}

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Main", "Received %v, shutting down", sig)
		source.Stop()
		<-loopDone
	case err := <-loopDone:
		logger.Error("Main", "Processing loop ended: %v", err)
		source.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}

	logger.Info("Main", "Server stopped")
}
