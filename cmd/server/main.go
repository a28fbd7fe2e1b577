package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/broadcast"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/config"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/detector"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/engine"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/lane"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/server"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
	"github.com/muzaddid-faruque/ai-traffic-light/internal/video"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

var (
	// Command-line flags
	configPath  = flag.String("config", "", "Path to YAML config file")
	httpAddr    = flag.String("http", "", "API server address (overrides config)")
	metricsAddr = flag.String("metrics", "", "Metrics server address (overrides config)")
	pprofAddr   = flag.String("pprof", "", "pprof server address (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level (overrides config)")
	synthetic   = flag.Bool("synthetic", false, "Use synthetic frames for lanes without a camera source")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *httpAddr != "" {
		cfg.Addr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *pprofAddr != "" {
		cfg.PprofAddr = *pprofAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	mainLog := logrus.WithField("module", "main")
	mainLog.Info("Traffic controller starting...")
	mainLog.Infof("  API server: %s", cfg.Addr)
	mainLog.Infof("  Metrics server: %s", cfg.MetricsAddr)
	mainLog.Infof("  pprof server: %s", cfg.PprofAddr)
	mainLog.Infof("  Detector: %s", cfg.DetectorURL)

	store, err := config.NewStore(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	registry := stats.New()
	bcast := broadcast.New(registry)
	det := detector.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorTimeout)

	var lanes [types.NumLanes]*lane.Pipeline
	for i, dir := range cfg.CameraSources {
		src, err := openSource(i, dir, cfg.FrameWidth)
		if err != nil {
			mainLog.Warnf("lane %d source %q unavailable, lane runs degraded: %v", i, dir, err)
			src = video.NewUnavailable(i, err)
		}
		lanes[i] = lane.New(i, src, det, registry)
	}

	eng := engine.New(store, lanes, registry, bcast)
	api := server.New(store, registry, bcast)
	httpServer := &http.Server{Addr: cfg.Addr, Handler: api.Handler()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start pprof server
	go func() {
		if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
			mainLog.Warnf("pprof server error: %v", err)
		}
	}()

	// Start metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			mainLog.Warnf("metrics server error: %v", err)
		}
	}()

	// Start API server
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			mainLog.Errorf("API server error: %v", err)
		}
	}()

	engDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engDone)
	}()

	mainLog.Info("Controller started successfully")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	mainLog.Info("Shutting down...")
	cancel()
	<-engDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLog.Warnf("Error during shutdown: %v", err)
	}
	mainLog.Info("Controller stopped")
}

// openSource opens a lane's frame directory, substituting a synthetic
// feed when the directory is missing and -synthetic is set.
func openSource(laneID int, dir string, width int) (video.Source, error) {
	src, err := video.NewDirSource(laneID, dir, width)
	if err == nil {
		return src, nil
	}
	if *synthetic {
		return video.NewSyntheticSource(laneID, width), nil
	}
	return nil, err
}
