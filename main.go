// ABOUTME: Entry point for the sine tone player
// ABOUTME: Parses CLI flags, starts the playback engine and tears it down on exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sendspin/sendspin-tone/internal/config"
	"github.com/Sendspin/sendspin-tone/internal/logging"
	"github.com/Sendspin/sendspin-tone/internal/version"
	"github.com/Sendspin/sendspin-tone/pkg/audio/output"
	"github.com/Sendspin/sendspin-tone/pkg/tone"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting "+version.String(),
		zap.Float64("frequency", cfg.Frequency),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Duration("duration", cfg.Duration),
		zap.String("backend", cfg.Backend),
		zap.String("log_file", cfg.LogFile))

	if cfg.MetricsAddr != "" {
		srv := startMetrics(cfg.MetricsAddr, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	host, err := output.NewHost(cfg.Backend, logger)
	if err != nil {
		logger.Error("failed to create audio host", zap.Error(err))
		return 1
	}

	engine, err := tone.NewEngine(tone.Config{
		Frequency:  cfg.Frequency,
		SampleRate: cfg.SampleRate,
		Volume:     cfg.Volume,
		Host:       host,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to start playback", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.PlayFor(ctx, cfg.Duration); err != nil {
		logger.Error("error stopping playback", zap.Error(err))
		return 1
	}

	stats := engine.Stats()
	logger.Info("player stopped",
		zap.Uint64("samples", stats.Samples),
		zap.Uint64("stream_errors", stats.StreamErrors))
	return 0
}

// startMetrics serves Prometheus metrics in the background
func startMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
