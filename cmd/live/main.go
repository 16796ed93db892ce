// Package main runs the live detector: ticks from a WebSocket feed go
// through the same window engine as the batch pipeline, and bursts
// above the threshold become signals. Labels are never computed here.
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

	"go.uber.org/zap"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/live"
	"github.com/ferranfont/AI-random-forest/internal/logging"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/storage/migrations"
	"github.com/ferranfont/AI-random-forest/internal/storage/postgres"
)

func main() {
	endpoint := flag.String("feed", "", "WebSocket tick feed endpoint (required)")
	configPath := flag.String("config", "", "Optional YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "Optional Postgres DSN to persist signals")
	metricsAddr := flag.String("metrics-addr", ":9102", "Prometheus metrics listen address")
	flag.Parse()

	if *endpoint == "" {
		fmt.Fprintln(os.Stderr, "Usage: live -feed ws://host:port/ticks [-config config.yaml] [-postgres-dsn dsn]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	detector := live.NewDetector(cfg, logger)

	if *postgresDSN != "" {
		pool, err := postgres.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying migrations: %v\n", err)
			os.Exit(1)
		}
		detector = detector.WithSignalStore(postgres.NewSignalStore(pool))
	}

	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: observability.Handler()}
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", *metricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	feed, err := live.NewFeed(ctx, *endpoint, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to feed: %v\n", err)
		os.Exit(1)
	}
	defer feed.Close()

	logger.Info("live detector started",
		zap.String("feed", *endpoint),
		zap.Float64("tps_threshold", cfg.Label.TPSThreshold),
	)

	if err := detector.Run(ctx, feed.Ticks()); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Detector error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("live detector stopped")
}
