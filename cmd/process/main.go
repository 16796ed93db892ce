// Package main runs the tick processing stage: raw tick CSV in,
// processed feature CSV out, optionally persisted to ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/logging"
	"github.com/ferranfont/AI-random-forest/internal/pipeline"
	"github.com/ferranfont/AI-random-forest/internal/storage/clickhouse"
	"github.com/ferranfont/AI-random-forest/internal/storage/migrations"
)

func main() {
	input := flag.String("input", "", "Input tick CSV file (required)")
	output := flag.String("output", "", "Output processed CSV file (required)")
	configPath := flag.String("config", "", "Optional YAML config file")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Optional ClickHouse DSN to persist processed rows")
	sessionID := flag.String("session-id", "", "Session ID for persisted rows (required with -clickhouse-dsn)")
	flag.Parse()

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: process -input ticks.csv -output processed.csv [-config config.yaml]")
		os.Exit(1)
	}
	if *clickhouseDSN != "" && *sessionID == "" {
		fmt.Fprintln(os.Stderr, "-session-id is required when -clickhouse-dsn is set")
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
		<-sigCh
		cancel()
	}()

	proc := pipeline.NewProcessor(cfg.Window, logger)

	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error preparing clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		proc = proc.WithFeatureStore(clickhouse.NewTickFeatureStore(conn), *sessionID)
	}

	summary, _, err := proc.Run(ctx, *input, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Processing error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Processing completed:\n")
	fmt.Printf("  Rows read:    %d\n", summary.RowsRead)
	fmt.Printf("  Rows kept:    %d\n", summary.RowsKept)
	fmt.Printf("  Dropped (ts): %d\n", summary.DroppedTimestamp)
	fmt.Printf("  Output:       %s\n", summary.OutputPath)
}
