// Package main runs the forward test: a processed session is replayed
// through a fitted model and flagged rows are exported as signals.
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
	"github.com/ferranfont/AI-random-forest/internal/storage/migrations"
	"github.com/ferranfont/AI-random-forest/internal/storage/postgres"
)

func main() {
	raw := flag.String("raw", "", "Raw tick CSV, used when the processed table is missing")
	processed := flag.String("processed", "", "Processed CSV file (required)")
	modelPath := flag.String("model", "model.json", "Fitted model file")
	output := flag.String("output", "signals.csv", "Output signals CSV")
	configPath := flag.String("config", "", "Optional YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "Optional Postgres DSN to persist signals")
	flag.Parse()

	if *processed == "" {
		fmt.Fprintln(os.Stderr, "Usage: forwardtest -processed processed.csv [-raw ticks.csv] [-model model.json] [-output signals.csv]")
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

	tester := pipeline.NewForwardTester(cfg, logger)

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
		tester = tester.WithSignalStore(postgres.NewSignalStore(pool))
	}

	summary, err := tester.Run(ctx, *raw, *processed, *modelPath, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Forward test error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Forward test completed:\n")
	fmt.Printf("  Feature rows: %d\n", summary.FeatureRows)
	fmt.Printf("  Signals:      %d\n", summary.Signals)
	fmt.Printf("  Output:       %s\n", summary.OutputPath)
}
