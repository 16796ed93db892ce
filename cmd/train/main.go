// Package main runs the training stage: processed feature CSV in,
// fitted classifier JSON plus evaluation report out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/logging"
	"github.com/ferranfont/AI-random-forest/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "Processed CSV file (required)")
	modelOut := flag.String("model", "model.json", "Output model file")
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: train -input processed.csv [-model model.json] [-config config.yaml]")
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

	trainer := pipeline.NewTrainer(cfg, logger)
	summary, err := trainer.Run(context.Background(), *input, *modelOut)
	if err != nil {
		if pipeline.IsNoPositives(err) {
			fmt.Fprintln(os.Stderr, "No initiation rows in the labeled set; nothing to train on.")
			fmt.Fprintln(os.Stderr, "Lower the thresholds or capture a session with more burst activity.")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Training error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Training completed:\n")
	fmt.Printf("  Feature rows: %d\n", summary.FeatureRows)
	fmt.Printf("  Labeled rows: %d\n", summary.LabeledRows)
	fmt.Printf("  Positives:    %d\n", summary.Positives)
	fmt.Printf("  Model:        %s\n\n", summary.ModelPath)

	fmt.Println(summary.Report.String())

	fmt.Println("Feature importances:")
	for _, imp := range summary.Importances {
		fmt.Printf("  %-20s %.4f\n", imp.Name, imp.Importance)
	}
}
