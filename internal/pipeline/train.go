package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/features"
	"github.com/ferranfont/AI-random-forest/internal/ingest"
	"github.com/ferranfont/AI-random-forest/internal/label"
	"github.com/ferranfont/AI-random-forest/internal/model"
	"github.com/ferranfont/AI-random-forest/internal/observability"
)

// Trainer runs the training stage: processed feature CSV in, fitted
// model JSON plus evaluation report out.
type Trainer struct {
	cfg    config.Config
	logger *zap.Logger
}

// TrainSummary describes one training run.
type TrainSummary struct {
	FeatureRows int
	LabeledRows int
	Positives   int
	Report      model.ClassificationReport
	Importances []model.FeatureImportance
	ModelPath   string
}

// NewTrainer creates a training stage runner.
func NewTrainer(cfg config.Config, logger *zap.Logger) *Trainer {
	return &Trainer{cfg: cfg, logger: logger}
}

// Run reads the processed table, builds the temporal feature table,
// labels it, fits the forest and writes the model to modelPath.
func (t *Trainer) Run(_ context.Context, processedPath, modelPath string) (*TrainSummary, error) {
	started := time.Now()

	rows, err := ingest.ReadProcessedFile(processedPath)
	if err != nil {
		observability.RecordPipelineRun("train", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("read processed table: %w", err)
	}

	featureRows := features.Build(t.cfg.Feature, rows)
	labeled := label.Apply(t.cfg.Label, featureRows)
	positives := label.CountPositives(labeled)
	observability.DefaultMetrics.RowsLabeled.Add(float64(len(labeled)))

	t.logger.Info("training table built",
		zap.Int("processed_rows", len(rows)),
		zap.Int("feature_rows", len(featureRows)),
		zap.Int("labeled_rows", len(labeled)),
		zap.Int("positives", positives),
	)

	if positives == 0 {
		observability.RecordPipelineRun("train", "error", time.Since(started).Seconds())
		return nil, model.ErrNoPositiveLabels
	}

	columns := features.Columns(t.cfg.Feature)
	names, idx := model.SelectFeatures(columns)

	X := make([][]float64, len(labeled))
	y := make([]int, len(labeled))
	for i, r := range labeled {
		X[i] = model.Project(features.Vector(&r.FeatureRow), idx)
		if r.IsInitiation {
			y[i] = 1
		}
	}

	result, err := model.Train(model.TrainParams{
		Trees:        t.cfg.Model.Trees,
		MaxDepth:     t.cfg.Model.MaxDepth,
		Seed:         t.cfg.Model.Seed,
		TestFraction: t.cfg.Model.TestFraction,
	}, names, X, y)
	if err != nil {
		observability.RecordPipelineRun("train", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(modelPath), 0755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	if err := model.Save(modelPath, result.Forest); err != nil {
		observability.RecordPipelineRun("train", "error", time.Since(started).Seconds())
		return nil, err
	}
	observability.DefaultMetrics.ModelsTrained.Inc()
	observability.RecordPipelineRun("train", "success", time.Since(started).Seconds())

	t.logger.Info("model trained",
		zap.String("model", modelPath),
		zap.Float64("accuracy", result.Report.Accuracy),
		zap.Float64("positive_recall", result.Report.Positive.Recall),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &TrainSummary{
		FeatureRows: len(featureRows),
		LabeledRows: len(labeled),
		Positives:   positives,
		Report:      result.Report,
		Importances: result.Importances,
		ModelPath:   modelPath,
	}, nil
}

// LabeledTable is a convenience for tooling that wants the labeled rows
// without fitting a model.
func (t *Trainer) LabeledTable(rows []*domain.ProcessedTick) []*domain.LabeledRow {
	return label.Apply(t.cfg.Label, features.Build(t.cfg.Feature, rows))
}

// IsNoPositives reports whether err is the all-negative training error.
func IsNoPositives(err error) bool {
	return errors.Is(err, model.ErrNoPositiveLabels)
}
