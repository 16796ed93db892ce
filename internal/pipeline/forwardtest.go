package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/features"
	"github.com/ferranfont/AI-random-forest/internal/idhash"
	"github.com/ferranfont/AI-random-forest/internal/ingest"
	"github.com/ferranfont/AI-random-forest/internal/model"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/reporting"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

// signalProbability is the positive-class cutoff for the forward test.
const signalProbability = 0.5

// ForwardTester replays a processed session through a fitted model and
// exports the rows the model flags as initiations. Labels are never
// computed here; the stage sees only information available at each row.
type ForwardTester struct {
	cfg         config.Config
	logger      *zap.Logger
	signalStore storage.SignalStore
	clock       func() time.Time
}

// ForwardTestSummary describes one forward test run.
type ForwardTestSummary struct {
	FeatureRows int
	Signals     int
	OutputPath  string
}

// NewForwardTester creates a forward test runner.
func NewForwardTester(cfg config.Config, logger *zap.Logger) *ForwardTester {
	return &ForwardTester{
		cfg:    cfg,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// WithSignalStore persists detected signals in addition to the CSV export.
func (f *ForwardTester) WithSignalStore(store storage.SignalStore) *ForwardTester {
	f.signalStore = store
	return f
}

// WithClock sets a custom clock for deterministic DetectedAt values.
func (f *ForwardTester) WithClock(clock func() time.Time) *ForwardTester {
	f.clock = clock
	return f
}

// Run scores processedPath with the model at modelPath and writes
// flagged rows to signalsPath. When the processed table is missing and
// rawPath is non-empty, the processing stage runs first.
func (f *ForwardTester) Run(ctx context.Context, rawPath, processedPath, modelPath, signalsPath string) (*ForwardTestSummary, error) {
	started := time.Now()

	if _, err := os.Stat(processedPath); os.IsNotExist(err) {
		if rawPath == "" {
			return nil, fmt.Errorf("processed table %s does not exist and no raw input given", processedPath)
		}
		f.logger.Info("processed table missing, running processing stage",
			zap.String("raw", rawPath),
			zap.String("processed", processedPath),
		)
		proc := NewProcessor(f.cfg.Window, f.logger)
		if _, _, err := proc.Run(ctx, rawPath, processedPath); err != nil {
			return nil, err
		}
	}

	rows, err := ingest.ReadProcessedFile(processedPath)
	if err != nil {
		observability.RecordPipelineRun("forward_test", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("read processed table: %w", err)
	}

	forest, err := model.Load(modelPath)
	if err != nil {
		observability.RecordPipelineRun("forward_test", "error", time.Since(started).Seconds())
		return nil, err
	}

	featureRows := features.Build(f.cfg.Feature, rows)
	columns := features.Columns(f.cfg.Feature)
	_, idx := model.SelectFeatures(columns)

	var signals []*domain.Signal
	for _, r := range featureRows {
		proba := forest.PredictProba(model.Project(features.Vector(r), idx))
		if proba <= signalProbability {
			continue
		}

		sig := &domain.Signal{
			SignalID:      idhash.ComputeSignalID(domain.SignalSourceForwardTest, r.Timestamp, r.Price, r.FactorTPS),
			Timestamp:     r.Timestamp,
			Price:         r.Price,
			FactorTPS:     r.FactorTPS,
			Probability:   proba,
			PriceVelocity: r.PriceVelocity,
			Source:        domain.SignalSourceForwardTest,
			DetectedAt:    f.clock(),
		}
		signals = append(signals, sig)
		observability.RecordSignalDetected(domain.SignalSourceForwardTest, float64(r.Timestamp.Unix()))
	}

	if err := os.MkdirAll(filepath.Dir(signalsPath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	csvOut := reporting.RenderSignalsCSV(signals)
	if err := os.WriteFile(signalsPath, []byte(csvOut), 0644); err != nil {
		observability.RecordPipelineRun("forward_test", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("write signals csv: %w", err)
	}

	if f.signalStore != nil && len(signals) > 0 {
		if err := f.signalStore.InsertBulk(ctx, signals); err != nil {
			observability.RecordPipelineRun("forward_test", "error", time.Since(started).Seconds())
			return nil, fmt.Errorf("persist signals: %w", err)
		}
	}

	observability.RecordPipelineRun("forward_test", "success", time.Since(started).Seconds())
	f.logger.Info("forward test complete",
		zap.Int("feature_rows", len(featureRows)),
		zap.Int("signals", len(signals)),
		zap.String("output", signalsPath),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &ForwardTestSummary{
		FeatureRows: len(featureRows),
		Signals:     len(signals),
		OutputPath:  signalsPath,
	}, nil
}
