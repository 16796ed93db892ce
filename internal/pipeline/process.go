// Package pipeline orchestrates the offline stages: tick processing,
// classifier training and the forward test. Each stage is a small
// builder-configured runner so the commands stay thin.
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
	"github.com/ferranfont/AI-random-forest/internal/ingest"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/reporting"
	"github.com/ferranfont/AI-random-forest/internal/storage"
	"github.com/ferranfont/AI-random-forest/internal/window"
)

// Processor runs the tick processing stage: raw tick CSV in, processed
// feature CSV out.
type Processor struct {
	cfg          config.WindowConfig
	logger       *zap.Logger
	featureStore storage.TickFeatureStore
	sessionID    string
}

// ProcessSummary describes one processing run.
type ProcessSummary struct {
	RowsRead         int
	RowsKept         int
	DroppedTimestamp int
	OutputPath       string
}

// NewProcessor creates a processing stage runner.
func NewProcessor(cfg config.WindowConfig, logger *zap.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger}
}

// WithFeatureStore persists processed rows under sessionID in addition
// to the CSV output.
func (p *Processor) WithFeatureStore(store storage.TickFeatureStore, sessionID string) *Processor {
	p.featureStore = store
	p.sessionID = sessionID
	return p
}

// Run reads inputPath, computes trailing-window aggregates and writes
// the processed table to outputPath.
func (p *Processor) Run(ctx context.Context, inputPath, outputPath string) (*ProcessSummary, []*domain.ProcessedTick, error) {
	started := time.Now()

	ticks, stats, err := ingest.ReadTickFile(inputPath)
	if err != nil {
		observability.RecordPipelineRun("process", "error", time.Since(started).Seconds())
		return nil, nil, fmt.Errorf("read ticks: %w", err)
	}
	p.logger.Info("ticks loaded",
		zap.String("input", inputPath),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("rows_kept", stats.RowsKept),
		zap.Int("dropped_timestamp", stats.DroppedTimestamp),
	)
	observability.DefaultMetrics.TicksIngested.Add(float64(stats.RowsKept))
	if stats.DroppedTimestamp > 0 {
		observability.DefaultMetrics.RowsDropped.WithLabelValues("bad_timestamp").Add(float64(stats.DroppedTimestamp))
	}
	for field, n := range stats.FieldErrors {
		observability.DefaultMetrics.TickParsingErrors.WithLabelValues(field).Add(float64(n))
	}

	ingest.SortTicks(ticks)

	rows, err := window.Compute(p.cfg, ticks)
	if err != nil {
		observability.RecordPipelineRun("process", "error", time.Since(started).Seconds())
		return nil, nil, fmt.Errorf("compute windows: %w", err)
	}
	observability.DefaultMetrics.RowsProcessed.Add(float64(len(rows)))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	csvOut := reporting.RenderProcessedCSV(rows)
	if err := os.WriteFile(outputPath, []byte(csvOut), 0644); err != nil {
		observability.RecordPipelineRun("process", "error", time.Since(started).Seconds())
		return nil, nil, fmt.Errorf("write processed csv: %w", err)
	}

	if p.featureStore != nil {
		if err := p.featureStore.InsertBulk(ctx, p.sessionID, rows); err != nil {
			observability.RecordPipelineRun("process", "error", time.Since(started).Seconds())
			return nil, nil, fmt.Errorf("persist processed rows: %w", err)
		}
		p.logger.Info("processed rows persisted",
			zap.String("session_id", p.sessionID),
			zap.Int("rows", len(rows)),
		)
	}

	observability.RecordPipelineRun("process", "success", time.Since(started).Seconds())
	p.logger.Info("processing complete",
		zap.String("output", outputPath),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &ProcessSummary{
		RowsRead:         stats.RowsRead,
		RowsKept:         stats.RowsKept,
		DroppedTimestamp: stats.DroppedTimestamp,
		OutputPath:       outputPath,
	}, rows, nil
}
