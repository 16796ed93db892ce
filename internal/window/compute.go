package window

import (
	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/ingest"
)

// Compute runs the batch pass: every tick gets its trailing-window
// aggregates. Input must already be sorted by timestamp; a table out of
// order is a caller bug and fails loudly rather than producing a
// silently wrong feature table.
func Compute(cfg config.WindowConfig, ticks []*domain.Tick) ([]*domain.ProcessedTick, error) {
	if err := ingest.ValidateOrdering(ticks); err != nil {
		return nil, err
	}

	engine := NewEngine(cfg)
	rows := make([]*domain.ProcessedTick, len(ticks))
	for i, t := range ticks {
		f := engine.Push(t)
		rows[i] = &domain.ProcessedTick{
			Tick:           *t,
			WindowVol:      f.WindowVol,
			WindowCount:    f.WindowCount,
			WindowDuration: f.WindowDuration,
			TPSWindow:      f.TPSWindow,
			FactorTPS:      f.FactorTPS,
		}
	}
	return rows, nil
}
