// Package label attaches the heuristic initiation label: a burst
// (factor_tps above threshold) followed by a significant price move in
// either direction within the forward window.
//
// The label looks into future rows and is strictly an offline,
// training-time artifact. It must never run against a live stream.
package label

import (
	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// Apply labels every row that has a complete forward window. The window
// spans the FutureWindow rows after the current row, exclusive of the
// row itself. The final FutureWindow rows have no complete window and
// are dropped rather than zero-filled.
//
// A row is an initiation iff factor_tps > TPSThreshold (strict) and
// max_future_move >= PriceMoveThreshold (inclusive).
func Apply(cfg config.LabelConfig, rows []*domain.FeatureRow) []*domain.LabeledRow {
	n := len(rows)
	if n <= cfg.FutureWindow {
		return nil
	}

	out := make([]*domain.LabeledRow, 0, n-cfg.FutureWindow)
	for i := 0; i+cfg.FutureWindow < n; i++ {
		fmax := rows[i+1].Price
		fmin := rows[i+1].Price
		for j := i + 2; j <= i+cfg.FutureWindow; j++ {
			p := rows[j].Price
			if p > fmax {
				fmax = p
			}
			if p < fmin {
				fmin = p
			}
		}

		moveUp := fmax - rows[i].Price
		moveDown := rows[i].Price - fmin
		maxMove := moveUp
		if moveDown > maxMove {
			maxMove = moveDown
		}

		out = append(out, &domain.LabeledRow{
			FeatureRow:     *rows[i],
			FuturePriceMax: fmax,
			FuturePriceMin: fmin,
			MaxFutureMove:  maxMove,
			IsInitiation:   rows[i].FactorTPS > cfg.TPSThreshold && maxMove >= cfg.PriceMoveThreshold,
		})
	}
	return out
}

// CountPositives returns how many rows are labeled initiations. The
// trainer refuses an all-negative set, so callers check this first.
func CountPositives(rows []*domain.LabeledRow) int {
	count := 0
	for _, r := range rows {
		if r.IsInitiation {
			count++
		}
	}
	return count
}
