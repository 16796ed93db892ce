// Package features builds the ML feature table from a processed tick
// table: lagged burst factors, rolling mean/std and price velocity, all
// in row-sequence order (not wall-clock time).
package features

import (
	"fmt"
	"math"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// Build produces one FeatureRow per input row that has full lag and
// rolling history. With defaults (lag depth 5, rolling window 5) the
// output has exactly N-5 rows for N clean inputs; rows whose price (or
// whose velocity reference price) is missing are dropped as well, the
// way NaN propagation shrinks the original table.
func Build(cfg config.FeatureConfig, rows []*domain.ProcessedTick) []*domain.FeatureRow {
	n := len(rows)
	start := cfg.LagDepth
	if cfg.RollingWindow > start {
		start = cfg.RollingWindow
	}
	if n <= start {
		return nil
	}

	// Null prices become NaN so gaps propagate into velocity exactly
	// once, then drop the affected rows.
	price := make([]float64, n)
	factor := make([]float64, n)
	for i, r := range rows {
		if r.Price != nil {
			price[i] = *r.Price
		} else {
			price[i] = math.NaN()
		}
		factor[i] = r.FactorTPS
	}

	out := make([]*domain.FeatureRow, 0, n-start)
	for i := start; i < n; i++ {
		velocity := price[i] - price[i-cfg.RollingWindow]
		if math.IsNaN(price[i]) || math.IsNaN(velocity) {
			continue
		}

		lags := make([]float64, cfg.LagDepth)
		for k := 1; k <= cfg.LagDepth; k++ {
			lags[k-1] = factor[i-k]
		}

		mean, std := rollingStats(factor[i-cfg.RollingWindow+1 : i+1])

		out = append(out, &domain.FeatureRow{
			Timestamp:     rows[i].Timestamp,
			Price:         price[i],
			FactorTPS:     factor[i],
			FactorTPSLag:  lags,
			FactorTPSMean: mean,
			FactorTPSStd:  std,
			PriceVelocity: velocity,
		})
	}
	return out
}

// rollingStats returns mean and sample standard deviation (n-1
// denominator) of the window. Fewer than 2 values yields std 0, never
// an undefined value.
func rollingStats(window []float64) (mean, std float64) {
	n := len(window)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0
	}
	sumSq := 0.0
	for _, v := range window {
		diff := v - mean
		sumSq += diff * diff
	}
	return mean, math.Sqrt(sumSq / float64(n-1))
}

// Columns returns the engineered column names in vector order. The
// trainer selects its feature set from these by name.
func Columns(cfg config.FeatureConfig) []string {
	cols := []string{"factor_tps"}
	for k := 1; k <= cfg.LagDepth; k++ {
		cols = append(cols, fmt.Sprintf("factor_tps_lag_%d", k))
	}
	cols = append(cols,
		fmt.Sprintf("factor_tps_mean_%d", cfg.RollingWindow),
		fmt.Sprintf("factor_tps_std_%d", cfg.RollingWindow),
		fmt.Sprintf("price_velocity_%d", cfg.RollingWindow),
	)
	return cols
}

// Vector returns the row's values aligned with Columns.
func Vector(r *domain.FeatureRow) []float64 {
	v := make([]float64, 0, len(r.FactorTPSLag)+4)
	v = append(v, r.FactorTPS)
	v = append(v, r.FactorTPSLag...)
	v = append(v, r.FactorTPSMean, r.FactorTPSStd, r.PriceVelocity)
	return v
}
