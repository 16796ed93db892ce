package domain

import "time"

// Side values as they appear in the raw feed. Anything else is passed
// through untouched; side is informational and never affects windowing.
const (
	SideBuy     = "BUY"
	SideSell    = "SELL"
	SideUnknown = "UNKNOWN"
)

// Tick is one trade observation. Numeric fields are nullable: an
// unparsable cell becomes nil rather than failing the row. Timestamp is
// never nil; rows without a valid timestamp are dropped at ingestion.
type Tick struct {
	Timestamp time.Time
	Price     *float64
	Volume    *float64
	Side      string
	Bid       *float64
	Ask       *float64
}

// ProcessedTick is a tick with its trailing-window aggregates attached.
// WindowCount and WindowDuration are intermediates of the rate
// computation; only WindowVol, TPSWindow and FactorTPS are exported to
// the processed CSV.
type ProcessedTick struct {
	Tick

	// WindowVol is the volume sum over (T - volume_window, T].
	WindowVol float64

	// WindowCount is the tick count over (T - rate_window, T].
	WindowCount int

	// WindowDuration is T minus the oldest tick in the rate window,
	// in seconds.
	WindowDuration float64

	// TPSWindow is the instantaneous tick rate, rounded to 2 decimals.
	TPSWindow float64

	// FactorTPS = round(WindowVol * TPSWindow, 2).
	FactorTPS float64
}

// FeatureRow is one row of the ML feature table. Rows with insufficient
// lag/rolling history never make it into a FeatureRow slice.
type FeatureRow struct {
	Timestamp time.Time
	Price     float64

	FactorTPS     float64
	FactorTPSLag  []float64 // lag 1..lag_depth, index 0 = lag 1
	FactorTPSMean float64   // trailing rolling mean
	FactorTPSStd  float64   // trailing sample std, 0 when undefined
	PriceVelocity float64   // price diff over the rolling span
}

// LabeledRow is a feature row with the forward-looking label attached.
// Labels require future ticks and exist only in offline runs.
type LabeledRow struct {
	FeatureRow

	FuturePriceMax float64
	FuturePriceMin float64
	MaxFutureMove  float64
	IsInitiation   bool
}
