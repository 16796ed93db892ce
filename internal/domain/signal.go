package domain

import "time"

// Signal source values.
const (
	SignalSourceLive        = "LIVE"
	SignalSourceForwardTest = "FORWARD_TEST"
)

// Signal is a detected initiation candidate. Live signals carry no
// probability (threshold-only detection); forward-test signals carry the
// classifier's probability of the positive class.
type Signal struct {
	SignalID      string // deterministic hash, base58
	Timestamp     time.Time
	Price         float64
	FactorTPS     float64
	TPSWindow     float64
	Probability   float64
	PriceVelocity float64
	Source        string
	DetectedAt    time.Time
}
