// Package window computes trailing time-window aggregates per tick:
// volume in the last volume window, instantaneous tick rate over the
// last rate window, and their composite burst factor.
//
// A single incremental Engine backs both the offline batch pass and the
// live feed, so the two produce identical values for the same tick
// sequence. Each window is a pair of head pointers over one shared
// append-only queue; every tick is appended once and evicted at most
// once per window, O(n) amortized over the run.
package window

import (
	"math"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// minRateDuration is the duration floor, in seconds, below which the
// tick rate reports zero. Inherited from the live client's behavior on
// near-simultaneous bursts; downstream thresholds are tuned against it,
// so it is preserved even though it under-counts true burst speed.
const minRateDuration = 0.001

// Features are the aggregates attached to one tick.
type Features struct {
	WindowVol      float64
	WindowCount    int
	WindowDuration float64 // seconds
	TPSWindow      float64
	FactorTPS      float64
}

type entry struct {
	ts  int64 // unix nanos
	vol float64
}

// Engine is the incremental window state. Ticks must be pushed in
// non-decreasing timestamp order; Compute enforces this for batch runs
// and the live feed delivers in arrival order by construction.
type Engine struct {
	volWindowNs  int64
	rateWindowNs int64

	entries  []entry
	volHead  int
	rateHead int
	volSum   float64
}

// NewEngine creates an engine for the given window configuration.
func NewEngine(cfg config.WindowConfig) *Engine {
	return &Engine{
		volWindowNs:  cfg.VolumeWindowMs * int64(time.Millisecond),
		rateWindowNs: cfg.RateWindowSec * int64(time.Second),
	}
}

// Push feeds one tick and returns its window features. A nil volume
// contributes 0 to the window sum; the tick still counts toward the
// rate window.
func (e *Engine) Push(t *domain.Tick) Features {
	ts := t.Timestamp.UnixNano()
	vol := 0.0
	if t.Volume != nil {
		vol = *t.Volume
	}

	e.entries = append(e.entries, entry{ts: ts, vol: vol})
	e.volSum += vol

	// Evict everything at or before the left edge. Both windows are
	// right-closed, left-open: (T - window, T].
	volEdge := ts - e.volWindowNs
	for e.volHead < len(e.entries) && e.entries[e.volHead].ts <= volEdge {
		e.volSum -= e.entries[e.volHead].vol
		e.volHead++
	}
	rateEdge := ts - e.rateWindowNs
	for e.rateHead < len(e.entries) && e.entries[e.rateHead].ts <= rateEdge {
		e.rateHead++
	}
	e.compact()

	count := len(e.entries) - e.rateHead
	oldest := e.entries[e.rateHead].ts
	duration := float64(ts-oldest) / float64(time.Second)

	tps := rate(count, duration)
	f := Features{
		WindowVol:      e.volSum,
		WindowCount:    count,
		WindowDuration: duration,
		TPSWindow:      tps,
		FactorTPS:      Round2(e.volSum * tps),
	}
	return f
}

// rate applies the exact live-client rate policy: count <= 1 or a
// near-zero window duration reports 0, otherwise count/duration,
// rounded to 2 decimals.
func rate(count int, duration float64) float64 {
	if count <= 1 {
		return 0
	}
	if duration <= minRateDuration {
		return 0
	}
	return Round2(float64(count) / duration)
}

// compact reclaims evicted entries once both heads have moved past a
// sizeable dead prefix, keeping Push O(1) amortized without unbounded
// memory growth on long live sessions.
func (e *Engine) compact() {
	head := e.volHead
	if e.rateHead < head {
		head = e.rateHead
	}
	if head < 1024 || head < len(e.entries)/2 {
		return
	}
	n := copy(e.entries, e.entries[head:])
	e.entries = e.entries[:n]
	e.volHead -= head
	e.rateHead -= head
}

// Round2 rounds to 2 decimal places, the precision of the exported
// tps_window and factor_tps columns.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
