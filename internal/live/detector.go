package live

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/idhash"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/storage"
	"github.com/ferranfont/AI-random-forest/internal/window"
)

// Detector runs threshold detection over a live tick stream. It never
// computes labels or forward-looking values; every signal uses only
// ticks at or before its own timestamp.
type Detector struct {
	cfg         config.Config
	logger      *zap.Logger
	engine      *window.Engine
	signalStore storage.SignalStore
	clock       func() time.Time

	// armed gates signal emission: one signal per burst, re-armed when
	// the factor falls back under the threshold.
	armed bool

	lastVelocity lastPrices
	signalsOut   chan *domain.Signal
}

// lastPrices tracks the trailing prices needed for price velocity.
type lastPrices struct {
	window int
	buf    []float64
}

func (l *lastPrices) push(p float64) (velocity float64, ok bool) {
	l.buf = append(l.buf, p)
	if len(l.buf) > l.window+1 {
		l.buf = l.buf[1:]
	}
	if len(l.buf) < l.window+1 {
		return 0, false
	}
	return l.buf[l.window] - l.buf[0], true
}

// NewDetector creates a live detector with a fresh window engine.
func NewDetector(cfg config.Config, logger *zap.Logger) *Detector {
	return &Detector{
		cfg:          cfg,
		logger:       logger,
		engine:       window.NewEngine(cfg.Window),
		clock:        func() time.Time { return time.Now().UTC() },
		armed:        true,
		lastVelocity: lastPrices{window: cfg.Feature.RollingWindow},
		signalsOut:   make(chan *domain.Signal, 256),
	}
}

// WithSignalStore persists every detected signal.
func (d *Detector) WithSignalStore(store storage.SignalStore) *Detector {
	d.signalStore = store
	return d
}

// WithClock sets a custom clock for deterministic DetectedAt values.
func (d *Detector) WithClock(clock func() time.Time) *Detector {
	d.clock = clock
	return d
}

// Signals returns the detected signal channel. Closed when Run returns.
func (d *Detector) Signals() <-chan *domain.Signal {
	return d.signalsOut
}

// Run consumes ticks until the channel closes or ctx is cancelled.
func (d *Detector) Run(ctx context.Context, ticks <-chan *domain.Tick) error {
	defer close(d.signalsOut)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			if sig := d.Process(ctx, t); sig != nil {
				select {
				case d.signalsOut <- sig:
				default:
					// A full consumer loses the oldest notification,
					// never the persisted record.
					d.logger.Warn("signal channel full, dropping notification",
						zap.String("signal_id", sig.SignalID))
				}
			}
		}
	}
}

// Process pushes one tick through the engine and returns a signal when
// the burst factor crosses the threshold. One signal per burst: the
// detector re-arms only after the factor drops back under the threshold.
func (d *Detector) Process(ctx context.Context, t *domain.Tick) *domain.Signal {
	f := d.engine.Push(t)

	observability.DefaultMetrics.CurrentFactorTPS.Set(f.FactorTPS)
	observability.DefaultMetrics.CurrentTPSWindow.Set(f.TPSWindow)

	var velocity float64
	if t.Price != nil {
		velocity, _ = d.lastVelocity.push(*t.Price)
	}

	if f.FactorTPS <= d.cfg.Label.TPSThreshold {
		d.armed = true
		return nil
	}
	if !d.armed {
		return nil
	}
	d.armed = false

	price := 0.0
	if t.Price != nil {
		price = *t.Price
	}

	sig := &domain.Signal{
		SignalID:      idhash.ComputeSignalID(domain.SignalSourceLive, t.Timestamp, price, f.FactorTPS),
		Timestamp:     t.Timestamp,
		Price:         price,
		FactorTPS:     f.FactorTPS,
		TPSWindow:     f.TPSWindow,
		PriceVelocity: velocity,
		Source:        domain.SignalSourceLive,
		DetectedAt:    d.clock(),
	}

	observability.RecordSignalDetected(domain.SignalSourceLive, float64(t.Timestamp.Unix()))
	d.logger.Info("initiation signal",
		zap.String("signal_id", sig.SignalID),
		zap.Time("timestamp", sig.Timestamp),
		zap.Float64("factor_tps", sig.FactorTPS),
		zap.Float64("price", sig.Price),
	)

	if d.signalStore != nil {
		if err := d.signalStore.Insert(ctx, sig); err != nil {
			d.logger.Error("persist signal", zap.Error(err),
				zap.String("signal_id", sig.SignalID))
		}
	}

	return sig
}
