package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferranfont/AI-random-forest/internal/config"
	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/logging"
	"github.com/ferranfont/AI-random-forest/internal/storage/memory"
)

var detectorStart = time.Date(2025, 11, 4, 9, 30, 0, 0, time.UTC)

func liveTick(offset time.Duration, price, vol float64) *domain.Tick {
	p, v := price, vol
	return &domain.Tick{
		Timestamp: detectorStart.Add(offset),
		Price:     &p,
		Volume:    &v,
		Side:      domain.SideBuy,
	}
}

// burstTicks returns n ticks 5ms apart with volume 100 each. With the
// default half-second volume window the factor blows past the threshold
// from the second tick on.
func burstTicks(base time.Duration, n int) []*domain.Tick {
	ticks := make([]*domain.Tick, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, liveTick(base+time.Duration(i)*5*time.Millisecond, 100, 100))
	}
	return ticks
}

func TestDetectorOneSignalPerBurst(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ctx := context.Background()

	var signals []*domain.Signal
	for _, tk := range burstTicks(0, 10) {
		if sig := d.Process(ctx, tk); sig != nil {
			signals = append(signals, sig)
		}
	}
	require.Len(t, signals, 1, "a sustained burst emits a single signal")
	assert.Equal(t, detectorStart.Add(5*time.Millisecond), signals[0].Timestamp,
		"fires on the first tick whose factor crosses the threshold")
	assert.Greater(t, signals[0].FactorTPS, 4000.0)
	assert.Equal(t, domain.SignalSourceLive, signals[0].Source)
	assert.NotEmpty(t, signals[0].SignalID)
}

func TestDetectorRearmsAfterQuietPeriod(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ctx := context.Background()

	count := 0
	for _, tk := range burstTicks(0, 10) {
		if d.Process(ctx, tk) != nil {
			count++
		}
	}
	require.Equal(t, 1, count)

	// A quiet tick 20s later drops the factor to zero and re-arms.
	assert.Nil(t, d.Process(ctx, liveTick(20*time.Second, 100, 10)))

	for _, tk := range burstTicks(30*time.Second, 10) {
		if d.Process(ctx, tk) != nil {
			count++
		}
	}
	assert.Equal(t, 2, count, "a second burst emits a second signal")
}

func TestDetectorPersistsSignals(t *testing.T) {
	store := memory.NewSignalStore()
	fixed := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	d := NewDetector(config.Default(), logging.NewNop()).
		WithSignalStore(store).
		WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	for _, tk := range burstTicks(0, 10) {
		d.Process(ctx, tk)
	}

	stored, err := store.GetBySource(ctx, domain.SignalSourceLive)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, fixed, stored[0].DetectedAt)
}

func TestDetectorNilPriceSignal(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ctx := context.Background()

	vol := 100.0
	first := liveTick(0, 100, 100)
	second := &domain.Tick{
		Timestamp: detectorStart.Add(5 * time.Millisecond),
		Volume:    &vol,
		Side:      domain.SideBuy,
	}

	assert.Nil(t, d.Process(ctx, first))
	sig := d.Process(ctx, second)
	require.NotNil(t, sig, "a priceless tick can still cross the factor threshold")
	assert.Equal(t, 0.0, sig.Price)
}

func TestDetectorSignalVelocity(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ctx := context.Background()

	// Six sparse ticks fill the velocity buffer while staying quiet.
	for i := 0; i < 6; i++ {
		tk := liveTick(time.Duration(i)*time.Second, 100+float64(i), 10)
		require.Nil(t, d.Process(ctx, tk))
	}

	// The burst starts well past the rate window, so the sparse ticks
	// no longer dilute the tick rate.
	var sig *domain.Signal
	for _, tk := range burstTicks(30*time.Second, 5) {
		if s := d.Process(ctx, tk); s != nil {
			sig = s
		}
	}
	require.NotNil(t, sig)
	// The signal fires on the second burst tick. Its trailing window
	// spans the 102 sparse price to the 100 burst price.
	assert.Equal(t, -2.0, sig.PriceVelocity)
}

func TestLastPrices(t *testing.T) {
	l := lastPrices{window: 3}

	for i, p := range []float64{1, 2, 3} {
		_, ok := l.push(p)
		assert.False(t, ok, "push %d should not fill the buffer yet", i)
	}

	v, ok := l.push(9)
	require.True(t, ok)
	assert.Equal(t, 8.0, v)

	v, ok = l.push(10)
	require.True(t, ok)
	assert.Equal(t, 8.0, v, "window slides by one price")
}

func TestDetectorRunDrainsChannel(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ticks := make(chan *domain.Tick)
	done := make(chan error, 1)

	go func() { done <- d.Run(context.Background(), ticks) }()

	for _, tk := range burstTicks(0, 10) {
		ticks <- tk
	}
	close(ticks)

	var signals []*domain.Signal
	for sig := range d.Signals() {
		signals = append(signals, sig)
	}
	assert.Len(t, signals, 1)
	assert.NoError(t, <-done)
}

func TestDetectorRunStopsOnContextCancel(t *testing.T) {
	d := NewDetector(config.Default(), logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan *domain.Tick)
	done := make(chan error, 1)

	go func() { done <- d.Run(ctx, ticks) }()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}
