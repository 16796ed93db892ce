package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

func mkSignal(id string, sec int, source string) *domain.Signal {
	return &domain.Signal{
		SignalID:  id,
		Timestamp: time.Date(2025, 11, 4, 9, 30, sec, 0, time.UTC),
		Price:     100,
		FactorTPS: 5000,
		Source:    source,
	}
}

func TestSignalStoreInsertAndGet(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	sig := mkSignal("abc", 0, domain.SignalSourceLive)
	require.NoError(t, s.Insert(ctx, sig))

	got, err := s.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, sig.Timestamp, got.Timestamp)

	// Mutating the returned copy must not touch the stored value.
	got.Price = 999
	again, err := s.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Price)
}

func TestSignalStoreDuplicate(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, mkSignal("abc", 0, domain.SignalSourceLive)))
	err := s.Insert(ctx, mkSignal("abc", 1, domain.SignalSourceLive))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStoreInvalidInput(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Insert(ctx, &domain.Signal{}), storage.ErrInvalidInput)
}

func TestSignalStoreGetByIDNotFound(t *testing.T) {
	s := NewSignalStore()
	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStoreInsertBulkAtomicity(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, mkSignal("dup", 0, domain.SignalSourceLive)))

	err := s.InsertBulk(ctx, []*domain.Signal{
		mkSignal("new1", 1, domain.SignalSourceLive),
		mkSignal("dup", 2, domain.SignalSourceLive),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = s.GetByID(ctx, "new1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "a failed batch must insert nothing")
}

func TestSignalStoreInsertBulkIntraBatchDuplicate(t *testing.T) {
	s := NewSignalStore()
	err := s.InsertBulk(context.Background(), []*domain.Signal{
		mkSignal("x", 0, domain.SignalSourceLive),
		mkSignal("x", 1, domain.SignalSourceLive),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStoreGetBySourceOrdered(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, s.InsertBulk(ctx, []*domain.Signal{
		mkSignal("c", 30, domain.SignalSourceLive),
		mkSignal("a", 10, domain.SignalSourceLive),
		mkSignal("b", 20, domain.SignalSourceForwardTest),
	}))

	live, err := s.GetBySource(ctx, domain.SignalSourceLive)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "a", live[0].SignalID)
	assert.Equal(t, "c", live[1].SignalID)
}

func TestSignalStoreGetByTimeRangeInclusive(t *testing.T) {
	s := NewSignalStore()
	ctx := context.Background()

	require.NoError(t, s.InsertBulk(ctx, []*domain.Signal{
		mkSignal("a", 10, domain.SignalSourceLive),
		mkSignal("b", 20, domain.SignalSourceLive),
		mkSignal("c", 30, domain.SignalSourceLive),
	}))

	got, err := s.GetByTimeRange(ctx,
		time.Date(2025, 11, 4, 9, 30, 10, 0, time.UTC),
		time.Date(2025, 11, 4, 9, 30, 20, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, got, 2, "both boundary timestamps are included")
	assert.Equal(t, "a", got[0].SignalID)
	assert.Equal(t, "b", got[1].SignalID)
}
