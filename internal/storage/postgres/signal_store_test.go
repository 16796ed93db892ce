package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/storage"
	pgstore "github.com/ferranfont/AI-random-forest/internal/storage/postgres"
)

func testSignal(id string, sec int, source string) *domain.Signal {
	return &domain.Signal{
		SignalID:      id,
		Timestamp:     time.Date(2025, 11, 4, 9, 30, sec, 0, time.UTC),
		Price:         6860.5,
		FactorTPS:     5120.4,
		TPSWindow:     34.02,
		Probability:   0.82,
		PriceVelocity: 1.75,
		Source:        source,
		DetectedAt:    time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestSignalStoreInsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	sig := testSignal("sig-1", 0, domain.SignalSourceLive)
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(sig.Timestamp))
	assert.Equal(t, sig.Price, got.Price)
	assert.Equal(t, sig.FactorTPS, got.FactorTPS)
	assert.Equal(t, sig.Probability, got.Probability)
	assert.Equal(t, sig.Source, got.Source)
}

func TestSignalStoreInsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("sig-1", 0, domain.SignalSourceLive)))
	err := store.Insert(ctx, testSignal("sig-1", 1, domain.SignalSourceLive))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStoreInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Signal{}), storage.ErrInvalidInput)
}

func TestSignalStoreGetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStoreInsertBulkRollsBackOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testSignal("dup", 0, domain.SignalSourceLive)))

	err := store.InsertBulk(ctx, []*domain.Signal{
		testSignal("fresh", 1, domain.SignalSourceLive),
		testSignal("dup", 2, domain.SignalSourceLive),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "fresh")
	assert.ErrorIs(t, err, storage.ErrNotFound, "failed batch must leave no rows behind")
}

func TestSignalStoreGetBySource(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Signal{
		testSignal("live-b", 20, domain.SignalSourceLive),
		testSignal("live-a", 10, domain.SignalSourceLive),
		testSignal("fwd-a", 15, domain.SignalSourceForwardTest),
	}))

	live, err := store.GetBySource(ctx, domain.SignalSourceLive)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "live-a", live[0].SignalID, "ordered by timestamp")
	assert.Equal(t, "live-b", live[1].SignalID)

	fwd, err := store.GetBySource(ctx, domain.SignalSourceForwardTest)
	require.NoError(t, err)
	require.Len(t, fwd, 1)
}

func TestSignalStoreGetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewSignalStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Signal{
		testSignal("a", 10, domain.SignalSourceLive),
		testSignal("b", 20, domain.SignalSourceLive),
		testSignal("c", 30, domain.SignalSourceLive),
	}))

	got, err := store.GetByTimeRange(ctx,
		time.Date(2025, 11, 4, 9, 30, 10, 0, time.UTC),
		time.Date(2025, 11, 4, 9, 30, 20, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, got, 2, "both range boundaries are included")
	assert.Equal(t, "a", got[0].SignalID)
	assert.Equal(t, "b", got[1].SignalID)
}
