package storage

import (
	"context"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// TickFeatureStore persists processed tick rows (tick + window
// features) for a trading session.
type TickFeatureStore interface {
	// InsertBulk adds multiple rows for a session. Fails the entire
	// batch on a duplicate (session_id, timestamp, row ordinal).
	InsertBulk(ctx context.Context, sessionID string, rows []*domain.ProcessedTick) error

	// GetBySessionID retrieves all rows for a session, ordered by
	// timestamp ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.ProcessedTick, error)

	// GetByTimeRange retrieves session rows within [start, end] inclusive.
	GetByTimeRange(ctx context.Context, sessionID string, start, end time.Time) ([]*domain.ProcessedTick, error)
}

// SignalStore persists detected initiation signals.
type SignalStore interface {
	// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// InsertBulk adds multiple signals atomically. Fails the entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, signals []*domain.Signal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetBySource retrieves all signals from a source, ordered by
	// timestamp ASC.
	GetBySource(ctx context.Context, source string) ([]*domain.Signal, error)

	// GetByTimeRange retrieves signals within [start, end] inclusive,
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Signal, error)
}
