package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const insertSignalQuery = `
	INSERT INTO signals (
		signal_id, timestamp, price, factor_tps, tps_window,
		probability, price_velocity, source, detected_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	started := time.Now()
	_, err := s.pool.Exec(ctx, insertSignalQuery,
		sig.SignalID,
		sig.Timestamp,
		sig.Price,
		sig.FactorTPS,
		sig.TPSWindow,
		sig.Probability,
		sig.PriceVelocity,
		sig.Source,
		sig.DetectedAt,
	)
	observability.RecordDBQuery("postgres", "insert_signal", time.Since(started).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// InsertBulk adds multiple signals atomically. Fails entire batch on any duplicate.
func (s *SignalStore) InsertBulk(ctx context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	started := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sig := range signals {
		if sig == nil || sig.SignalID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertSignalQuery,
			sig.SignalID,
			sig.Timestamp,
			sig.Price,
			sig.FactorTPS,
			sig.TPSWindow,
			sig.Probability,
			sig.PriceVelocity,
			sig.Source,
			sig.DetectedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert signal in bulk: %w", err)
		}
	}

	err = tx.Commit(ctx)
	observability.RecordDBQuery("postgres", "insert_signals_bulk", time.Since(started).Seconds(), err)
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if absent.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `
		SELECT signal_id, timestamp, price, factor_tps, tps_window,
		       probability, price_velocity, source, detected_at
		FROM signals
		WHERE signal_id = $1
	`

	started := time.Now()
	var sig domain.Signal
	err := s.pool.QueryRow(ctx, query, signalID).Scan(
		&sig.SignalID,
		&sig.Timestamp,
		&sig.Price,
		&sig.FactorTPS,
		&sig.TPSWindow,
		&sig.Probability,
		&sig.PriceVelocity,
		&sig.Source,
		&sig.DetectedAt,
	)
	observability.RecordDBQuery("postgres", "get_signal", time.Since(started).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}

	return &sig, nil
}

// GetBySource retrieves all signals from a source, ordered by timestamp ASC.
func (s *SignalStore) GetBySource(ctx context.Context, source string) ([]*domain.Signal, error) {
	query := `
		SELECT signal_id, timestamp, price, factor_tps, tps_window,
		       probability, price_velocity, source, detected_at
		FROM signals
		WHERE source = $1
		ORDER BY timestamp ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("get signals by source: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetByTimeRange retrieves signals within [start, end] (inclusive).
func (s *SignalStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Signal, error) {
	query := `
		SELECT signal_id, timestamp, price, factor_tps, tps_window,
		       probability, price_velocity, source, detected_at
		FROM signals
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get signals by time range: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var sig domain.Signal

		err := rows.Scan(
			&sig.SignalID,
			&sig.Timestamp,
			&sig.Price,
			&sig.FactorTPS,
			&sig.TPSWindow,
			&sig.Probability,
			&sig.PriceVelocity,
			&sig.Source,
			&sig.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
