package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/observability"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

// TickFeatureStore implements storage.TickFeatureStore using ClickHouse.
type TickFeatureStore struct {
	conn *Conn
}

// NewTickFeatureStore creates a new TickFeatureStore.
func NewTickFeatureStore(conn *Conn) *TickFeatureStore {
	return &TickFeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickFeatureStore = (*TickFeatureStore)(nil)

// InsertBulk adds multiple rows for a session. Fails the entire batch
// when the session already holds rows at the same ordinals.
// ClickHouse MergeTree does not enforce uniqueness, so the check runs
// against the current row count before the batch insert.
func (s *TickFeatureStore) InsertBulk(ctx context.Context, sessionID string, rows []*domain.ProcessedTick) error {
	if sessionID == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	started := time.Now()
	base, err := s.sessionCount(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("count session rows: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tick_features (
			session_id, ordinal, ts, price, volume, side, bid, ask,
			window_vol, tps_window, factor_tps
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			sessionID, uint32(base+i), r.Timestamp,
			r.Price, r.Volume, r.Side, r.Bid, r.Ask,
			r.WindowVol, r.TPSWindow, r.FactorTPS,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_tick_features", time.Since(started).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionID retrieves all rows for a session, ordered by timestamp ASC.
func (s *TickFeatureStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.ProcessedTick, error) {
	query := `
		SELECT ts, price, volume, side, bid, ask,
		       window_vol, tps_window, factor_tps
		FROM tick_features
		WHERE session_id = ?
		ORDER BY ts ASC, ordinal ASC
	`

	started := time.Now()
	rows, err := s.conn.Query(ctx, query, sessionID)
	observability.RecordDBQuery("clickhouse", "get_session_rows", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by session id: %w", err)
	}
	defer rows.Close()

	return scanTickFeatures(rows)
}

// GetByTimeRange retrieves session rows within [start, end] (inclusive).
func (s *TickFeatureStore) GetByTimeRange(ctx context.Context, sessionID string, start, end time.Time) ([]*domain.ProcessedTick, error) {
	query := `
		SELECT ts, price, volume, side, bid, ask,
		       window_vol, tps_window, factor_tps
		FROM tick_features
		WHERE session_id = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC, ordinal ASC
	`

	started := time.Now()
	rows, err := s.conn.Query(ctx, query, sessionID, start, end)
	observability.RecordDBQuery("clickhouse", "get_time_range_rows", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTickFeatures(rows)
}

// sessionCount returns the number of rows stored for a session.
func (s *TickFeatureStore) sessionCount(ctx context.Context, sessionID string) (int, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM tick_features WHERE session_id = ?`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// scanTickFeatures scans multiple rows.
func scanTickFeatures(rows chRows) ([]*domain.ProcessedTick, error) {
	var result []*domain.ProcessedTick

	for rows.Next() {
		var r domain.ProcessedTick

		err := rows.Scan(
			&r.Timestamp, &r.Price, &r.Volume, &r.Side, &r.Bid, &r.Ask,
			&r.WindowVol, &r.TPSWindow, &r.FactorTPS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tick feature row: %w", err)
		}

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick feature rows: %w", err)
	}

	return result, nil
}
