package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

type featureRow struct {
	sessionID string
	ordinal   int
	row       *domain.ProcessedTick
}

// TickFeatureStore is an in-memory implementation of storage.TickFeatureStore.
type TickFeatureStore struct {
	mu   sync.RWMutex
	data map[string]*featureRow // keyed by (session_id, timestamp_ns, ordinal)
}

// NewTickFeatureStore creates a new in-memory tick feature store.
func NewTickFeatureStore() *TickFeatureStore {
	return &TickFeatureStore{
		data: make(map[string]*featureRow),
	}
}

// featureKey generates a unique key for a processed row. The ordinal
// disambiguates ticks sharing the same timestamp within a session.
func featureKey(sessionID string, ts time.Time, ordinal int) string {
	return fmt.Sprintf("%s|%d|%d", sessionID, ts.UnixNano(), ordinal)
}

// InsertBulk adds multiple rows for a session. Fails entire batch on duplicate.
func (s *TickFeatureStore) InsertBulk(_ context.Context, sessionID string, rows []*domain.ProcessedTick) error {
	if sessionID == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: detect duplicates against existing data. Ordinals are
	// assigned per insertion batch, so intra-batch rows never collide.
	base := s.sessionCountLocked(sessionID)
	for i, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		key := featureKey(sessionID, r.Timestamp, base+i)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
	}

	// Second pass: insert all
	for i, r := range rows {
		rowCopy := *r
		key := featureKey(sessionID, r.Timestamp, base+i)
		s.data[key] = &featureRow{sessionID: sessionID, ordinal: base + i, row: &rowCopy}
	}

	return nil
}

// GetBySessionID retrieves all rows for a session, ordered by timestamp ASC.
func (s *TickFeatureStore) GetBySessionID(_ context.Context, sessionID string) ([]*domain.ProcessedTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*featureRow
	for _, e := range s.data {
		if e.sessionID == sessionID {
			entries = append(entries, e)
		}
	}

	return sortedRows(entries), nil
}

// GetByTimeRange retrieves session rows within [start, end] (inclusive).
func (s *TickFeatureStore) GetByTimeRange(_ context.Context, sessionID string, start, end time.Time) ([]*domain.ProcessedTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*featureRow
	for _, e := range s.data {
		ts := e.row.Timestamp
		if e.sessionID == sessionID && !ts.Before(start) && !ts.After(end) {
			entries = append(entries, e)
		}
	}

	return sortedRows(entries), nil
}

func (s *TickFeatureStore) sessionCountLocked(sessionID string) int {
	n := 0
	for _, e := range s.data {
		if e.sessionID == sessionID {
			n++
		}
	}
	return n
}

func sortedRows(entries []*featureRow) []*domain.ProcessedTick {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].row.Timestamp.Equal(entries[j].row.Timestamp) {
			return entries[i].ordinal < entries[j].ordinal
		}
		return entries[i].row.Timestamp.Before(entries[j].row.Timestamp)
	})

	result := make([]*domain.ProcessedTick, 0, len(entries))
	for _, e := range entries {
		rowCopy := *e.row
		result = append(result, &rowCopy)
	}
	return result
}

var _ storage.TickFeatureStore = (*TickFeatureStore)(nil)
