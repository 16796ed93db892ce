package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
	"github.com/ferranfont/AI-random-forest/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	sigCopy := *sig
	s.data[sig.SignalID] = &sigCopy
	return nil
}

// InsertBulk adds multiple signals. Fails entire batch on any duplicate.
func (s *SignalStore) InsertBulk(_ context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(signals))
	for _, sig := range signals {
		if sig == nil || sig.SignalID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[sig.SignalID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[sig.SignalID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[sig.SignalID] = struct{}{}
	}

	for _, sig := range signals {
		sigCopy := *sig
		s.data[sig.SignalID] = &sigCopy
	}

	return nil
}

// GetByID retrieves a signal by ID. Returns ErrNotFound if absent.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	sigCopy := *sig
	return &sigCopy, nil
}

// GetBySource retrieves all signals from a source, ordered by timestamp ASC.
func (s *SignalStore) GetBySource(_ context.Context, source string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.Source == source {
			sigCopy := *sig
			result = append(result, &sigCopy)
		}
	}

	sortSignals(result)
	return result, nil
}

// GetByTimeRange retrieves signals within [start, end] (inclusive), ordered by timestamp ASC.
func (s *SignalStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if !sig.Timestamp.Before(start) && !sig.Timestamp.After(end) {
			sigCopy := *sig
			result = append(result, &sigCopy)
		}
	}

	sortSignals(result)
	return result, nil
}

func sortSignals(signals []*domain.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Timestamp.Equal(signals[j].Timestamp) {
			return signals[i].SignalID < signals[j].SignalID
		}
		return signals[i].Timestamp.Before(signals[j].Timestamp)
	})
}

var _ storage.SignalStore = (*SignalStore)(nil)
