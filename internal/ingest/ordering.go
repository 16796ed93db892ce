package ingest

import (
	"errors"
	"sort"

	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// ErrInvalidOrdering is returned when a table is not in time order.
var ErrInvalidOrdering = errors.New("ticks are not in non-decreasing time order")

// SortTicks orders ticks ascending by timestamp. The sort is stable so
// ticks with identical timestamps (bursts) keep their arrival order.
func SortTicks(ticks []*domain.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})
}

func sortProcessed(rows []*domain.ProcessedTick) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
}

// ValidateOrdering checks the window engine's input invariant: every
// timestamp is >= its predecessor. Duplicates are valid (bursts).
func ValidateOrdering(ticks []*domain.Tick) error {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp.Before(ticks[i-1].Timestamp) {
			return ErrInvalidOrdering
		}
	}
	return nil
}
