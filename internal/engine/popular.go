package engine

import (
	"context"
	"fmt"

	"github.com/cinerec/cinerec/internal/factors"
)

// Popular ranks movies by mean training-corpus rating, keeping only those
// with at least minRatings observations. The aggregates are a snapshot
// baked into the model artifact at training time: live ledger submissions
// do not move this list until the next retrain, a deliberate (and known)
// staleness trade-off.
func (e *Engine) Popular(ctx context.Context, n, minRatings int) ([]ScoredItem, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	if minRatings < 1 {
		return nil, fmt.Errorf("%w: min_ratings must be at least 1", ErrInvalidArgument)
	}
	m := e.store.Active()
	if m == nil {
		return nil, ErrNotReady
	}

	cacheKey := fmt.Sprintf("popular:%s:%d:%d", m.Meta().Version, n, minRatings)
	if cached, ok := e.cachedList(ctx, cacheKey); ok {
		return cached, nil
	}

	results := popularOn(m, n, minRatings)
	e.cacheList(ctx, cacheKey, results)
	return results, nil
}

func popularOn(m *factors.Model, n, minRatings int) []ScoredItem {
	results := make([]ScoredItem, 0, n)
	for _, movieID := range m.ItemIDs() {
		stat, ok := m.ItemStatFor(movieID)
		if !ok || stat.Count < minRatings {
			continue
		}
		results = append(results, ScoredItem{ID: movieID, Score: stat.Mean()})
	}
	sortScored(results)
	return truncate(results, n)
}
