package engine

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cinerec/cinerec/internal/factors"
)

// SimilarItems ranks the n movies whose latent vectors are closest to the
// query movie's by cosine similarity. An unknown movie yields an empty
// list, not an error; there is no vector to compare. Movies in exclude
// (and the query itself) are filtered before ranking so exclusion never
// wastes slots in the returned top n. Cost is O(known items × factors).
func (e *Engine) SimilarItems(ctx context.Context, movieID string, n int, exclude map[string]struct{}) ([]ScoredItem, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	m := e.store.Active()
	if m == nil {
		return nil, ErrNotReady
	}

	cacheKey := ""
	if len(exclude) == 0 {
		cacheKey = fmt.Sprintf("similar:%s:%s:%d", m.Meta().Version, movieID, n)
		if cached, ok := e.cachedList(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	results := similarOn(m, movieID, n, exclude)

	if cacheKey != "" {
		e.cacheList(ctx, cacheKey, results)
	}
	return results, nil
}

func similarOn(m *factors.Model, movieID string, n int, exclude map[string]struct{}) []ScoredItem {
	queryRow, ok := m.ItemRow(movieID)
	if !ok {
		return nil
	}
	queryNorm := floats.Norm(queryRow, 2)
	if queryNorm == 0 {
		// Degenerate vector: cosine is undefined for every pair, so
		// there is nothing meaningful to rank.
		return nil
	}

	results := make([]ScoredItem, 0, n)
	for _, otherID := range m.ItemIDs() {
		if otherID == movieID {
			continue
		}
		if _, skip := exclude[otherID]; skip {
			continue
		}
		otherRow, _ := m.ItemRow(otherID)
		otherNorm := floats.Norm(otherRow, 2)
		if otherNorm == 0 {
			continue
		}
		sim := floats.Dot(queryRow, otherRow) / (queryNorm * otherNorm)
		if math.IsNaN(sim) {
			continue
		}
		results = append(results, ScoredItem{ID: otherID, Score: sim})
	}

	sortScored(results)
	return truncate(results, n)
}
