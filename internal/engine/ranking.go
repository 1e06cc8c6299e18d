package engine

import (
	"context"
	"fmt"

	"github.com/cinerec/cinerec/internal/factors"
)

// Regime classifies a user for ranking strategy dispatch. Exactly one
// regime applies per request; nothing is persisted.
type Regime int

const (
	// RegimeKnown: the user has a latent factor row in the model.
	RegimeKnown Regime = iota
	// RegimeColdWithHistory: absent from the model but has ledger ratings.
	RegimeColdWithHistory
	// RegimeColdNoHistory: absent from the model with an empty history.
	RegimeColdNoHistory
)

func (r Regime) String() string {
	switch r {
	case RegimeKnown:
		return "known"
	case RegimeColdWithHistory:
		return "cold_with_history"
	case RegimeColdNoHistory:
		return "cold_no_history"
	default:
		return "unknown"
	}
}

func classify(m *factors.Model, userID string, ratedCount int) Regime {
	switch {
	case m.HasUser(userID):
		return RegimeKnown
	case ratedCount > 0:
		return RegimeColdWithHistory
	default:
		return RegimeColdNoHistory
	}
}

// Recommend produces the top-n list for a user, dispatching on regime:
// model-known users get full prediction scoring, cold users with ledger
// history get similarity-weighted scoring seeded by their liked movies,
// and cold users without history get the popularity list. An empty list
// is a valid response, not a failure.
func (e *Engine) Recommend(ctx context.Context, userID string, n int, excludeRated bool) ([]ScoredItem, Regime, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("%w: user id must not be empty", ErrInvalidArgument)
	}
	if n <= 0 {
		return nil, 0, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	m := e.store.Active()
	if m == nil {
		return nil, 0, ErrNotReady
	}

	userRatings, err := e.ledger.UserRatings(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("reading user ratings: %w", err)
	}

	regime := classify(m, userID, len(userRatings))
	e.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"regime":  regime.String(),
		"n":       n,
	}).Debug("classified recommendation request")

	switch regime {
	case RegimeKnown:
		return e.scoreAllItems(m, userID, n, excludeRated, userRatings), regime, nil
	case RegimeColdWithHistory:
		recs := e.similarityWeighted(m, userRatings, n)
		if len(recs) == 0 {
			recs = popularOn(m, n, e.cfg.PopularMinRatings)
		}
		return recs, regime, nil
	default:
		return popularOn(m, n, e.cfg.PopularMinRatings), regime, nil
	}
}

// RecommendFromRatings applies the cold-with-history strategy directly to
// caller-supplied ratings, bypassing the ledger. This is the path for
// brand-new users with no stored identity.
func (e *Engine) RecommendFromRatings(rated map[string]float64, n int) ([]ScoredItem, error) {
	if len(rated) == 0 {
		return nil, fmt.Errorf("%w: at least one rating is required", ErrInvalidArgument)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	m := e.store.Active()
	if m == nil {
		return nil, ErrNotReady
	}

	recs := e.similarityWeighted(m, rated, n)
	if len(recs) == 0 {
		recs = popularOn(m, n, e.cfg.PopularMinRatings)
	}
	return recs, nil
}

// RecommendByGenre restricts full prediction scoring to catalog movies
// tagged with the genre.
func (e *Engine) RecommendByGenre(ctx context.Context, userID, genre string, n int) ([]ScoredItem, error) {
	if userID == "" || genre == "" {
		return nil, fmt.Errorf("%w: user id and genre must not be empty", ErrInvalidArgument)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidArgument)
	}
	m := e.store.Active()
	if m == nil {
		return nil, ErrNotReady
	}

	results := make([]ScoredItem, 0, n)
	for _, movieID := range m.ItemIDs() {
		if !e.movies.HasGenre(movieID, genre) {
			continue
		}
		results = append(results, ScoredItem{ID: movieID, Score: predictOn(m, userID, movieID)})
	}
	sortScored(results)
	return truncate(results, n), nil
}

// scoreAllItems is the KNOWN-regime strategy: predict every candidate,
// dropping already-rated movies from the pool entirely when requested.
func (e *Engine) scoreAllItems(m *factors.Model, userID string, n int, excludeRated bool, userRatings map[string]float64) []ScoredItem {
	results := make([]ScoredItem, 0, m.NumItems())
	for _, movieID := range m.ItemIDs() {
		if excludeRated {
			if _, rated := userRatings[movieID]; rated {
				continue
			}
		}
		results = append(results, ScoredItem{ID: movieID, Score: predictOn(m, userID, movieID)})
	}
	sortScored(results)
	return truncate(results, n)
}

// similarityWeighted is the COLD_WITH_HISTORY strategy: fan out from each
// liked movie to its most similar neighbors, weight each neighbor by
// (user's rating × similarity), and average a candidate's contributions
// across all liked movies. Already-rated movies are excluded before
// neighbor ranking so they never consume fan-out slots.
func (e *Engine) similarityWeighted(m *factors.Model, rated map[string]float64, n int) []ScoredItem {
	exclude := make(map[string]struct{}, len(rated))
	for movieID := range rated {
		exclude[movieID] = struct{}{}
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for movieID, score := range rated {
		if score < e.cfg.LikedThreshold {
			continue
		}
		for _, sim := range similarOn(m, movieID, e.cfg.SimilarFanout, exclude) {
			sums[sim.ID] += score * sim.Score
			counts[sim.ID]++
		}
	}

	results := make([]ScoredItem, 0, len(sums))
	for movieID, sum := range sums {
		results = append(results, ScoredItem{ID: movieID, Score: sum / float64(counts[movieID])})
	}
	sortScored(results)
	return truncate(results, n)
}
