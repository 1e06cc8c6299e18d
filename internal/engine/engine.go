// Package engine computes rating predictions, item-item similarity and
// ranked recommendations from the active factor-model snapshot and the
// rating ledger. All scoring is in-memory and CPU-bound; cost scales with
// catalog size times factor dimensionality (see SimilarItems), which is
// acceptable up to low hundreds of thousands of items.
package engine

import (
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/catalog"
	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/ledger"
)

// ScoredItem is one ranked result: a movie id with its predicted rating,
// similarity or popularity score depending on the producing call.
type ScoredItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Engine serves prediction, similarity and ranking queries. The model
// store is read through an atomic handle, so every request works against
// exactly one snapshot generation; the ledger is the only mutable
// collaborator and is dependency-injected to keep the engine testable.
type Engine struct {
	store  *factors.Store
	ledger ledger.Store
	movies *catalog.Catalog
	cfg    *config.RecommendConfig
	cache  *redis.Client // optional result cache, nil disables
	logger *logrus.Logger
}

func New(
	store *factors.Store,
	ratings ledger.Store,
	movies *catalog.Catalog,
	cfg *config.RecommendConfig,
	cache *redis.Client,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		store:  store,
		ledger: ratings,
		movies: movies,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}
}

// Ready reports whether a factor model has been loaded.
func (e *Engine) Ready() bool {
	return e.store.Active() != nil
}

// KnownItem reports whether the active model has a latent vector for the
// movie. Returns ErrNotReady before the first model load.
func (e *Engine) KnownItem(movieID string) (bool, error) {
	m := e.store.Active()
	if m == nil {
		return false, ErrNotReady
	}
	return m.HasItem(movieID), nil
}

// Clamp bounds a raw prediction to the display rating scale.
func Clamp(score float64) float64 {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}

// sortScored orders by score descending with ties broken by ascending
// movie id, so identical inputs always produce identical output.
func sortScored(items []ScoredItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}

func truncate(items []ScoredItem, n int) []ScoredItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
