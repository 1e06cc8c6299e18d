// Package ledger is the live, mutable store of rating observations. It is
// the only mutable state in the serving path; the factor model and catalog
// are immutable snapshots. Users and items here are free-text keys and are
// not required to exist in the factor model; the ranking engine reconciles
// the two at query time.
package ledger

import (
	"context"
	"time"

	"github.com/cinerec/cinerec/pkg/models"
)

// Store holds rating observations with at most one record per
// (user, movie) pair. Upsert for an existing pair updates the score and
// timestamp in place; concurrent upserts on the same pair serialize with
// last committed write winning.
type Store interface {
	Upsert(ctx context.Context, userID, movieID string, score float64, ts time.Time) (models.Rating, error)

	// History returns a user's ratings in insertion order.
	History(ctx context.Context, userID string) ([]models.Rating, error)

	// UserRatings returns a user's ratings keyed by movie id.
	UserRatings(ctx context.Context, userID string) (map[string]float64, error)

	// Remove deletes one rating; false means nothing matched, not an error.
	Remove(ctx context.Context, userID, movieID string) (bool, error)

	CountForUser(ctx context.Context, userID string) (int, error)

	// All snapshots every rating, for retraining.
	All(ctx context.Context) ([]models.Rating, error)

	// CountSince counts ratings recorded after t, for retrain admission.
	CountSince(ctx context.Context, t time.Time) (int, error)

	Stats(ctx context.Context) (models.Stats, error)

	Close()
}
