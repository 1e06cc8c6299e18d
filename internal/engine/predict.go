package engine

import (
	"github.com/cinerec/cinerec/internal/factors"
	"gonum.org/v1/gonum/floats"
)

// Predict estimates the rating a user would give a movie: global mean plus
// user and item bias plus the factor dot product. Either side being
// unknown to the model drops its terms, degrading toward the global mean;
// this is the cold-start convention, not an error. The result is raw
// (unclamped); display paths apply Clamp.
func (e *Engine) Predict(userID, movieID string) (float64, error) {
	m := e.store.Active()
	if m == nil {
		return 0, ErrNotReady
	}
	return predictOn(m, userID, movieID), nil
}

func predictOn(m *factors.Model, userID, movieID string) float64 {
	score := m.GlobalMean()

	userRow, hasUser := m.UserRow(userID)
	itemRow, hasItem := m.ItemRow(movieID)

	if hasUser {
		score += m.UserBias(userID)
	}
	if hasItem {
		score += m.ItemBias(movieID)
	}
	if hasUser && hasItem {
		score += floats.Dot(userRow, itemRow)
	}
	return score
}
