package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cinerec/cinerec/internal/factors"
)

// Hyperparams are the biased matrix-factorization fitting knobs. Defaults
// mirror the hyperparameters the shipped model was trained with.
type Hyperparams struct {
	Factors        int
	Epochs         int
	LearningRate   float64
	Regularization float64
	Seed           int64
}

// Fit learns a factor model from observations by stochastic gradient
// descent on the biased-SVD objective: for each observation the error
// against mu + bu + bi + p·q updates both bias terms and both factor rows.
// The PRNG is seeded, so a fit over identical inputs is reproducible.
// Cancellation is checked between epochs; an aborted fit returns ctx.Err()
// and produces no model.
func Fit(ctx context.Context, obs []Observation, hp Hyperparams, version string) (*factors.Model, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("empty training corpus")
	}
	if hp.Factors <= 0 {
		return nil, fmt.Errorf("factor count must be positive, got %d", hp.Factors)
	}

	var (
		userIDs, itemIDs     []string
		userIndex, itemIndex = make(map[string]int), make(map[string]int)
		mean                 float64
	)
	for _, o := range obs {
		if _, ok := userIndex[o.UserID]; !ok {
			userIndex[o.UserID] = len(userIDs)
			userIDs = append(userIDs, o.UserID)
		}
		if _, ok := itemIndex[o.MovieID]; !ok {
			itemIndex[o.MovieID] = len(itemIDs)
			itemIDs = append(itemIDs, o.MovieID)
		}
		mean += o.Score
	}
	mean /= float64(len(obs))

	rng := rand.New(rand.NewSource(hp.Seed))
	userData := make([]float64, len(userIDs)*hp.Factors)
	itemData := make([]float64, len(itemIDs)*hp.Factors)
	for i := range userData {
		userData[i] = rng.NormFloat64() * 0.1
	}
	for i := range itemData {
		itemData[i] = rng.NormFloat64() * 0.1
	}
	userBias := make([]float64, len(userIDs))
	itemBias := make([]float64, len(itemIDs))

	lr, reg, f := hp.LearningRate, hp.Regularization, hp.Factors
	for epoch := 0; epoch < hp.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, o := range obs {
			u := userIndex[o.UserID]
			i := itemIndex[o.MovieID]
			pu := userData[u*f : (u+1)*f]
			qi := itemData[i*f : (i+1)*f]

			pred := mean + userBias[u] + itemBias[i]
			for k := 0; k < f; k++ {
				pred += pu[k] * qi[k]
			}
			e := o.Score - pred

			userBias[u] += lr * (e - reg*userBias[u])
			itemBias[i] += lr * (e - reg*itemBias[i])
			for k := 0; k < f; k++ {
				puk := pu[k]
				pu[k] += lr * (e*qi[k] - reg*puk)
				qi[k] += lr * (e*puk - reg*qi[k])
			}
		}
	}

	stats := make([]factors.ItemStat, len(itemIDs))
	for _, o := range obs {
		i := itemIndex[o.MovieID]
		stats[i].Count++
		stats[i].Sum += o.Score
	}

	meta := factors.Meta{
		Version:   version,
		TrainedAt: time.Now().UTC(),
		Factors:   hp.Factors,
		Epochs:    hp.Epochs,
	}
	return factors.New(meta, mean, userIDs, itemIDs,
		mat.NewDense(len(userIDs), hp.Factors, userData),
		mat.NewDense(len(itemIDs), hp.Factors, itemData),
		userBias, itemBias, stats), nil
}

// holdoutSplit deterministically shuffles and splits observations into
// training and validation sets.
func holdoutSplit(obs []Observation, frac float64, seed int64) (train, test []Observation) {
	shuffled := make([]Observation, len(obs))
	copy(shuffled, obs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := len(shuffled) - int(float64(len(shuffled))*frac)
	if cut < 1 {
		cut = 1
	}
	return shuffled[:cut], shuffled[cut:]
}

// Evaluate computes root-mean-squared and mean-absolute error of the
// model's predictions over a validation set. Metrics are reported, never
// gated: a worse-scoring model still ships.
func Evaluate(m *factors.Model, test []Observation) (rmse, mae float64) {
	if len(test) == 0 {
		return 0, 0
	}
	var sqSum, absSum float64
	for _, o := range test {
		pred := m.GlobalMean() + m.UserBias(o.UserID) + m.ItemBias(o.MovieID)
		if pu, ok := m.UserRow(o.UserID); ok {
			if qi, ok := m.ItemRow(o.MovieID); ok {
				for k := range pu {
					pred += pu[k] * qi[k]
				}
			}
		}
		diff := o.Score - pred
		sqSum += diff * diff
		absSum += math.Abs(diff)
	}
	n := float64(len(test))
	return math.Sqrt(sqSum / n), absSum / n
}
