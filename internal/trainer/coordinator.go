package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/ledger"
)

// ErrRetrainInProgress is returned when a retrain is requested while one
// is already training or validating. Retraining is strictly single-flight.
var ErrRetrainInProgress = errors.New("retraining already in progress")

// Coordinator drives the retraining cycle: check whether enough new
// ratings have accumulated, merge the ledger into the training corpus,
// fit, validate, persist the artifact (backing up the previous one) and
// atomically swap the active model. A failed attempt leaves the active
// model untouched and is fully recoverable.
type Coordinator struct {
	store    *factors.Store
	ledger   ledger.Store
	cfg      *config.RetrainConfig
	artifact string
	corpus   string
	logger   *logrus.Logger

	mu sync.Mutex // held for the whole cycle: single-flight
}

// Options override the configured defaults for one run. Zero values keep
// the defaults; Force skips the new-ratings admission check.
type Options struct {
	Factors       int
	Epochs        int
	MinNewRatings int
	Force         bool
}

// Result is the completed-cycle payload. Needed=false means the admission
// check decided against retraining; nothing else is populated then except
// NewRatings.
type Result struct {
	Needed        bool
	NewRatings    int
	Success       bool
	Version       string
	Duration      time.Duration
	RMSE          float64
	MAE           float64
	LedgerRatings int
	Timestamp     time.Time
}

func NewCoordinator(
	store *factors.Store,
	ratings ledger.Store,
	cfg *config.RetrainConfig,
	modelCfg *config.ModelConfig,
	logger *logrus.Logger,
) *Coordinator {
	return &Coordinator{
		store:    store,
		ledger:   ratings,
		cfg:      cfg,
		artifact: modelCfg.ArtifactPath,
		corpus:   modelCfg.CorpusPath,
		logger:   logger,
	}
}

// Run executes one retraining cycle. Concurrent calls beyond the first
// return ErrRetrainInProgress instead of queueing.
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Result, error) {
	if !c.mu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer c.mu.Unlock()

	minNew := c.cfg.MinNewRatings
	if opts.MinNewRatings > 0 {
		minNew = opts.MinNewRatings
	}

	// CHECKING
	var since time.Time
	if active := c.store.Active(); active != nil {
		since = active.Meta().TrainedAt
	}
	newRatings, err := c.ledger.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("counting new ratings: %w", err)
	}
	if !opts.Force && newRatings < minNew {
		c.logger.WithFields(logrus.Fields{
			"new_ratings": newRatings,
			"threshold":   minNew,
		}).Info("retrain not needed")
		return &Result{Needed: false, NewRatings: newRatings, Timestamp: time.Now().UTC()}, nil
	}

	hp := Hyperparams{
		Factors:        c.cfg.Factors,
		Epochs:         c.cfg.Epochs,
		LearningRate:   c.cfg.LearningRate,
		Regularization: c.cfg.Regularize,
		Seed:           42,
	}
	if opts.Factors > 0 {
		hp.Factors = opts.Factors
	}
	if opts.Epochs > 0 {
		hp.Epochs = opts.Epochs
	}

	// TRAINING
	original, err := c.loadOriginalCorpus()
	if err != nil {
		return nil, fmt.Errorf("loading training corpus: %w", err)
	}
	live, err := c.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting ledger: %w", err)
	}
	merged := mergeCorpus(original, live)
	if len(merged) == 0 {
		return nil, fmt.Errorf("nothing to train on: corpus and ledger are both empty")
	}

	version := uuid.NewString()
	c.logger.WithFields(logrus.Fields{
		"version":        version,
		"corpus_ratings": len(original),
		"ledger_ratings": len(live),
		"merged_ratings": len(merged),
		"factors":        hp.Factors,
		"epochs":         hp.Epochs,
	}).Info("retraining started")

	train, test := holdoutSplit(merged, c.cfg.HoldoutFrac, hp.Seed)

	start := time.Now()
	model, err := Fit(ctx, train, hp, version)
	if err != nil {
		c.logger.WithError(err).Error("retraining failed during fit")
		return nil, fmt.Errorf("fitting model: %w", err)
	}
	duration := time.Since(start)

	// VALIDATING
	rmse, mae := Evaluate(model, test)
	c.logger.WithFields(logrus.Fields{
		"version": version,
		"rmse":    rmse,
		"mae":     mae,
		"seconds": duration.Seconds(),
	}).Info("retrained model validated")

	// SWAPPED: persist first (previous artifact is backed up inside
	// SaveArtifact), then publish. In-flight readers keep the generation
	// they started with.
	if err := factors.SaveArtifact(c.artifact, model); err != nil {
		c.logger.WithError(err).Error("retraining failed during artifact save")
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	c.store.Swap(model)

	c.logger.WithFields(logrus.Fields{
		"version": version,
		"users":   model.NumUsers(),
		"items":   model.NumItems(),
	}).Info("active model swapped")

	return &Result{
		Needed:        true,
		NewRatings:    newRatings,
		Success:       true,
		Version:       version,
		Duration:      duration,
		RMSE:          rmse,
		MAE:           mae,
		LedgerRatings: len(live),
		Timestamp:     time.Now().UTC(),
	}, nil
}

// StartPeriodic launches a background checker that runs a full cycle at
// the configured interval until ctx is cancelled. Cycles that lose the
// single-flight race are skipped silently.
func (c *Coordinator) StartPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Run(ctx, Options{}); err != nil && !errors.Is(err, ErrRetrainInProgress) {
					c.logger.WithError(err).Error("periodic retrain cycle failed")
				}
			}
		}
	}()
}

func (c *Coordinator) loadOriginalCorpus() ([]Observation, error) {
	if c.corpus == "" {
		return nil, nil
	}
	obs, err := LoadCorpus(c.corpus)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// No original corpus on disk: train from the ledger alone.
			c.logger.WithField("path", c.corpus).Warn("training corpus not found, using ledger only")
			return nil, nil
		}
		return nil, err
	}
	return obs, nil
}
