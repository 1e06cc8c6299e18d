package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/catalog"
	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/engine"
	"github.com/cinerec/cinerec/internal/ledger"
	"github.com/cinerec/cinerec/internal/messaging"
	"github.com/cinerec/cinerec/internal/services"
	"github.com/cinerec/cinerec/internal/trainer"
)

// Handlers owns the HTTP surface. Each endpoint validates with gin
// binding tags, delegates to the engine/ledger/coordinator and renders
// the shared error envelope on failure.
type Handlers struct {
	engine      *engine.Engine
	ledger      ledger.Store
	movies      *catalog.Catalog
	coordinator *trainer.Coordinator
	health      *services.HealthService
	bus         *messaging.MessageBus
	cfg         *config.Config
	logger      *logrus.Logger
}

func New(
	eng *engine.Engine,
	ratings ledger.Store,
	movies *catalog.Catalog,
	coordinator *trainer.Coordinator,
	health *services.HealthService,
	bus *messaging.MessageBus,
	cfg *config.Config,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		engine:      eng,
		ledger:      ratings,
		movies:      movies,
		coordinator: coordinator,
		health:      health,
		bus:         bus,
		cfg:         cfg,
		logger:      logger,
	}
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// renderError maps domain sentinels onto HTTP statuses. Anything
// unclassified is a 500 with the detail kept out of the response body.
func (h *Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotReady):
		errorResponse(c, http.StatusServiceUnavailable, "MODEL_NOT_READY", "No trained model is loaded yet")
	case errors.Is(err, engine.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, engine.ErrInvalidArgument):
		errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, trainer.ErrRetrainInProgress):
		errorResponse(c, http.StatusConflict, "RETRAIN_IN_PROGRESS", "A retraining run is already in progress")
	default:
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	}
}

// round3 trims scores to the three decimals the API reports.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// displayRating clamps a raw prediction to the rating scale and rounds it.
func displayRating(score float64) float64 {
	return round3(engine.Clamp(score))
}

func (h *Handlers) count(requested int) int {
	if requested <= 0 {
		return h.cfg.Recommend.DefaultCount
	}
	if requested > h.cfg.Recommend.MaxCount {
		return h.cfg.Recommend.MaxCount
	}
	return requested
}

func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
