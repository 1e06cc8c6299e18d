package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinerec/cinerec/internal/trainer"
	"github.com/cinerec/cinerec/pkg/models"
)

// Retrain triggers one retraining cycle. Only one cycle runs at a time;
// a concurrent trigger gets a 409 rather than queueing behind the first.
func (h *Handlers) Retrain(c *gin.Context) {
	var req models.RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	result, err := h.coordinator.Run(c.Request.Context(), trainer.Options{
		Factors:       req.Factors,
		Epochs:        req.Epochs,
		MinNewRatings: req.MinNewRatings,
		Force:         req.Force,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := models.RetrainResponse{
		Needed:     result.Needed,
		NewRatings: result.NewRatings,
		Timestamp:  result.Timestamp,
	}
	if result.Needed {
		resp.Success = result.Success
		resp.ModelVersion = result.Version
		resp.TrainingSeconds = result.Duration.Seconds()
		resp.RMSE = result.RMSE
		resp.MAE = result.MAE
		resp.LedgerRatings = result.LedgerRatings
	}

	c.JSON(http.StatusOK, resp)
}
