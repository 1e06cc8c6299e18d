package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinerec/cinerec/pkg/models"
)

// Predict estimates the rating a user would give a movie. Unknown users
// or movies are not errors; the estimate degrades toward the global mean.
func (h *Handlers) Predict(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	score, err := h.engine.Predict(req.UserID, req.MovieID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PredictionResponse{
		UserID:          req.UserID,
		MovieID:         req.MovieID,
		PredictedRating: displayRating(score),
		Timestamp:       timestampNow(),
	})
}
