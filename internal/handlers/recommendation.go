package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/engine"
	"github.com/cinerec/cinerec/pkg/models"
)

// Recommend returns the top-N movies for a user. The strategy depends on
// whether the model knows the user and on their ledger history; callers
// get the same response shape either way.
func (h *Handlers) Recommend(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	excludeRated := true
	if req.ExcludeRated != nil {
		excludeRated = *req.ExcludeRated
	}
	n := h.count(req.N)

	recs, regime, err := h.engine.Recommend(c.Request.Context(), req.UserID, n, excludeRated)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"regime":  regime.String(),
		"count":   len(recs),
	}).Debug("Recommendations generated")

	c.JSON(http.StatusOK, models.RecommendationsResponse{
		UserID:          req.UserID,
		Recommendations: h.toRecommendations(recs),
		Count:           len(recs),
		Timestamp:       timestampNow(),
	})
}

// RecommendNewUser serves users with no stored identity: the caller
// supplies the ratings inline and the ledger is never touched.
func (h *Handlers) RecommendNewUser(c *gin.Context) {
	var req models.NewUserRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	rated := make(map[string]float64, len(req.RatedMovies))
	for _, r := range req.RatedMovies {
		rated[r.MovieID] = r.Rating
	}

	recs, err := h.engine.RecommendFromRatings(rated, h.count(req.N))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RecommendationsResponse{
		UserID:          "new_user",
		Recommendations: h.toRecommendations(recs),
		Count:           len(recs),
		Timestamp:       timestampNow(),
	})
}

// RecommendByGenre restricts scoring to catalog movies carrying the genre.
func (h *Handlers) RecommendByGenre(c *gin.Context) {
	var req models.GenreRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	recs, err := h.engine.RecommendByGenre(c.Request.Context(), req.UserID, req.Genre, h.count(req.N))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RecommendationsResponse{
		UserID:          req.UserID,
		Recommendations: h.toRecommendations(recs),
		Count:           len(recs),
		Timestamp:       timestampNow(),
	})
}

func (h *Handlers) toRecommendations(items []engine.ScoredItem) []models.MovieRecommendation {
	recs := make([]models.MovieRecommendation, len(items))
	for i, item := range items {
		recs[i] = models.MovieRecommendation{
			MovieID:         item.ID,
			PredictedRating: displayRating(item.Score),
			Title:           h.movies.Title(item.ID),
			Rank:            i + 1,
		}
	}
	return recs
}
