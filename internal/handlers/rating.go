package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/messaging"
	"github.com/cinerec/cinerec/pkg/models"
)

// SubmitRating upserts a rating into the ledger and returns the saved
// record, the user's updated stats and a fresh recommendation list in one
// round trip. Re-rating a movie overwrites the previous score.
func (h *Handlers) SubmitRating(c *gin.Context) {
	var req models.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	ctx := c.Request.Context()
	saved, err := h.ledger.Upsert(ctx, req.UserID, req.MovieID, req.Rating, time.Now().UTC())
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.bus.PublishRating(ctx, messaging.ActionUpsert, saved); err != nil {
		// The ledger write already committed; the event stream is
		// best-effort.
		h.logger.WithError(err).Warn("Rating saved but event publish failed")
	}

	total, err := h.ledger.CountForUser(ctx, req.UserID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := models.SubmitRatingResponse{
		RatingSaved: models.SavedRating{
			UserID:     saved.UserID,
			MovieID:    saved.MovieID,
			Rating:     saved.Score,
			MovieTitle: h.movies.Title(saved.MovieID),
			Timestamp:  saved.Timestamp.UTC().Format(time.RFC3339),
		},
		UserStats: models.UserStats{
			TotalRatings: total,
			UserID:       req.UserID,
		},
		Recommendations: []models.MovieRecommendation{},
	}

	// Recommendations are a courtesy here: before the first model load
	// the rating still saves and the list stays empty.
	if recs, _, err := h.engine.Recommend(ctx, req.UserID, h.cfg.Recommend.DefaultCount, true); err == nil {
		resp.Recommendations = h.toRecommendations(recs)
	} else {
		h.logger.WithError(err).WithField("user_id", req.UserID).Debug("Skipping recommendations after rating submit")
	}

	c.JSON(http.StatusOK, resp)
}

// RatingHistory lists a user's ledger ratings in the order they were
// first recorded. An unknown user gets an empty list.
func (h *Handlers) RatingHistory(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		errorResponse(c, http.StatusBadRequest, "INVALID_USER_ID", "User ID must not be empty")
		return
	}

	ratings, err := h.ledger.History(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	entries := make([]models.RatingHistoryEntry, len(ratings))
	for i, r := range ratings {
		entries[i] = models.RatingHistoryEntry{
			MovieID:   r.MovieID,
			Title:     h.movies.Title(r.MovieID),
			Rating:    r.Score,
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, models.RatingHistoryResponse{
		UserID:  userID,
		Ratings: entries,
		Count:   len(entries),
	})
}

// RemoveRating deletes one (user, movie) rating. Removing a rating that
// does not exist reports removed=false rather than failing.
func (h *Handlers) RemoveRating(c *gin.Context) {
	userID := c.Param("userId")
	movieID := c.Param("movieId")
	if userID == "" || movieID == "" {
		errorResponse(c, http.StatusBadRequest, "INVALID_ARGUMENT", "User ID and movie ID must not be empty")
		return
	}

	ctx := c.Request.Context()
	removed, err := h.ledger.Remove(ctx, userID, movieID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if removed {
		if err := h.bus.PublishRating(ctx, messaging.ActionRemove, models.Rating{
			UserID:    userID,
			MovieID:   movieID,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			h.logger.WithError(err).Warn("Rating removed but event publish failed")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"movie_id": movieID,
		"removed":  removed,
	}).Debug("Rating removal handled")

	c.JSON(http.StatusOK, models.RemoveRatingResponse{
		UserID:  userID,
		MovieID: movieID,
		Removed: removed,
	})
}
