package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinerec/cinerec/pkg/models"
)

// PopularMovies ranks movies by mean training-corpus rating, filtered by
// a minimum observation count.
func (h *Handlers) PopularMovies(c *gin.Context) {
	var req models.PopularMoviesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	minRatings := req.MinRatings
	if minRatings <= 0 {
		minRatings = h.cfg.Recommend.PopularMinRatings
	}

	items, err := h.engine.Popular(c.Request.Context(), h.count(req.N), minRatings)
	if err != nil {
		h.renderError(c, err)
		return
	}

	popular := make([]models.PopularMovie, len(items))
	for i, item := range items {
		popular[i] = models.PopularMovie{
			MovieID:       item.ID,
			AverageRating: round3(item.Score),
			Title:         h.movies.Title(item.ID),
			Rank:          i + 1,
		}
	}

	c.JSON(http.StatusOK, models.PopularMoviesResponse{
		Movies:    popular,
		Count:     len(popular),
		Timestamp: timestampNow(),
	})
}
