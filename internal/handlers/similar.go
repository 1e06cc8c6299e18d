package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cinerec/cinerec/pkg/models"
)

// SimilarMovies ranks the movies closest to the query movie in latent
// space. A movie the model has never seen is a 404; a known movie with no
// rankable neighbors yields an empty list.
func (h *Handlers) SimilarMovies(c *gin.Context) {
	var req models.SimilarMoviesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	known, err := h.engine.KnownItem(req.MovieID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if !known {
		errorResponse(c, http.StatusNotFound, "MOVIE_NOT_FOUND", "Movie is not in the trained model")
		return
	}

	items, err := h.engine.SimilarItems(c.Request.Context(), req.MovieID, h.count(req.N), nil)
	if err != nil {
		h.renderError(c, err)
		return
	}

	similar := make([]models.SimilarMovie, len(items))
	for i, item := range items {
		similar[i] = models.SimilarMovie{
			MovieID:         item.ID,
			SimilarityScore: round3(item.Score),
			Title:           h.movies.Title(item.ID),
			Rank:            i + 1,
		}
	}

	c.JSON(http.StatusOK, models.SimilarMoviesResponse{
		SourceMovieID: req.MovieID,
		SimilarMovies: similar,
		Count:         len(similar),
		Timestamp:     timestampNow(),
	})
}
