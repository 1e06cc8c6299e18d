package models

import "time"

// PredictionRequest asks for the estimated rating a user would give a movie.
type PredictionRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	MovieID string `json:"movie_id" binding:"required"`
}

type PredictionResponse struct {
	UserID          string  `json:"user_id"`
	MovieID         string  `json:"movie_id"`
	PredictedRating float64 `json:"predicted_rating"`
	Timestamp       string  `json:"timestamp"`
}

// RecommendationRequest asks for the top N movies for a ledger-known user.
type RecommendationRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	N            int    `json:"n" binding:"omitempty,min=1,max=50"`
	ExcludeRated *bool  `json:"exclude_rated"`
}

type MovieRecommendation struct {
	MovieID         string  `json:"movie_id"`
	PredictedRating float64 `json:"predicted_rating"`
	Title           string  `json:"title"`
	Rank            int     `json:"rank"`
}

type RecommendationsResponse struct {
	UserID          string                `json:"user_id"`
	Recommendations []MovieRecommendation `json:"recommendations"`
	Count           int                   `json:"count"`
	Timestamp       string                `json:"timestamp"`
}

// NewUserRating is a caller-supplied (movie, score) pair for users with no
// stored identity; the ledger is bypassed entirely.
type NewUserRating struct {
	MovieID string  `json:"movie_id" binding:"required"`
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
}

type NewUserRecommendationRequest struct {
	RatedMovies []NewUserRating `json:"rated_movies" binding:"required,min=1,dive"`
	N           int             `json:"n" binding:"omitempty,min=1,max=50"`
}

type GenreRecommendationRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Genre  string `json:"genre" binding:"required"`
	N      int    `json:"n" binding:"omitempty,min=1,max=50"`
}

type SimilarMoviesRequest struct {
	MovieID string `json:"movie_id" binding:"required"`
	N       int    `json:"n" binding:"omitempty,min=1,max=50"`
}

type SimilarMovie struct {
	MovieID         string  `json:"movie_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Title           string  `json:"title"`
	Rank            int     `json:"rank"`
}

type SimilarMoviesResponse struct {
	SourceMovieID string         `json:"source_movie_id"`
	SimilarMovies []SimilarMovie `json:"similar_movies"`
	Count         int            `json:"count"`
	Timestamp     string         `json:"timestamp"`
}

type PopularMoviesRequest struct {
	N          int `json:"n" binding:"omitempty,min=1,max=50"`
	MinRatings int `json:"min_ratings" binding:"omitempty,min=1"`
}

type PopularMovie struct {
	MovieID       string  `json:"movie_id"`
	AverageRating float64 `json:"average_rating"`
	Title         string  `json:"title"`
	Rank          int     `json:"rank"`
}

type PopularMoviesResponse struct {
	Movies    []PopularMovie `json:"movies"`
	Count     int            `json:"count"`
	Timestamp string         `json:"timestamp"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	ModelLoaded  bool      `json:"model_loaded"`
	ModelVersion string    `json:"model_version,omitempty"`
	NUsers       int       `json:"n_users"`
	NItems       int       `json:"n_items"`
	GlobalMean   float64   `json:"global_mean"`
	LedgerStats  Stats     `json:"ledger"`
	Timestamp    time.Time `json:"timestamp"`
}

// Stats mirrors the ledger aggregate counters used for health reporting
// and retrain admission.
type Stats struct {
	TotalRatings  int `json:"total_ratings"`
	DistinctUsers int `json:"distinct_users"`
	DistinctItems int `json:"distinct_items"`
}
