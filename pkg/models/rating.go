package models

import "time"

// Rating is a single (user, movie) observation. The ledger holds at most
// one per pair; re-submission updates score and timestamp.
type Rating struct {
	UserID    string    `json:"user_id"`
	MovieID   string    `json:"movie_id"`
	Score     float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

type SubmitRatingRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	MovieID string  `json:"movie_id" binding:"required"`
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
}

type SavedRating struct {
	UserID     string  `json:"user_id"`
	MovieID    string  `json:"movie_id"`
	Rating     float64 `json:"rating"`
	MovieTitle string  `json:"movie_title"`
	Timestamp  string  `json:"timestamp"`
}

type UserStats struct {
	TotalRatings int    `json:"total_ratings"`
	UserID       string `json:"user_id"`
}

// SubmitRatingResponse bundles the saved record with fresh recommendations
// so the client gets "thanks, and here's what's next" in one round trip.
type SubmitRatingResponse struct {
	RatingSaved     SavedRating           `json:"rating_saved"`
	UserStats       UserStats             `json:"user_stats"`
	Recommendations []MovieRecommendation `json:"recommendations"`
}

type RatingHistoryEntry struct {
	MovieID   string  `json:"movie_id"`
	Title     string  `json:"title"`
	Rating    float64 `json:"rating"`
	Timestamp string  `json:"timestamp"`
}

type RatingHistoryResponse struct {
	UserID  string               `json:"user_id"`
	Ratings []RatingHistoryEntry `json:"ratings"`
	Count   int                  `json:"count"`
}

type RemoveRatingResponse struct {
	UserID  string `json:"user_id"`
	MovieID string `json:"movie_id"`
	Removed bool   `json:"removed"`
}
