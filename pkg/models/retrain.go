package models

import "time"

type RetrainRequest struct {
	Factors       int  `json:"factors" binding:"omitempty,min=1,max=1000"`
	Epochs        int  `json:"epochs" binding:"omitempty,min=1,max=500"`
	MinNewRatings int  `json:"min_new_ratings" binding:"omitempty,min=1"`
	Force         bool `json:"force"`
}

// RetrainResponse reports either that no retrain was needed (Needed=false,
// NewRatings carries the current count) or the outcome of a completed run.
type RetrainResponse struct {
	Needed          bool      `json:"needed"`
	NewRatings      int       `json:"new_ratings,omitempty"`
	Success         bool      `json:"success,omitempty"`
	ModelVersion    string    `json:"model_version,omitempty"`
	TrainingSeconds float64   `json:"training_seconds,omitempty"`
	RMSE            float64   `json:"rmse,omitempty"`
	MAE             float64   `json:"mae,omitempty"`
	LedgerRatings   int       `json:"ledger_ratings,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
