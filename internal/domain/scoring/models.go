package scoring

import (
	"time"

	"perfeval/internal/domain/evaluation"
)

type Score struct {
	ID              string    `json:"id"`
	AssignmentID    string    `json:"assignmentId"`
	IndicatorID     string    `json:"indicatorId"`
	RawScore        float64   `json:"rawScore"`
	CalculatedScore float64   `json:"calculatedScore"`
	Remarks         string    `json:"remarks"`
	UpdatedBy       string    `json:"updatedBy"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type History struct {
	ID          string    `json:"id"`
	ScoreID     string    `json:"scoreId"`
	OldRawScore float64   `json:"oldRawScore"`
	NewRawScore float64   `json:"newRawScore"`
	OldRemarks  string    `json:"oldRemarks"`
	NewRemarks  string    `json:"newRemarks"`
	UpdatedBy   string    `json:"updatedBy"`
	UpdaterName string    `json:"updaterName"`
	ChangedAt   time.Time `json:"changedAt"`
}

// Target is the locked assignment a score is written against.
type Target struct {
	AssignmentID     string
	AssignmentStatus string
	EvaluatorID      string
	EvaluateeID      string
	Evaluation       evaluation.Evaluation
}

type SaveInput struct {
	IndicatorID string
	Score       float64
	Remarks     string
}

type SaveResult struct {
	Score   Score
	Before  *Score
	History *History
	Created bool
}
