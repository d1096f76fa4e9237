package assignment

import (
	"time"

	"perfeval/internal/domain/evaluation"
)

type Assignment struct {
	ID             string     `json:"id"`
	EvaluationID   string     `json:"evaluationId"`
	EvaluationName string     `json:"evaluationName"`
	EvaluatorID    string     `json:"evaluatorId"`
	EvaluatorName  string     `json:"evaluatorName"`
	EvaluateeID    string     `json:"evaluateeId"`
	EvaluateeName  string     `json:"evaluateeName"`
	DepartmentName string     `json:"departmentName"`
	Status         string     `json:"status"`
	SubmittedAt    *time.Time `json:"submittedAt"`
	LockedAt       *time.Time `json:"lockedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type Filter struct {
	Query        string
	EvaluationID string
	Status       string
	EvaluatorID  string
	EvaluateeID  string
}

type EvidenceRef struct {
	ID         string    `json:"id"`
	FileURL    string    `json:"fileUrl"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type ScoreRef struct {
	ID              string    `json:"id"`
	RawScore        float64   `json:"rawScore"`
	CalculatedScore float64   `json:"calculatedScore"`
	Remarks         string    `json:"remarks"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type IndicatorView struct {
	evaluation.Indicator
	Evidence *EvidenceRef `json:"evidence"`
	Score    *ScoreRef    `json:"score"`
}

type TopicView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Weight     float64         `json:"weight"`
	Indicators []IndicatorView `json:"indicators"`
}

// Workspace is an assignment as seen by its evaluator or evaluatee.
type Workspace struct {
	Assignment
	Evaluation evaluation.Evaluation `json:"evaluation"`
	Topics     []TopicView           `json:"topics"`
}

type Progress struct {
	Indicators int `json:"indicators"`
	Scored     int `json:"scored"`
}
