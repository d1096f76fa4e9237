package results

import "database/sql"

const UnassignedDepartment = "Unassigned"

type Detail struct {
	Topic           string  `json:"topic"`
	Indicator       string  `json:"indicator"`
	Score           float64 `json:"score"`
	Weight          float64 `json:"weight"`
	CalculatedScore float64 `json:"calculatedScore"`
}

type Result struct {
	AssignmentID string   `json:"assignmentId"`
	EvaluationID string   `json:"evaluationId"`
	Evaluation   string   `json:"evaluation"`
	EvaluateeID  string   `json:"evaluateeId"`
	Evaluatee    string   `json:"evaluatee"`
	EvaluatorID  string   `json:"evaluatorId"`
	Evaluator    string   `json:"evaluator"`
	Department   string   `json:"department"`
	Status       string   `json:"status"`
	TotalScore   float64  `json:"totalScore"`
	MaxScore     float64  `json:"maxScore"`
	Details      []Detail `json:"details"`
}

type DepartmentProgress struct {
	Department string  `json:"department"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

type TopicAnalysis struct {
	TopicID           string  `json:"topicId"`
	Topic             string  `json:"topic"`
	IndicatorCount    int     `json:"indicatorCount"`
	MaxScore          float64 `json:"maxScore"`
	ScoredAssignments int     `json:"scoredAssignments"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
}

type Filter struct {
	Query        string
	Department   string
	EvaluationID string
	EvaluatorID  string
	EvaluateeID  string
}

// AssignmentRow is one assignment as fetched for reporting.
type AssignmentRow struct {
	AssignmentID string         `db:"assignment_id"`
	EvaluationID string         `db:"evaluation_id"`
	Evaluation   string         `db:"evaluation_name"`
	EvaluateeID  string         `db:"evaluatee_id"`
	Evaluatee    string         `db:"evaluatee_name"`
	EvaluatorID  string         `db:"evaluator_id"`
	Evaluator    string         `db:"evaluator_name"`
	Department   sql.NullString `db:"department_name"`
	Status       string         `db:"status"`
	MaxScore     float64        `db:"max_score"`
}

// ScoreRow is one recorded score with its indicator and topic.
type ScoreRow struct {
	AssignmentID    string  `db:"assignment_id"`
	TopicID         string  `db:"topic_id"`
	Topic           string  `db:"topic_name"`
	Indicator       string  `db:"indicator_name"`
	RawScore        float64 `db:"raw_score"`
	Weight          float64 `db:"weight"`
	CalculatedScore float64 `db:"calculated_score"`
}

// TopicRow describes a topic's indicator count and weight sum.
type TopicRow struct {
	TopicID        string  `db:"topic_id"`
	Topic          string  `db:"topic_name"`
	IndicatorCount int     `db:"indicator_count"`
	MaxScore       float64 `db:"max_score"`
}
