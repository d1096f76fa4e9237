package evaluation

import "time"

type Evaluation struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Status          string    `json:"status"`
	IsOpen          bool      `json:"isOpen"`
	TopicCount      int       `json:"topicCount"`
	AssignmentCount int       `json:"assignmentCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AcceptsSubmissions reports whether the evaluation is open and now falls
// inside [StartDate, EndDate].
func (e Evaluation) AcceptsSubmissions(now time.Time) bool {
	return e.Status == StatusOpen && !now.Before(e.StartDate) && !now.After(e.EndDate)
}

type Topic struct {
	ID           string      `json:"id"`
	EvaluationID string      `json:"evaluationId"`
	Name         string      `json:"name"`
	Weight       float64     `json:"weight"`
	Indicators   []Indicator `json:"indicators"`
}

type Indicator struct {
	ID              string  `json:"id"`
	TopicID         string  `json:"topicId"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Type            string  `json:"indicatorType"`
	Weight          float64 `json:"weight"`
	RequireEvidence bool    `json:"requireEvidence"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AssignmentRef struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Evaluator UserRef `json:"evaluator"`
	Evaluatee UserRef `json:"evaluatee"`
}

type Detail struct {
	Evaluation
	Topics      []Topic         `json:"topics"`
	Assignments []AssignmentRef `json:"assignments"`
}

type CreateInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Open        bool
}

type UpdateInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type TopicInput struct {
	Name   string
	Weight float64
}

type IndicatorInput struct {
	Name            string
	Description     string
	Type            string
	Weight          float64
	RequireEvidence bool
}

type Filter struct {
	Query  string
	Status string
}
