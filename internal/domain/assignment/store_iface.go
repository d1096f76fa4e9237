package assignment

import (
	"context"

	"perfeval/internal/domain/evaluation"
)

type StoreAPI interface {
	List(ctx context.Context, filter Filter, limit, offset int) ([]Assignment, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Get(ctx context.Context, id string) (Assignment, error)
	EvaluationExists(ctx context.Context, evaluationID string) (bool, error)
	UserRole(ctx context.Context, userID string) (string, error)
	Create(ctx context.Context, evaluationID, evaluatorID, evaluateeID string) (string, error)
	UpdateStatus(ctx context.Context, id, from, to string) error
	Progress(ctx context.Context, assignmentID string) (Progress, error)
	EvidenceByIndicator(ctx context.Context, evaluationID, evaluateeID string) (map[string]EvidenceRef, error)
	ScoresByIndicator(ctx context.Context, assignmentID string) (map[string]ScoreRef, error)
	IsEvaluateeIn(ctx context.Context, evaluationID, evaluateeID string) (bool, error)
	EvaluatesIn(ctx context.Context, evaluationID, evaluatorID, evaluateeID string) (bool, error)
}

// EvaluationSource supplies the evaluation and topic tree behind an assignment.
type EvaluationSource interface {
	Get(ctx context.Context, id string) (evaluation.Evaluation, error)
	Topics(ctx context.Context, evaluationID string) ([]evaluation.Topic, error)
}
