package evidence

import (
	"context"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
)

type StoreAPI interface {
	EvaluationOf(ctx context.Context, indicatorID string) (evaluation.Evaluation, error)
	EvaluatorsOf(ctx context.Context, evaluationID, evaluateeID string) ([]string, error)
	Upsert(ctx context.Context, e Evidence) (Evidence, string, bool, error)
	Get(ctx context.Context, id string) (Evidence, string, error)
	ListForEvaluatee(ctx context.Context, evaluateeID string) ([]Evidence, error)
}

// AccessChecker answers assignment based access questions.
type AccessChecker interface {
	IsEvaluatee(ctx context.Context, evaluationID, userID string) (bool, error)
	CanReadEvidence(ctx context.Context, user auth.UserContext, evaluationID, evaluateeID string) (bool, error)
}
