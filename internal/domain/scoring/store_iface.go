package scoring

import (
	"context"

	"perfeval/internal/domain/evaluation"
)

type StoreAPI interface {
	WithinTx(ctx context.Context, fn func(StoreAPI) error) error
	LockTarget(ctx context.Context, assignmentID string) (Target, error)
	Indicator(ctx context.Context, indicatorID string) (evaluation.Indicator, string, error)
	EvidenceExists(ctx context.Context, indicatorID, evaluateeID string) (bool, error)
	FindForUpdate(ctx context.Context, assignmentID, indicatorID string) (Score, bool, error)
	Insert(ctx context.Context, sc Score) (Score, error)
	Update(ctx context.Context, sc Score) (Score, error)
	InsertHistory(ctx context.Context, h History) (History, error)
	Get(ctx context.Context, id string) (Score, error)
	EvaluatorOf(ctx context.Context, scoreID string) (string, error)
	ListHistory(ctx context.Context, scoreID string) ([]History, error)
}
