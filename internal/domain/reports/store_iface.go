package reports

import "context"

type StoreAPI interface {
	OpenEvaluations(ctx context.Context) (int, error)
	UserCount(ctx context.Context) (int, error)
	AssignmentCounts(ctx context.Context, evaluatorID, evaluateeID string) (AssignmentCounts, error)
	ScoresRecorded(ctx context.Context, evaluatorID string) (int, error)
	EvidenceUploaded(ctx context.Context, evaluateeID string) (int, error)
	UnreadNotifications(ctx context.Context, userID string) (int, error)
}
