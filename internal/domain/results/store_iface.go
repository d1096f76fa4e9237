package results

import "context"

type StoreAPI interface {
	Assignments(ctx context.Context, filter Filter, limit, offset int) ([]AssignmentRow, error)
	CountAssignments(ctx context.Context, filter Filter) (int, error)
	Assignment(ctx context.Context, assignmentID string) (AssignmentRow, error)
	Scores(ctx context.Context, assignmentIDs []string) ([]ScoreRow, error)
	Topics(ctx context.Context, evaluationID string) ([]TopicRow, error)
	Departments(ctx context.Context) ([]string, error)
}
