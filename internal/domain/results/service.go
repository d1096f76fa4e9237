package results

import (
	"context"

	"perfeval/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) collect(ctx context.Context, rows []AssignmentRow) ([]Result, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AssignmentID)
	}
	scores, err := s.store.Scores(ctx, ids)
	if err != nil {
		return nil, err
	}
	return BuildResults(rows, scores), nil
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Result, int, error) {
	total, err := s.store.CountAssignments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.store.Assignments(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// All returns every result matching the filter, unpaginated.
func (s *Service) All(ctx context.Context, filter Filter) ([]Result, error) {
	rows, err := s.store.Assignments(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, rows)
}

func (s *Service) ForEvaluatee(ctx context.Context, userID string) ([]Result, error) {
	return s.All(ctx, Filter{EvaluateeID: userID})
}

func (s *Service) ForEvaluator(ctx context.Context, userID string) ([]Result, error) {
	return s.All(ctx, Filter{EvaluatorID: userID})
}

// Get returns one assignment's result to an admin or to either participant.
func (s *Service) Get(ctx context.Context, user auth.UserContext, assignmentID string) (Result, error) {
	row, err := s.store.Assignment(ctx, assignmentID)
	if err != nil {
		return Result{}, err
	}
	if !user.IsAdmin() && row.EvaluatorID != user.UserID && row.EvaluateeID != user.UserID {
		return Result{}, ErrForbidden
	}
	list, err := s.collect(ctx, []AssignmentRow{row})
	if err != nil {
		return Result{}, err
	}
	return list[0], nil
}

func (s *Service) Progress(ctx context.Context, evaluationID string) ([]DepartmentProgress, error) {
	departments, err := s.store.Departments(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Assignments(ctx, Filter{EvaluationID: evaluationID}, 0, 0)
	if err != nil {
		return nil, err
	}
	return BuildProgress(departments, rows), nil
}

func (s *Service) TopicAnalysis(ctx context.Context, evaluationID string) ([]TopicAnalysis, error) {
	topics, err := s.store.Topics(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Assignments(ctx, Filter{EvaluationID: evaluationID}, 0, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AssignmentID)
	}
	scores, err := s.store.Scores(ctx, ids)
	if err != nil {
		return nil, err
	}
	return BuildTopicAnalysis(topics, scores), nil
}
