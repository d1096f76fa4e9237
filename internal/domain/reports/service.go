package reports

import (
	"context"
	"errors"

	"perfeval/internal/domain/auth"
)

var ErrUnknownRole = errors.New("no dashboard for role")

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Dashboard returns the summary shown on the caller's landing page.
func (s *Service) Dashboard(ctx context.Context, user auth.UserContext) (any, error) {
	switch user.Role {
	case auth.RoleAdmin:
		return s.admin(ctx)
	case auth.RoleEvaluator:
		return s.evaluator(ctx, user.UserID)
	case auth.RoleEvaluatee:
		return s.evaluatee(ctx, user.UserID)
	}
	return nil, ErrUnknownRole
}

func (s *Service) admin(ctx context.Context) (AdminDashboard, error) {
	open, err := s.store.OpenEvaluations(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	users, err := s.store.UserCount(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	counts, err := s.store.AssignmentCounts(ctx, "", "")
	if err != nil {
		return AdminDashboard{}, err
	}
	return AdminDashboard{
		Role:            auth.RoleAdmin,
		OpenEvaluations: open,
		Users:           users,
		Assignments:     counts,
		CompletionRate:  counts.CompletionRate(),
	}, nil
}

func (s *Service) evaluator(ctx context.Context, userID string) (EvaluatorDashboard, error) {
	counts, err := s.store.AssignmentCounts(ctx, userID, "")
	if err != nil {
		return EvaluatorDashboard{}, err
	}
	scores, err := s.store.ScoresRecorded(ctx, userID)
	if err != nil {
		return EvaluatorDashboard{}, err
	}
	return EvaluatorDashboard{Role: auth.RoleEvaluator, Assignments: counts, ScoresRecorded: scores}, nil
}

func (s *Service) evaluatee(ctx context.Context, userID string) (EvaluateeDashboard, error) {
	counts, err := s.store.AssignmentCounts(ctx, "", userID)
	if err != nil {
		return EvaluateeDashboard{}, err
	}
	evidence, err := s.store.EvidenceUploaded(ctx, userID)
	if err != nil {
		return EvaluateeDashboard{}, err
	}
	unread, err := s.store.UnreadNotifications(ctx, userID)
	if err != nil {
		return EvaluateeDashboard{}, err
	}
	return EvaluateeDashboard{
		Role:                auth.RoleEvaluatee,
		Assignments:         counts,
		EvidenceUploaded:    evidence,
		UnreadNotifications: unread,
	}, nil
}
