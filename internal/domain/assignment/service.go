package assignment

import (
	"context"
	"errors"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
)

type Service struct {
	store       StoreAPI
	evaluations EvaluationSource
}

func NewService(store StoreAPI, evaluations EvaluationSource) *Service {
	return &Service{store: store, evaluations: evaluations}
}

type CreateInput struct {
	EvaluationID string
	EvaluatorID  string
	EvaluateeID  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Assignment, error) {
	exists, err := s.store.EvaluationExists(ctx, in.EvaluationID)
	if err != nil {
		return Assignment{}, err
	}
	if !exists {
		return Assignment{}, ErrEvaluationNotFound
	}
	role, err := s.store.UserRole(ctx, in.EvaluatorID)
	if err != nil {
		return Assignment{}, err
	}
	if role != auth.RoleEvaluator {
		return Assignment{}, ErrInvalidEvaluator
	}
	role, err = s.store.UserRole(ctx, in.EvaluateeID)
	if err != nil {
		return Assignment{}, err
	}
	if role != auth.RoleEvaluatee {
		return Assignment{}, ErrInvalidEvaluatee
	}
	id, err := s.store.Create(ctx, in.EvaluationID, in.EvaluatorID, in.EvaluateeID)
	if err != nil {
		return Assignment{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Assignment, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (Assignment, error) {
	return s.store.Get(ctx, id)
}

// ListMine returns the caller's assignments, evaluator or evaluatee side
// depending on role, expanded with the evaluation tree.
func (s *Service) ListMine(ctx context.Context, user auth.UserContext) ([]Workspace, error) {
	filter := Filter{}
	switch user.Role {
	case auth.RoleEvaluator:
		filter.EvaluatorID = user.UserID
	case auth.RoleEvaluatee:
		filter.EvaluateeID = user.UserID
	default:
		return []Workspace{}, nil
	}
	list, err := s.store.List(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}

	topicsByEvaluation := map[string][]evaluation.Topic{}
	evaluations := map[string]evaluation.Evaluation{}
	out := make([]Workspace, 0, len(list))
	for _, a := range list {
		e, ok := evaluations[a.EvaluationID]
		if !ok {
			e, err = s.evaluations.Get(ctx, a.EvaluationID)
			if err != nil {
				return nil, err
			}
			evaluations[a.EvaluationID] = e
		}
		topics, ok := topicsByEvaluation[a.EvaluationID]
		if !ok {
			topics, err = s.evaluations.Topics(ctx, a.EvaluationID)
			if err != nil {
				return nil, err
			}
			topicsByEvaluation[a.EvaluationID] = topics
		}
		evidence, err := s.store.EvidenceByIndicator(ctx, a.EvaluationID, a.EvaluateeID)
		if err != nil {
			return nil, err
		}
		scores, err := s.store.ScoresByIndicator(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Workspace{
			Assignment: a,
			Evaluation: e,
			Topics:     BuildTopicViews(topics, evidence, scores),
		})
	}
	return out, nil
}

// BuildTopicViews attaches evidence and scores to each indicator of the tree.
func BuildTopicViews(topics []evaluation.Topic, evidence map[string]EvidenceRef, scores map[string]ScoreRef) []TopicView {
	out := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		view := TopicView{ID: t.ID, Name: t.Name, Weight: t.Weight, Indicators: make([]IndicatorView, 0, len(t.Indicators))}
		for _, ind := range t.Indicators {
			iv := IndicatorView{Indicator: ind}
			if ev, ok := evidence[ind.ID]; ok {
				ev := ev
				iv.Evidence = &ev
			}
			if sc, ok := scores[ind.ID]; ok {
				sc := sc
				iv.Score = &sc
			}
			view.Indicators = append(view.Indicators, iv)
		}
		out = append(out, view)
	}
	return out
}

// Submit moves a draft to SUBMITTED once every indicator has a score.
// Only the assigned evaluator may submit.
func (s *Service) Submit(ctx context.Context, user auth.UserContext, id string) (Assignment, Assignment, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	if before.EvaluatorID != user.UserID {
		return before, Assignment{}, ErrNotAssigned
	}
	next, err := Transition(before.Status, ActionSubmit)
	if err != nil {
		return before, Assignment{}, err
	}
	progress, err := s.store.Progress(ctx, id)
	if err != nil {
		return before, Assignment{}, err
	}
	if progress.Indicators == 0 || progress.Scored < progress.Indicators {
		return before, Assignment{}, ErrIncomplete
	}
	return s.apply(ctx, before, next)
}

func (s *Service) Reopen(ctx context.Context, id string) (Assignment, Assignment, error) {
	return s.transition(ctx, id, ActionReopen)
}

func (s *Service) Lock(ctx context.Context, id string) (Assignment, Assignment, error) {
	return s.transition(ctx, id, ActionLock)
}

func (s *Service) transition(ctx context.Context, id, action string) (Assignment, Assignment, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Assignment{}, Assignment{}, err
	}
	next, err := Transition(before.Status, action)
	if err != nil {
		return before, Assignment{}, err
	}
	return s.apply(ctx, before, next)
}

func (s *Service) apply(ctx context.Context, before Assignment, next string) (Assignment, Assignment, error) {
	if err := s.store.UpdateStatus(ctx, before.ID, before.Status, next); err != nil {
		return before, Assignment{}, err
	}
	after, err := s.store.Get(ctx, before.ID)
	return before, after, err
}

// CanReadEvidence reports whether the user may see evidence uploaded by
// evaluateeID for an evaluation.
func (s *Service) CanReadEvidence(ctx context.Context, user auth.UserContext, evaluationID, evaluateeID string) (bool, error) {
	switch {
	case user.IsAdmin():
		return true, nil
	case user.UserID == evaluateeID:
		return true, nil
	case user.Role == auth.RoleEvaluator:
		return s.store.EvaluatesIn(ctx, evaluationID, user.UserID, evaluateeID)
	}
	return false, nil
}

// IsEvaluatee reports whether the user is assigned as evaluatee in the evaluation.
func (s *Service) IsEvaluatee(ctx context.Context, evaluationID, userID string) (bool, error) {
	return s.store.IsEvaluateeIn(ctx, evaluationID, userID)
}

// Participant reports whether the user is the evaluator or evaluatee of the assignment.
func Participant(a Assignment, userID string) bool {
	return a.EvaluatorID == userID || a.EvaluateeID == userID
}

// IsNotFound matches both missing assignments and missing evaluations.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrEvaluationNotFound) || errors.Is(err, evaluation.ErrNotFound)
}
