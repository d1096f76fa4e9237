package evaluation

import (
	"context"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Evaluation, int, error) {
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

func (s *Service) Get(ctx context.Context, id string) (Evaluation, error) {
	return s.store.Get(ctx, id)
}

// Detail loads the evaluation with its topic tree and assignments.
func (s *Service) Detail(ctx context.Context, id string) (Detail, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	topics, err := s.store.ListTopics(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	refs, err := s.store.ListAssignmentRefs(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Evaluation: e, Topics: topics, Assignments: refs}, nil
}

func (s *Service) Topics(ctx context.Context, evaluationID string) ([]Topic, error) {
	return s.store.ListTopics(ctx, evaluationID)
}

func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Evaluation, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := ValidateCreate(in); err != nil {
		return Evaluation{}, err
	}
	id, err := s.store.Create(ctx, in, StatusFromOpen(in.Open), actorID)
	if err != nil {
		return Evaluation{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Evaluation, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	name, description := current.Name, current.Description
	start, end := current.StartDate, current.EndDate
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return Evaluation{}, ErrNameRequired
		}
	}
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}
	if in.StartDate != nil {
		start = *in.StartDate
	}
	if in.EndDate != nil {
		end = *in.EndDate
	}
	if err := ValidateDates(start, end); err != nil {
		return Evaluation{}, err
	}
	if err := s.store.Update(ctx, id, name, description, start, end); err != nil {
		return Evaluation{}, err
	}
	return s.store.Get(ctx, id)
}

// SetStatus returns the evaluation before and after the change.
func (s *Service) SetStatus(ctx context.Context, id, status string) (Evaluation, Evaluation, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Evaluation{}, Evaluation{}, err
	}
	next, err := NextStatus(current.Status, status)
	if err != nil {
		return current, Evaluation{}, err
	}
	if err := s.store.UpdateStatus(ctx, id, next); err != nil {
		return current, Evaluation{}, err
	}
	updated, err := s.store.Get(ctx, id)
	return current, updated, err
}

func (s *Service) AddTopic(ctx context.Context, evaluationID string, in TopicInput) (Topic, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Weight == 0 {
		in.Weight = DefaultTopicWeight
	}
	if err := ValidateTopic(in); err != nil {
		return Topic{}, err
	}
	if _, err := s.store.Get(ctx, evaluationID); err != nil {
		return Topic{}, err
	}
	id, err := s.store.CreateTopic(ctx, evaluationID, in)
	if err != nil {
		return Topic{}, err
	}
	return Topic{ID: id, EvaluationID: evaluationID, Name: in.Name, Weight: in.Weight, Indicators: []Indicator{}}, nil
}

func (s *Service) AddIndicator(ctx context.Context, topicID string, in IndicatorInput) (Indicator, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	exists, err := s.store.TopicExists(ctx, topicID)
	if err != nil {
		return Indicator{}, err
	}
	if !exists {
		return Indicator{}, ErrTopicNotFound
	}
	if err := ValidateIndicator(in); err != nil {
		return Indicator{}, err
	}
	id, err := s.store.CreateIndicator(ctx, topicID, in)
	if err != nil {
		return Indicator{}, err
	}
	return Indicator{
		ID:              id,
		TopicID:         topicID,
		Name:            in.Name,
		Description:     in.Description,
		Type:            in.Type,
		Weight:          in.Weight,
		RequireEvidence: in.RequireEvidence,
	}, nil
}

// Import creates an evaluation with its whole topic tree in one transaction.
func (s *Service) Import(ctx context.Context, actorID string, doc ImportDocument) (Detail, error) {
	create, topics, err := doc.Inputs()
	if err != nil {
		return Detail{}, err
	}
	var evaluationID string
	err = s.store.WithinTx(ctx, func(tx StoreAPI) error {
		id, err := tx.Create(ctx, create, StatusFromOpen(create.Open), actorID)
		if err != nil {
			return err
		}
		evaluationID = id
		for _, topic := range topics {
			topicID, err := tx.CreateTopic(ctx, id, topic.Topic)
			if err != nil {
				return err
			}
			for _, indicator := range topic.Indicators {
				if _, err := tx.CreateIndicator(ctx, topicID, indicator); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	return s.Detail(ctx, evaluationID)
}
