package scoring

import (
	"context"
	"errors"
	"strings"
	"time"

	"perfeval/internal/domain/auth"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the time source used for the evaluation window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Save records the evaluator's score for one indicator of an assignment.
// The assignment row stays locked for the whole read-check-write sequence,
// and a history entry is written before any update that changes the value
// or the remarks.
func (s *Service) Save(ctx context.Context, user auth.UserContext, assignmentID string, in SaveInput) (SaveResult, error) {
	in.Remarks = strings.TrimSpace(in.Remarks)
	var result SaveResult
	err := s.store.WithinTx(ctx, func(tx StoreAPI) error {
		target, err := tx.LockTarget(ctx, assignmentID)
		if err != nil {
			return err
		}
		if target.EvaluatorID != user.UserID {
			return ErrNotEvaluator
		}
		if err := CheckWindow(target.Evaluation, target.AssignmentStatus, s.now()); err != nil {
			return err
		}

		ind, evaluationID, err := tx.Indicator(ctx, in.IndicatorID)
		if errors.Is(err, ErrIndicatorNotFound) || (err == nil && evaluationID != target.Evaluation.ID) {
			return ErrIndicatorNotInEvaluation
		}
		if err != nil {
			return err
		}
		if err := ValidateRaw(ind.Type, in.Score); err != nil {
			return err
		}
		if EvidenceRequired(ind, in.Score) {
			ok, err := tx.EvidenceExists(ctx, ind.ID, target.EvaluateeID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrEvidenceRequired
			}
		}

		next := Score{
			AssignmentID:    target.AssignmentID,
			IndicatorID:     ind.ID,
			RawScore:        in.Score,
			CalculatedScore: Calculate(ind.Type, ind.Weight, in.Score),
			Remarks:         in.Remarks,
			UpdatedBy:       user.UserID,
		}

		existing, found, err := tx.FindForUpdate(ctx, target.AssignmentID, ind.ID)
		if err != nil {
			return err
		}
		if !found {
			saved, err := tx.Insert(ctx, next)
			if err != nil {
				return err
			}
			result = SaveResult{Score: saved, Created: true}
			return nil
		}

		before := existing
		result.Before = &before
		if Changed(existing, in.Score, in.Remarks) {
			h, err := tx.InsertHistory(ctx, History{
				ScoreID:     existing.ID,
				OldRawScore: existing.RawScore,
				NewRawScore: in.Score,
				OldRemarks:  existing.Remarks,
				NewRemarks:  in.Remarks,
				UpdatedBy:   user.UserID,
			})
			if err != nil {
				return err
			}
			result.History = &h
		}
		next.ID = existing.ID
		saved, err := tx.Update(ctx, next)
		if err != nil {
			return err
		}
		result.Score = saved
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	return result, nil
}

// History lists the change log of a score, newest first. Admins see every
// score; evaluators only their own.
func (s *Service) History(ctx context.Context, user auth.UserContext, scoreID string) ([]History, error) {
	evaluatorID, err := s.store.EvaluatorOf(ctx, scoreID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() && evaluatorID != user.UserID {
		return nil, ErrForbidden
	}
	return s.store.ListHistory(ctx, scoreID)
}

func (s *Service) Get(ctx context.Context, id string) (Score, error) {
	return s.store.Get(ctx, id)
}
