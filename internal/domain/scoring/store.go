package scoring

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/domain/evaluation"
	"perfeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(StoreAPI) error) error {
	starter, ok := s.DB.(querier.TxStarter)
	if !ok {
		return fn(s)
	}
	return querier.WithTx(ctx, starter, func(tx pgx.Tx) error {
		return fn(&Store{DB: tx})
	})
}

// LockTarget loads the assignment and its evaluation, holding a row lock on
// the assignment until the transaction ends.
func (s *Store) LockTarget(ctx context.Context, assignmentID string) (Target, error) {
	var t Target
	err := s.DB.QueryRow(ctx, `
    SELECT a.id, a.status, a.evaluator_id, a.evaluatee_id,
           e.id, e.name, e.start_date, e.end_date, e.status
    FROM assignments a
    JOIN evaluations e ON e.id = a.evaluation_id
    WHERE a.id = $1
    FOR UPDATE OF a
  `, assignmentID).Scan(&t.AssignmentID, &t.AssignmentStatus, &t.EvaluatorID, &t.EvaluateeID,
		&t.Evaluation.ID, &t.Evaluation.Name, &t.Evaluation.StartDate, &t.Evaluation.EndDate, &t.Evaluation.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, ErrAssignmentNotFound
	}
	t.Evaluation.IsOpen = t.Evaluation.Status == evaluation.StatusOpen
	return t, err
}

func (s *Store) Indicator(ctx context.Context, indicatorID string) (evaluation.Indicator, string, error) {
	var ind evaluation.Indicator
	var evaluationID string
	err := s.DB.QueryRow(ctx, `
    SELECT i.id, i.topic_id, i.name, i.description, i.indicator_type, i.weight, i.require_evidence, t.evaluation_id
    FROM indicators i
    JOIN topics t ON t.id = i.topic_id
    WHERE i.id = $1
  `, indicatorID).Scan(&ind.ID, &ind.TopicID, &ind.Name, &ind.Description, &ind.Type, &ind.Weight, &ind.RequireEvidence, &evaluationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return evaluation.Indicator{}, "", ErrIndicatorNotFound
	}
	return ind, evaluationID, err
}

func (s *Store) EvidenceExists(ctx context.Context, indicatorID, evaluateeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM evidence WHERE indicator_id = $1 AND evaluatee_id = $2)
  `, indicatorID, evaluateeID).Scan(&exists)
	return exists, err
}

const scoreColumns = `id, assignment_id, indicator_id, raw_score, calculated_score, remarks, COALESCE(updated_by::text, ''), created_at, updated_at`

func scanScore(row pgx.Row) (Score, error) {
	var sc Score
	err := row.Scan(&sc.ID, &sc.AssignmentID, &sc.IndicatorID, &sc.RawScore, &sc.CalculatedScore, &sc.Remarks, &sc.UpdatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	return sc, err
}

// FindForUpdate returns the existing score for the pair, locked.
func (s *Store) FindForUpdate(ctx context.Context, assignmentID, indicatorID string) (Score, bool, error) {
	sc, err := scanScore(s.DB.QueryRow(ctx, `
    SELECT `+scoreColumns+`
    FROM scores
    WHERE assignment_id = $1 AND indicator_id = $2
    FOR UPDATE
  `, assignmentID, indicatorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Score{}, false, nil
	}
	if err != nil {
		return Score{}, false, err
	}
	return sc, true, nil
}

func (s *Store) Insert(ctx context.Context, sc Score) (Score, error) {
	return scanScore(s.DB.QueryRow(ctx, `
    INSERT INTO scores (assignment_id, indicator_id, raw_score, calculated_score, remarks, updated_by)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING `+scoreColumns,
		sc.AssignmentID, sc.IndicatorID, sc.RawScore, sc.CalculatedScore, sc.Remarks, sc.UpdatedBy))
}

func (s *Store) Update(ctx context.Context, sc Score) (Score, error) {
	return scanScore(s.DB.QueryRow(ctx, `
    UPDATE scores
    SET raw_score = $1, calculated_score = $2, remarks = $3, updated_by = $4, updated_at = now()
    WHERE id = $5
    RETURNING `+scoreColumns,
		sc.RawScore, sc.CalculatedScore, sc.Remarks, sc.UpdatedBy, sc.ID))
}

func (s *Store) InsertHistory(ctx context.Context, h History) (History, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO score_history (score_id, old_raw_score, new_raw_score, old_remarks, new_remarks, updated_by)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, changed_at
  `, h.ScoreID, h.OldRawScore, h.NewRawScore, h.OldRemarks, h.NewRemarks, h.UpdatedBy).Scan(&h.ID, &h.ChangedAt)
	return h, err
}

func (s *Store) Get(ctx context.Context, id string) (Score, error) {
	sc, err := scanScore(s.DB.QueryRow(ctx, "SELECT "+scoreColumns+" FROM scores WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Score{}, ErrNotFound
	}
	return sc, err
}

func (s *Store) EvaluatorOf(ctx context.Context, scoreID string) (string, error) {
	var evaluatorID string
	err := s.DB.QueryRow(ctx, `
    SELECT a.evaluator_id
    FROM scores sc
    JOIN assignments a ON a.id = sc.assignment_id
    WHERE sc.id = $1
  `, scoreID).Scan(&evaluatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return evaluatorID, err
}

func (s *Store) ListHistory(ctx context.Context, scoreID string) ([]History, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT h.id, h.score_id, h.old_raw_score, h.new_raw_score, h.old_remarks, h.new_remarks,
           COALESCE(h.updated_by::text, ''), COALESCE(u.name, ''), h.changed_at
    FROM score_history h
    LEFT JOIN users u ON u.id = h.updated_by
    WHERE h.score_id = $1
    ORDER BY h.changed_at DESC, h.id
  `, scoreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []History{}
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.ScoreID, &h.OldRawScore, &h.NewRawScore, &h.OldRemarks, &h.NewRemarks, &h.UpdatedBy, &h.UpdaterName, &h.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
