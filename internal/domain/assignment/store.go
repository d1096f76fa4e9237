package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const assignmentSelect = `
    SELECT a.id, a.evaluation_id, e.name, a.evaluator_id, ev.name, a.evaluatee_id, ee.name,
           COALESCE(d.name, ''), a.status, a.submitted_at, a.locked_at, a.created_at
    FROM assignments a
    JOIN evaluations e ON e.id = a.evaluation_id
    JOIN users ev ON ev.id = a.evaluator_id
    JOIN users ee ON ee.id = a.evaluatee_id
    LEFT JOIN departments d ON d.id = ee.department_id
  `

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.EvaluationID, &a.EvaluationName, &a.EvaluatorID, &a.EvaluatorName, &a.EvaluateeID, &a.EvaluateeName,
		&a.DepartmentName, &a.Status, &a.SubmittedAt, &a.LockedAt, &a.CreatedAt)
	return a, err
}

func buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND (ev.name ILIKE $%d OR ee.name ILIKE $%d OR e.name ILIKE $%d)", len(args), len(args), len(args))
	}
	if filter.EvaluationID != "" {
		add(" AND a.evaluation_id = $%d", filter.EvaluationID)
	}
	if filter.Status != "" {
		add(" AND a.status = $%d", filter.Status)
	}
	if filter.EvaluatorID != "" {
		add(" AND a.evaluator_id = $%d", filter.EvaluatorID)
	}
	if filter.EvaluateeID != "" {
		add(" AND a.evaluatee_id = $%d", filter.EvaluateeID)
	}
	return where, args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Assignment, error) {
	where, args := buildFilter(filter)
	query := assignmentSelect + where
	if limit > 0 {
		query += fmt.Sprintf(" ORDER BY a.created_at DESC, a.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	} else {
		query += " ORDER BY a.created_at DESC, a.id"
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM assignments a
    JOIN evaluations e ON e.id = a.evaluation_id
    JOIN users ev ON ev.id = a.evaluator_id
    JOIN users ee ON ee.id = a.evaluatee_id
  `+where, args...).Scan(&total)
	return total, err
}

func (s *Store) Get(ctx context.Context, id string) (Assignment, error) {
	a, err := scanAssignment(s.DB.QueryRow(ctx, assignmentSelect+" WHERE a.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

func (s *Store) EvaluationExists(ctx context.Context, evaluationID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM evaluations WHERE id = $1)", evaluationID).Scan(&exists)
	return exists, err
}

func (s *Store) UserRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.DB.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return role, err
}

func (s *Store) Create(ctx context.Context, evaluationID, evaluatorID, evaluateeID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO assignments (evaluation_id, evaluator_id, evaluatee_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, evaluationID, evaluatorID, evaluateeID).Scan(&id)
	if querier.IsUniqueViolation(err) {
		return "", ErrAlreadyExists
	}
	return id, err
}

func (s *Store) UpdateStatus(ctx context.Context, id, from, to string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE assignments
    SET status = $1,
        submitted_at = CASE WHEN $1 = 'SUBMITTED' THEN now() WHEN $1 = 'DRAFT' THEN NULL ELSE submitted_at END,
        locked_at = CASE WHEN $1 = 'LOCKED' THEN now() ELSE locked_at END,
        updated_at = now()
    WHERE id = $2 AND status = $3
  `, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// LockSubmitted locks every submitted assignment of the given evaluations.
func (s *Store) LockSubmitted(ctx context.Context, evaluationIDs []string) (int64, error) {
	if len(evaluationIDs) == 0 {
		return 0, nil
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE assignments
    SET status = 'LOCKED', locked_at = now(), updated_at = now()
    WHERE status = 'SUBMITTED' AND evaluation_id = ANY($1::uuid[])
  `, evaluationIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Progress(ctx context.Context, assignmentID string) (Progress, error) {
	var p Progress
	err := s.DB.QueryRow(ctx, `
    SELECT
      (SELECT COUNT(1) FROM indicators i JOIN topics t ON t.id = i.topic_id WHERE t.evaluation_id = a.evaluation_id),
      (SELECT COUNT(1) FROM scores sc WHERE sc.assignment_id = a.id)
    FROM assignments a
    WHERE a.id = $1
  `, assignmentID).Scan(&p.Indicators, &p.Scored)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, ErrNotFound
	}
	return p, err
}

func (s *Store) EvidenceByIndicator(ctx context.Context, evaluationID, evaluateeID string) (map[string]EvidenceRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT ev.indicator_id, ev.id, ev.file_url, ev.file_name, ev.uploaded_at
    FROM evidence ev
    JOIN indicators i ON i.id = ev.indicator_id
    JOIN topics t ON t.id = i.topic_id
    WHERE t.evaluation_id = $1 AND ev.evaluatee_id = $2
  `, evaluationID, evaluateeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]EvidenceRef{}
	for rows.Next() {
		var indicatorID string
		var ref EvidenceRef
		if err := rows.Scan(&indicatorID, &ref.ID, &ref.FileURL, &ref.FileName, &ref.UploadedAt); err != nil {
			return nil, err
		}
		out[indicatorID] = ref
	}
	return out, rows.Err()
}

func (s *Store) ScoresByIndicator(ctx context.Context, assignmentID string) (map[string]ScoreRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT indicator_id, id, raw_score, calculated_score, remarks, updated_at
    FROM scores
    WHERE assignment_id = $1
  `, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]ScoreRef{}
	for rows.Next() {
		var indicatorID string
		var ref ScoreRef
		if err := rows.Scan(&indicatorID, &ref.ID, &ref.RawScore, &ref.CalculatedScore, &ref.Remarks, &ref.UpdatedAt); err != nil {
			return nil, err
		}
		out[indicatorID] = ref
	}
	return out, rows.Err()
}

func (s *Store) IsEvaluateeIn(ctx context.Context, evaluationID, evaluateeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM assignments WHERE evaluation_id = $1 AND evaluatee_id = $2)
  `, evaluationID, evaluateeID).Scan(&exists)
	return exists, err
}

func (s *Store) EvaluatesIn(ctx context.Context, evaluationID, evaluatorID, evaluateeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM assignments
      WHERE evaluation_id = $1 AND evaluator_id = $2 AND evaluatee_id = $3
    )
  `, evaluationID, evaluatorID, evaluateeID).Scan(&exists)
	return exists, err
}
