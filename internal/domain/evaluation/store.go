package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// WithinTx runs fn against a transaction-bound store when the underlying
// handle can begin transactions.
func (s *Store) WithinTx(ctx context.Context, fn func(StoreAPI) error) error {
	starter, ok := s.DB.(querier.TxStarter)
	if !ok {
		return fn(s)
	}
	return querier.WithTx(ctx, starter, func(tx pgx.Tx) error {
		return fn(&Store{DB: tx})
	})
}

const evaluationColumns = `
    e.id, e.name, e.description, e.start_date, e.end_date, e.status, e.created_at,
    (SELECT COUNT(1) FROM topics t WHERE t.evaluation_id = e.id),
    (SELECT COUNT(1) FROM assignments a WHERE a.evaluation_id = e.id)
  `

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.StartDate, &e.EndDate, &e.Status, &e.CreatedAt, &e.TopicCount, &e.AssignmentCount)
	e.IsOpen = e.Status == StatusOpen
	return e, err
}

func (s *Store) buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND e.name ILIKE $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Evaluation, error) {
	where, args := s.buildFilter(filter)
	query := "SELECT " + evaluationColumns + " FROM evaluations e" + where
	query += fmt.Sprintf(" ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := s.buildFilter(filter)
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM evaluations e"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) Get(ctx context.Context, id string) (Evaluation, error) {
	e, err := scanEvaluation(s.DB.QueryRow(ctx, "SELECT "+evaluationColumns+" FROM evaluations e WHERE e.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return e, err
}

func (s *Store) Create(ctx context.Context, in CreateInput, status, createdBy string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO evaluations (name, description, start_date, end_date, status, created_by)
    VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')::uuid)
    RETURNING id
  `, in.Name, in.Description, in.StartDate, in.EndDate, status, createdBy).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, id, name, description string, start, end time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET name = $1, description = $2, start_date = $3, end_date = $4, updated_at = now()
    WHERE id = $5
  `, name, description, start, end, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE evaluations SET status = $1, updated_at = now() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateTopic(ctx context.Context, evaluationID string, in TopicInput) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO topics (evaluation_id, name, weight)
    VALUES ($1,$2,$3)
    RETURNING id
  `, evaluationID, in.Name, in.Weight).Scan(&id)
	if querier.IsForeignKeyViolation(err) {
		return "", ErrNotFound
	}
	return id, err
}

func (s *Store) TopicExists(ctx context.Context, topicID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1)", topicID).Scan(&exists)
	return exists, err
}

func (s *Store) CreateIndicator(ctx context.Context, topicID string, in IndicatorInput) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO indicators (topic_id, name, description, indicator_type, weight, require_evidence)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, topicID, in.Name, in.Description, in.Type, in.Weight, in.RequireEvidence).Scan(&id)
	if querier.IsForeignKeyViolation(err) {
		return "", ErrTopicNotFound
	}
	return id, err
}

func (s *Store) ListTopics(ctx context.Context, evaluationID string) ([]Topic, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT t.id, t.evaluation_id, t.name, t.weight,
           i.id::text, i.name, i.description, i.indicator_type, i.weight, i.require_evidence
    FROM topics t
    LEFT JOIN indicators i ON i.topic_id = t.id
    WHERE t.evaluation_id = $1
    ORDER BY t.created_at, t.id, i.created_at, i.id
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Topic{}
	index := map[string]int{}
	for rows.Next() {
		var t Topic
		var indID, indName, indDesc, indType *string
		var indWeight *float64
		var indEvidence *bool
		if err := rows.Scan(&t.ID, &t.EvaluationID, &t.Name, &t.Weight, &indID, &indName, &indDesc, &indType, &indWeight, &indEvidence); err != nil {
			return nil, err
		}
		pos, ok := index[t.ID]
		if !ok {
			t.Indicators = []Indicator{}
			out = append(out, t)
			pos = len(out) - 1
			index[t.ID] = pos
		}
		if indID != nil {
			out[pos].Indicators = append(out[pos].Indicators, Indicator{
				ID:              *indID,
				TopicID:         t.ID,
				Name:            *indName,
				Description:     *indDesc,
				Type:            *indType,
				Weight:          *indWeight,
				RequireEvidence: *indEvidence,
			})
		}
	}
	return out, rows.Err()
}

func (s *Store) ListAssignmentRefs(ctx context.Context, evaluationID string) ([]AssignmentRef, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.status, ev.id, ev.name, ev.email, ee.id, ee.name, ee.email
    FROM assignments a
    JOIN users ev ON ev.id = a.evaluator_id
    JOIN users ee ON ee.id = a.evaluatee_id
    WHERE a.evaluation_id = $1
    ORDER BY ee.name, ev.name
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AssignmentRef{}
	for rows.Next() {
		var a AssignmentRef
		if err := rows.Scan(&a.ID, &a.Status, &a.Evaluator.ID, &a.Evaluator.Name, &a.Evaluator.Email, &a.Evaluatee.ID, &a.Evaluatee.Name, &a.Evaluatee.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CloseExpired flips OPEN evaluations whose end date passed to CLOSED.
func (s *Store) CloseExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    UPDATE evaluations
    SET status = 'CLOSED', updated_at = now()
    WHERE status = 'OPEN' AND end_date < $1
    RETURNING id
  `, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
