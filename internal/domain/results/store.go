package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Store runs the reporting reads through sqlx struct scanning.
type Store struct {
	DB *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

const assignmentRowsSelect = `
    SELECT a.id AS assignment_id, a.evaluation_id, e.name AS evaluation_name,
           a.evaluatee_id, ee.name AS evaluatee_name,
           a.evaluator_id, ev.name AS evaluator_name,
           d.name AS department_name, a.status,
           COALESCE((
             SELECT SUM(i.weight) FROM indicators i
             JOIN topics t ON t.id = i.topic_id
             WHERE t.evaluation_id = a.evaluation_id
           ), 0) AS max_score
    FROM assignments a
    JOIN evaluations e ON e.id = a.evaluation_id
    JOIN users ee ON ee.id = a.evaluatee_id
    JOIN users ev ON ev.id = a.evaluator_id
    LEFT JOIN departments d ON d.id = ee.department_id
  `

func buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND (ee.name ILIKE $%d OR ev.name ILIKE $%d)", len(args), len(args))
	}
	if dept := strings.TrimSpace(filter.Department); dept != "" {
		if strings.EqualFold(dept, UnassignedDepartment) {
			where += " AND ee.department_id IS NULL"
		} else {
			args = append(args, dept)
			where += fmt.Sprintf(" AND d.name = $%d", len(args))
		}
	}
	if filter.EvaluationID != "" {
		args = append(args, filter.EvaluationID)
		where += fmt.Sprintf(" AND a.evaluation_id = $%d", len(args))
	}
	if filter.EvaluatorID != "" {
		args = append(args, filter.EvaluatorID)
		where += fmt.Sprintf(" AND a.evaluator_id = $%d", len(args))
	}
	if filter.EvaluateeID != "" {
		args = append(args, filter.EvaluateeID)
		where += fmt.Sprintf(" AND a.evaluatee_id = $%d", len(args))
	}
	return where, args
}

func (s *Store) Assignments(ctx context.Context, filter Filter, limit, offset int) ([]AssignmentRow, error) {
	where, args := buildFilter(filter)
	query := assignmentRowsSelect + where + " ORDER BY e.start_date DESC, ee.name, a.id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows := []AssignmentRow{}
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountAssignments(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.DB.GetContext(ctx, &total, `
    SELECT COUNT(1)
    FROM assignments a
    JOIN users ee ON ee.id = a.evaluatee_id
    JOIN users ev ON ev.id = a.evaluator_id
    LEFT JOIN departments d ON d.id = ee.department_id
  `+where, args...)
	return total, err
}

func (s *Store) Assignment(ctx context.Context, assignmentID string) (AssignmentRow, error) {
	var row AssignmentRow
	err := s.DB.GetContext(ctx, &row, assignmentRowsSelect+" WHERE a.id = $1", assignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return AssignmentRow{}, ErrNotFound
	}
	return row, err
}

func (s *Store) Scores(ctx context.Context, assignmentIDs []string) ([]ScoreRow, error) {
	rows := []ScoreRow{}
	if len(assignmentIDs) == 0 {
		return rows, nil
	}
	err := s.DB.SelectContext(ctx, &rows, `
    SELECT sc.assignment_id, t.id AS topic_id, t.name AS topic_name, i.name AS indicator_name,
           sc.raw_score, i.weight, sc.calculated_score
    FROM scores sc
    JOIN indicators i ON i.id = sc.indicator_id
    JOIN topics t ON t.id = i.topic_id
    WHERE sc.assignment_id = ANY($1::uuid[])
    ORDER BY t.created_at, t.name, i.created_at, i.name
  `, assignmentIDs)
	return rows, err
}

func (s *Store) Topics(ctx context.Context, evaluationID string) ([]TopicRow, error) {
	rows := []TopicRow{}
	err := s.DB.SelectContext(ctx, &rows, `
    SELECT t.id AS topic_id, t.name AS topic_name,
           COUNT(i.id) AS indicator_count,
           COALESCE(SUM(i.weight), 0) AS max_score
    FROM topics t
    LEFT JOIN indicators i ON i.topic_id = t.id
    WHERE t.evaluation_id = $1
    GROUP BY t.id, t.name, t.created_at
    ORDER BY t.created_at, t.name
  `, evaluationID)
	return rows, err
}

// Departments lists every department name.
func (s *Store) Departments(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := s.DB.SelectContext(ctx, &names, `SELECT name FROM departments ORDER BY name`); err != nil {
		return nil, err
	}
	return names, nil
}
