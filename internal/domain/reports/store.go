package reports

import (
	"context"
	"fmt"

	"perfeval/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) OpenEvaluations(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(1) FROM evaluations WHERE status = 'OPEN'")
}

func (s *Store) UserCount(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(1) FROM users")
}

// AssignmentCounts counts assignments by status, optionally narrowed to one
// evaluator or evaluatee.
func (s *Store) AssignmentCounts(ctx context.Context, evaluatorID, evaluateeID string) (AssignmentCounts, error) {
	query := `
    SELECT
      COUNT(1) FILTER (WHERE status = 'DRAFT'),
      COUNT(1) FILTER (WHERE status = 'SUBMITTED'),
      COUNT(1) FILTER (WHERE status = 'LOCKED')
    FROM assignments
    WHERE 1=1
  `
	var args []any
	if evaluatorID != "" {
		args = append(args, evaluatorID)
		query += fmt.Sprintf(" AND evaluator_id::text = $%d", len(args))
	}
	if evaluateeID != "" {
		args = append(args, evaluateeID)
		query += fmt.Sprintf(" AND evaluatee_id::text = $%d", len(args))
	}
	var c AssignmentCounts
	err := s.DB.QueryRow(ctx, query, args...).Scan(&c.Draft, &c.Submitted, &c.Locked)
	return c, err
}

func (s *Store) ScoresRecorded(ctx context.Context, evaluatorID string) (int, error) {
	return s.count(ctx, `
    SELECT COUNT(1) FROM scores sc
    JOIN assignments a ON a.id = sc.assignment_id
    WHERE a.evaluator_id::text = $1
  `, evaluatorID)
}

func (s *Store) EvidenceUploaded(ctx context.Context, evaluateeID string) (int, error) {
	return s.count(ctx, "SELECT COUNT(1) FROM evidence WHERE evaluatee_id::text = $1", evaluateeID)
}

func (s *Store) UnreadNotifications(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, "SELECT COUNT(1) FROM notifications WHERE user_id::text = $1 AND read_at IS NULL", userID)
}
