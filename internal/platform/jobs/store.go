package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"perfeval/internal/platform/querier"
)

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt"`
}

type RunFilter struct {
	JobType string
	Status  string
}

// RunStore records job executions.
type RunStore interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, id, status string, details []byte) error
	ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error)
	CountRuns(ctx context.Context, filter RunFilter) (int, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) StartRun(ctx context.Context, jobType string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, id, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, id)
	return err
}

func buildRunFilter(filter RunFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.JobType != "" {
		args = append(args, filter.JobType)
		where += fmt.Sprintf(" AND job_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return where, args
}

func (s *Store) ListRuns(ctx context.Context, filter RunFilter, limit, offset int) ([]Run, error) {
	where, args := buildRunFilter(filter)
	query := "SELECT id, job_type, status, details_json, started_at, completed_at FROM job_runs" + where +
		fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		var details []byte
		if err := rows.Scan(&r.ID, &r.JobType, &r.Status, &details, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			r.Details = details
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	where, args := buildRunFilter(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM job_runs"+where, args...).Scan(&total)
	return total, err
}
