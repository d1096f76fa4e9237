package evidence

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

// EvaluationOf returns the evaluation an indicator belongs to.
func (s *Store) EvaluationOf(ctx context.Context, indicatorID string) (evaluation.Evaluation, error) {
	var e evaluation.Evaluation
	err := s.DB.QueryRow(ctx, `
    SELECT e.id, e.name, e.start_date, e.end_date, e.status
    FROM indicators i
    JOIN topics t ON t.id = i.topic_id
    JOIN evaluations e ON e.id = t.evaluation_id
    WHERE i.id = $1
  `, indicatorID).Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate, &e.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return evaluation.Evaluation{}, ErrIndicatorNotFound
	}
	e.IsOpen = e.Status == evaluation.StatusOpen
	return e, err
}

func (s *Store) EvaluatorsOf(ctx context.Context, evaluationID, evaluateeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT evaluator_id
    FROM assignments
    WHERE evaluation_id = $1 AND evaluatee_id = $2
  `, evaluationID, evaluateeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const evidenceColumns = `id, indicator_id, evaluatee_id, file_url, storage_key, file_name, content_type, size_bytes, uploaded_at`

func scanEvidence(row pgx.Row) (Evidence, error) {
	var e Evidence
	err := row.Scan(&e.ID, &e.IndicatorID, &e.EvaluateeID, &e.FileURL, &e.StorageKey, &e.FileName, &e.ContentType, &e.SizeBytes, &e.UploadedAt)
	return e, err
}

// Upsert replaces the evidence for (indicator, evaluatee) and returns the
// previous storage key, if any.
func (s *Store) Upsert(ctx context.Context, e Evidence) (Evidence, string, bool, error) {
	var previous *string
	row := s.DB.QueryRow(ctx, `
    WITH prev AS (
      SELECT storage_key FROM evidence WHERE indicator_id = $1 AND evaluatee_id = $2
    )
    INSERT INTO evidence (indicator_id, evaluatee_id, file_url, storage_key, file_name, content_type, size_bytes)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (indicator_id, evaluatee_id) DO UPDATE
    SET file_url = EXCLUDED.file_url,
        storage_key = EXCLUDED.storage_key,
        file_name = EXCLUDED.file_name,
        content_type = EXCLUDED.content_type,
        size_bytes = EXCLUDED.size_bytes,
        uploaded_at = now()
    RETURNING `+evidenceColumns+`, (SELECT storage_key FROM prev)
  `, e.IndicatorID, e.EvaluateeID, e.FileURL, e.StorageKey, e.FileName, e.ContentType, e.SizeBytes)

	var out Evidence
	err := row.Scan(&out.ID, &out.IndicatorID, &out.EvaluateeID, &out.FileURL, &out.StorageKey, &out.FileName, &out.ContentType, &out.SizeBytes, &out.UploadedAt, &previous)
	if err != nil {
		return Evidence{}, "", false, err
	}
	if previous == nil {
		return out, "", false, nil
	}
	return out, *previous, true, nil
}

func (s *Store) Get(ctx context.Context, id string) (Evidence, string, error) {
	var evaluationID string
	row := s.DB.QueryRow(ctx, `
    SELECT ev.id, ev.indicator_id, ev.evaluatee_id, ev.file_url, ev.storage_key, ev.file_name,
           ev.content_type, ev.size_bytes, ev.uploaded_at, t.evaluation_id
    FROM evidence ev
    JOIN indicators i ON i.id = ev.indicator_id
    JOIN topics t ON t.id = i.topic_id
    WHERE ev.id = $1
  `, id)
	var e Evidence
	err := row.Scan(&e.ID, &e.IndicatorID, &e.EvaluateeID, &e.FileURL, &e.StorageKey, &e.FileName, &e.ContentType, &e.SizeBytes, &e.UploadedAt, &evaluationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evidence{}, "", ErrNotFound
	}
	return e, evaluationID, err
}

func (s *Store) ListForEvaluatee(ctx context.Context, evaluateeID string) ([]Evidence, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+evidenceColumns+" FROM evidence WHERE evaluatee_id = $1 ORDER BY uploaded_at DESC", evaluateeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Evidence{}
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
