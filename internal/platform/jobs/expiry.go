package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"perfeval/internal/domain/assignment"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/platform/querier"
)

type pgExpiry struct {
	evaluations *evaluation.Store
	assignments *assignment.Store
}

func (p pgExpiry) CloseExpired(ctx context.Context, now time.Time) ([]string, error) {
	return p.evaluations.CloseExpired(ctx, now)
}

func (p pgExpiry) LockSubmitted(ctx context.Context, evaluationIDs []string) (int64, error) {
	return p.assignments.LockSubmitted(ctx, evaluationIDs)
}

// PostgresExpiry binds the evaluation and assignment stores to a single
// transaction per run.
func PostgresExpiry(db querier.Querier) ExpiryTx {
	return func(ctx context.Context, fn func(ExpiryStore) error) error {
		bind := func(q querier.Querier) error {
			return fn(pgExpiry{evaluations: evaluation.NewStore(q), assignments: assignment.NewStore(q)})
		}
		starter, ok := db.(querier.TxStarter)
		if !ok {
			return bind(db)
		}
		return querier.WithTx(ctx, starter, func(tx pgx.Tx) error {
			return bind(tx)
		})
	}
}
