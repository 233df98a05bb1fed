package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/formrelay/internal/domain"
)

type SubmissionRepo interface {
	Insert(ctx context.Context, rec *domain.ArchivedSubmission) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type SubmissionRepoImpl struct{ pool *pgxpool.Pool }

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepoImpl {
	return &SubmissionRepoImpl{pool: pool}
}

const submissionCols = `id, form_type, outcome, status_code, error, email, payload, created_at`

func (r *SubmissionRepoImpl) Insert(ctx context.Context, rec *domain.ArchivedSubmission) error {
	const q = `INSERT INTO form_submissions (` + submissionCols + `)
  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  ON CONFLICT (id) DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		rec.ID, string(rec.FormType), rec.Outcome, rec.StatusCode,
		rec.Error, rec.Email, []byte(rec.Payload), rec.CreatedAt,
	)
	return err
}

func (r *SubmissionRepoImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM form_submissions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
