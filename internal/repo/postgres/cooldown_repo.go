package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/formrelay/internal/cooldown"
)

// CooldownRepo stores last-submission times in form_cooldowns. Keys arrive
// already hashed by the cooldown limiter.
type CooldownRepo struct {
	pool *pgxpool.Pool
}

func NewCooldownRepo(pool *pgxpool.Pool) *CooldownRepo {
	return &CooldownRepo{pool: pool}
}

func (r *CooldownRepo) Last(ctx context.Context, key string) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `SELECT last_at FROM form_cooldowns WHERE key_hash = $1 AND expires_at > now()`
	var last time.Time
	err := r.pool.QueryRow(ctx, q, key).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

func (r *CooldownRepo) Touch(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO form_cooldowns (key_hash, last_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO UPDATE SET
			last_at = EXCLUDED.last_at,
			expires_at = EXCLUDED.expires_at`

	_, err := r.pool.Exec(ctx, q, key, at, at.Add(ttl+time.Minute))
	return err
}

func (r *CooldownRepo) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM form_cooldowns WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

var _ cooldown.Store = (*CooldownRepo)(nil)
