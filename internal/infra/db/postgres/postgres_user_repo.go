package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepo{pool: pool}
}

// Save upserts on phone. On conflict the existing id is kept and written back.
func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if u == nil || u.Phone == "" {
		return domain.ErrInvalidArgument
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	const q = `
INSERT INTO users (id, phone, active, activated_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (phone) DO UPDATE SET
  active       = EXCLUDED.active,
  activated_at = EXCLUDED.activated_at,
  updated_at   = EXCLUDED.updated_at
RETURNING id, created_at;
`
	row, err := pickRow(ctx, r.pool, tx, q, u.ID, u.Phone, u.Active, u.ActivatedAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *userRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.User, error) {
	const q = `
SELECT id, phone, active, activated_at, created_at, updated_at
  FROM users
 WHERE phone = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.Phone, &u.Active, &u.ActivatedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &u, nil
}

func (r *userRepo) Deactivate(ctx context.Context, tx repository.Tx, phone string, at time.Time) error {
	const q = `UPDATE users SET active = FALSE, updated_at = $2 WHERE phone = $1 AND active;`
	_, err := execSQL(ctx, r.pool, tx, q, phone, at)
	return err
}

// DeactivateExpired is one statement; a concurrent re-activation either
// lands before it (and is flipped) or after it (and survives).
func (r *userRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, cutoff, at time.Time) (int64, error) {
	const q = `
UPDATE users
   SET active = FALSE, updated_at = $2
 WHERE active
   AND (activated_at IS NULL OR activated_at <= $1);
`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM users;`)
}

func (r *userRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM users WHERE active;`)
}

func (r *userRepo) count(ctx context.Context, tx repository.Tx, q string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}
