package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	db *sql.DB
}

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
	var activated sql.NullInt64
	if u.ActivatedAt != nil {
		activated = sql.NullInt64{Int64: toMillis(*u.ActivatedAt), Valid: true}
	}

	const q = `
INSERT INTO users (id, phone, active, activated_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (phone) DO UPDATE SET
  active       = excluded.active,
  activated_at = excluded.activated_at,
  updated_at   = excluded.updated_at
RETURNING id, created_at;
`
	row, err := pickRow(ctx, r.db, tx, q, u.ID, u.Phone, boolInt(u.Active), activated, toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		return err
	}
	var created int64
	if err := row.Scan(&u.ID, &created); err != nil {
		return mapError(err)
	}
	u.CreatedAt = fromMillis(created)
	return nil
}

func (r *userRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.User, error) {
	const q = `SELECT id, phone, active, activated_at, created_at, updated_at FROM users WHERE phone = ?;`
	row, err := pickRow(ctx, r.db, tx, q, phone)
	if err != nil {
		return nil, err
	}
	var (
		u                model.User
		activated        sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Phone, &u.Active, &activated, &created, &updated); err != nil {
		return nil, scanErr(err)
	}
	if activated.Valid {
		at := fromMillis(activated.Int64)
		u.ActivatedAt = &at
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func (r *userRepo) Deactivate(ctx context.Context, tx repository.Tx, phone string, at time.Time) error {
	_, err := execSQL(ctx, r.db, tx, `UPDATE users SET active = 0, updated_at = ? WHERE phone = ? AND active = 1;`, toMillis(at), phone)
	return err
}

func (r *userRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, cutoff, at time.Time) (int64, error) {
	const q = `
UPDATE users
   SET active = 0, updated_at = ?
 WHERE active = 1
   AND (activated_at IS NULL OR activated_at <= ?);
`
	return execSQL(ctx, r.db, tx, q, toMillis(at), toMillis(cutoff))
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return countRows(ctx, r.db, tx, `SELECT COUNT(*) FROM users;`)
}

func (r *userRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return countRows(ctx, r.db, tx, `SELECT COUNT(*) FROM users WHERE active = 1;`)
}

func countRows(ctx context.Context, db *sql.DB, tx repository.Tx, q string, args ...any) (int, error) {
	row, err := pickRow(ctx, db, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}
