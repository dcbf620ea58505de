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

var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	db *sql.DB
}

func (r *activationCodeRepo) Upsert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if code == nil || code.Phone == "" || code.Code == "" {
		return domain.ErrInvalidArgument
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	const q = `
INSERT INTO activation_codes (id, phone, code, used, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (phone) DO UPDATE SET
  id         = excluded.id,
  code       = excluded.code,
  used       = excluded.used,
  created_at = excluded.created_at,
  expires_at = excluded.expires_at;
`
	_, err := execSQL(ctx, r.db, tx, q, code.ID, code.Phone, code.Code, boolInt(code.Used), toMillis(code.CreatedAt), toMillis(code.ExpiresAt))
	return err
}

// FindUnusedByPhone needs no row lock: the single connection already
// serializes the surrounding transaction.
func (r *activationCodeRepo) FindUnusedByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.ActivationCode, error) {
	const q = `SELECT id, phone, code, used, created_at, expires_at FROM activation_codes WHERE phone = ? AND used = 0;`
	row, err := pickRow(ctx, r.db, tx, q, phone)
	if err != nil {
		return nil, err
	}
	var (
		ac               model.ActivationCode
		created, expires int64
	)
	if err := row.Scan(&ac.ID, &ac.Phone, &ac.Code, &ac.Used, &created, &expires); err != nil {
		return nil, scanErr(err)
	}
	ac.CreatedAt = fromMillis(created)
	ac.ExpiresAt = fromMillis(expires)
	return &ac, nil
}

func (r *activationCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string) error {
	n, err := execSQL(ctx, r.db, tx, `UPDATE activation_codes SET used = 1 WHERE id = ? AND used = 0;`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *activationCodeRepo) DeleteByPhone(ctx context.Context, tx repository.Tx, phone string) error {
	_, err := execSQL(ctx, r.db, tx, `DELETE FROM activation_codes WHERE phone = ?;`, phone)
	return err
}

func (r *activationCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	return execSQL(ctx, r.db, tx, `DELETE FROM activation_codes WHERE expires_at < ?;`, toMillis(now))
}

func (r *activationCodeRepo) CountCodes(ctx context.Context, tx repository.Tx) (int, int, error) {
	row, err := pickRow(ctx, r.db, tx, `SELECT COUNT(*), COALESCE(SUM(used), 0) FROM activation_codes;`)
	if err != nil {
		return 0, 0, err
	}
	var total, used int
	if err := row.Scan(&total, &used); err != nil {
		return 0, 0, scanErr(err)
	}
	return total, used, nil
}
