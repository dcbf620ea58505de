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

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

// Upsert keeps one row per phone; a re-issue overwrites the previous code
// and clears the used flag.
func (r *activationCodeRepo) Upsert(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if code == nil || code.Phone == "" || code.Code == "" {
		return domain.ErrInvalidArgument
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	const q = `
INSERT INTO activation_codes (id, phone, code, used, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (phone) DO UPDATE SET
  id         = EXCLUDED.id,
  code       = EXCLUDED.code,
  used       = EXCLUDED.used,
  created_at = EXCLUDED.created_at,
  expires_at = EXCLUDED.expires_at;
`
	_, err := execSQL(ctx, r.pool, tx, q, code.ID, code.Phone, code.Code, code.Used, code.CreatedAt, code.ExpiresAt)
	return err
}

func (r *activationCodeRepo) FindUnusedByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.ActivationCode, error) {
	q := `
SELECT id, phone, code, used, created_at, expires_at
  FROM activation_codes
 WHERE phone = $1 AND used = FALSE`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}

	row, err := pickRow(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, err
	}
	var ac model.ActivationCode
	if err := row.Scan(&ac.ID, &ac.Phone, &ac.Code, &ac.Used, &ac.CreatedAt, &ac.ExpiresAt); err != nil {
		return nil, scanErr(err)
	}
	return &ac, nil
}

func (r *activationCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE activation_codes SET used = TRUE WHERE id = $1 AND used = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *activationCodeRepo) DeleteByPhone(ctx context.Context, tx repository.Tx, phone string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM activation_codes WHERE phone = $1;`, phone)
	return err
}

func (r *activationCodeRepo) DeleteExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM activation_codes WHERE expires_at < $1;`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *activationCodeRepo) CountCodes(ctx context.Context, tx repository.Tx) (int, int, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE used) FROM activation_codes;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, 0, err
	}
	var total, used int
	if err := row.Scan(&total, &used); err != nil {
		return 0, 0, scanErr(err)
	}
	return total, used, nil
}
