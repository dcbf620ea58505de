package repository

import (
	"context"
	"time"

	"group-broadcast-gateway/internal/domain/model"
)

type ActivationCodeRepository interface {
	// Upsert replaces any existing code for the same phone.
	Upsert(ctx context.Context, tx Tx, code *model.ActivationCode) error
	// FindUnusedByPhone locks the row when tx is a transaction.
	FindUnusedByPhone(ctx context.Context, tx Tx, phone string) (*model.ActivationCode, error)
	// MarkUsed returns ErrNotFound if the code was already used or removed.
	MarkUsed(ctx context.Context, tx Tx, id string) error
	DeleteByPhone(ctx context.Context, tx Tx, phone string) error
	DeleteExpired(ctx context.Context, tx Tx, now time.Time) (int64, error)
	CountCodes(ctx context.Context, tx Tx) (total int, used int, err error)
}
