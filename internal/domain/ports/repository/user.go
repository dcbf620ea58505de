package repository

import (
	"context"
	"time"

	"group-broadcast-gateway/internal/domain/model"
)

type UserRepository interface {
	// Save upserts by phone and writes the stored row id back into u.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByPhone(ctx context.Context, tx Tx, phone string) (*model.User, error)
	Deactivate(ctx context.Context, tx Tx, phone string, at time.Time) error
	// DeactivateExpired flips every active user activated before cutoff.
	DeactivateExpired(ctx context.Context, tx Tx, cutoff, at time.Time) (int64, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountActive(ctx context.Context, tx Tx) (int, error)
}
