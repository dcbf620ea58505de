package usecase

import (
	"context"
	"errors"
	"time"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ AuthorizationUseCase = (*authUC)(nil)

// AuthorizationUseCase decides whether a sender may use gated commands.
type AuthorizationUseCase interface {
	// IsAuthorized is false for unknown, inactive or expired users. An expired
	// user found active is deactivated on the way out.
	IsAuthorized(ctx context.Context, phone string) (bool, error)
}

type authUC struct {
	users  repository.UserRepository
	window time.Duration
	now    func() time.Time
	log    *zerolog.Logger
}

func NewAuthorizationUseCase(users repository.UserRepository, window time.Duration, logger *zerolog.Logger) *authUC {
	return &authUC{users: users, window: window, now: time.Now, log: logger}
}

func (a *authUC) IsAuthorized(ctx context.Context, phone string) (bool, error) {
	defer logging.TraceDuration(a.log, "AuthUC.IsAuthorized")()

	phone, err := model.NormalizePhone(phone)
	if err != nil {
		return false, nil
	}
	u, err := a.users.FindByPhone(ctx, repository.NoTX, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !u.Active {
		return false, nil
	}

	now := a.now()
	if u.WithinWindow(now, a.window) {
		return true, nil
	}

	if err := a.users.Deactivate(ctx, repository.NoTX, phone, now); err != nil {
		// the periodic sweep retries this
		a.log.Warn().Err(err).Str("phone", phone).Msg("lazy deactivation failed")
		return false, nil
	}
	metrics.IncLazyDeactivation()
	a.log.Info().Str("phone", phone).Msg("usage window elapsed, user deactivated")
	return false, nil
}
