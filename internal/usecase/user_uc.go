package usecase

import (
	"context"
	"errors"
	"time"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	Status(ctx context.Context, phone string) (*model.UserStatus, error)
}

type userUC struct {
	users  repository.UserRepository
	groups repository.GroupRepository
	window time.Duration
	now    func() time.Time
	log    *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, groups repository.GroupRepository, window time.Duration, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, groups: groups, window: window, now: time.Now, log: logger}
}

// Status reports the usage window and group count. Unknown users get an
// inactive status rather than an error.
func (u *userUC) Status(ctx context.Context, phone string) (*model.UserStatus, error) {
	defer logging.TraceDuration(u.log, "UserUC.Status")()

	phone, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	st := &model.UserStatus{Phone: phone}

	usr, err := u.users.FindByPhone(ctx, repository.NoTX, phone)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return st, nil
	case err != nil:
		return nil, err
	}

	now := u.now()
	st.Active = usr.WithinWindow(now, u.window)
	st.ActivatedAt = usr.ActivatedAt
	if end, ok := usr.ExpiresAt(u.window); ok {
		st.ExpiresAt = &end
	}
	st.DaysRemaining = usr.DaysRemaining(now, u.window)

	n, err := u.groups.CountByOwner(ctx, repository.NoTX, phone)
	if err != nil {
		return nil, err
	}
	st.GroupCount = n
	return st, nil
}
