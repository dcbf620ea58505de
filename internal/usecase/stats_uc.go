package usecase

import (
	"context"

	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (*model.Stats, error)
}

type statsUC struct {
	users  repository.UserRepository
	codes  repository.ActivationCodeRepository
	groups repository.GroupRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, codes repository.ActivationCodeRepository, groups repository.GroupRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, codes: codes, groups: groups, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*model.Stats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()

	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	active, err := s.users.CountActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	total, used, err := s.codes.CountCodes(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.CountGroups(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &model.Stats{
		TotalUsers:  users,
		ActiveUsers: active,
		TotalCodes:  total,
		UsedCodes:   used,
		TotalGroups: groups,
	}, nil
}
