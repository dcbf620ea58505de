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

var _ GroupUseCase = (*groupUC)(nil)

type GroupUseCase interface {
	// Register stores the group for owner. If the group already exists the
	// original record is returned with created=false and nothing changes.
	Register(ctx context.Context, groupID, name, owner string) (g *model.Group, created bool, err error)
	ListByOwner(ctx context.Context, owner string) ([]*model.Group, error)
	CountByOwner(ctx context.Context, owner string) (int, error)
}

type groupUC struct {
	groups repository.GroupRepository
	now    func() time.Time
	log    *zerolog.Logger
}

func NewGroupUseCase(groups repository.GroupRepository, logger *zerolog.Logger) *groupUC {
	return &groupUC{groups: groups, now: time.Now, log: logger}
}

func (g *groupUC) Register(ctx context.Context, groupID, name, owner string) (*model.Group, bool, error) {
	defer logging.TraceDuration(g.log, "GroupUC.Register")()

	owner, err := model.NormalizePhone(owner)
	if err != nil {
		return nil, false, err
	}
	grp, err := model.NewGroup(groupID, name, owner, g.now())
	if err != nil {
		return nil, false, err
	}

	existing, err := g.groups.FindByGroupID(ctx, repository.NoTX, grp.GroupID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if err := g.groups.Create(ctx, repository.NoTX, grp); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, false, err
		}
		// lost a race with another registrant
		existing, ferr := g.groups.FindByGroupID(ctx, repository.NoTX, grp.GroupID)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}

	g.log.Info().Str("group_id", grp.GroupID).Str("owner", owner).Msg("group registered")
	return grp, true, nil
}

func (g *groupUC) ListByOwner(ctx context.Context, owner string) ([]*model.Group, error) {
	owner, err := model.NormalizePhone(owner)
	if err != nil {
		return nil, err
	}
	return g.groups.ListByOwner(ctx, repository.NoTX, owner)
}

func (g *groupUC) CountByOwner(ctx context.Context, owner string) (int, error) {
	owner, err := model.NormalizePhone(owner)
	if err != nil {
		return 0, err
	}
	return g.groups.CountByOwner(ctx, repository.NoTX, owner)
}
