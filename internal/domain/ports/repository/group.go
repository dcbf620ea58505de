package repository

import (
	"context"

	"group-broadcast-gateway/internal/domain/model"
)

type GroupRepository interface {
	// Create fails with ErrAlreadyExists when the group id is taken.
	Create(ctx context.Context, tx Tx, g *model.Group) error
	FindByGroupID(ctx context.Context, tx Tx, groupID string) (*model.Group, error)
	// ListByOwner returns groups in registration order.
	ListByOwner(ctx context.Context, tx Tx, phone string) ([]*model.Group, error)
	CountByOwner(ctx context.Context, tx Tx, phone string) (int, error)
	CountGroups(ctx context.Context, tx Tx) (int, error)
}
