package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
)

var _ repository.GroupRepository = (*groupRepo)(nil)

type groupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) repository.GroupRepository {
	return &groupRepo{pool: pool}
}

// Create never overwrites: the first registrant keeps the group.
func (r *groupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	if g == nil || g.GroupID == "" || g.AddedBy == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO chat_groups (group_id, name, added_by, added_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (group_id) DO NOTHING;
`
	tag, err := execSQL(ctx, r.pool, tx, q, g.GroupID, g.Name, g.AddedBy, g.AddedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *groupRepo) FindByGroupID(ctx context.Context, tx repository.Tx, groupID string) (*model.Group, error) {
	const q = `SELECT group_id, name, added_by, added_at FROM chat_groups WHERE group_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, groupID)
	if err != nil {
		return nil, err
	}
	var g model.Group
	if err := row.Scan(&g.GroupID, &g.Name, &g.AddedBy, &g.AddedAt); err != nil {
		return nil, scanErr(err)
	}
	return &g, nil
}

func (r *groupRepo) ListByOwner(ctx context.Context, tx repository.Tx, phone string) ([]*model.Group, error) {
	const q = `
SELECT group_id, name, added_by, added_at
  FROM chat_groups
 WHERE added_by = $1
 ORDER BY seq ASC;
`
	rows, err := queryRows(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.GroupID, &g.Name, &g.AddedBy, &g.AddedAt); err != nil {
			return nil, scanErr(err)
		}
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *groupRepo) CountByOwner(ctx context.Context, tx repository.Tx, phone string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM chat_groups WHERE added_by = $1;`, phone)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}

func (r *groupRepo) CountGroups(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM chat_groups;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}
