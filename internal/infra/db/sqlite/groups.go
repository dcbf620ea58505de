package sqlite

import (
	"context"
	"database/sql"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
)

var _ repository.GroupRepository = (*groupRepo)(nil)

type groupRepo struct {
	db *sql.DB
}

func (r *groupRepo) Create(ctx context.Context, tx repository.Tx, g *model.Group) error {
	if g == nil || g.GroupID == "" || g.AddedBy == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO chat_groups (group_id, name, added_by, added_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (group_id) DO NOTHING;
`
	n, err := execSQL(ctx, r.db, tx, q, g.GroupID, g.Name, g.AddedBy, toMillis(g.AddedAt))
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *groupRepo) FindByGroupID(ctx context.Context, tx repository.Tx, groupID string) (*model.Group, error) {
	row, err := pickRow(ctx, r.db, tx, `SELECT group_id, name, added_by, added_at FROM chat_groups WHERE group_id = ?;`, groupID)
	if err != nil {
		return nil, err
	}
	var (
		g     model.Group
		added int64
	)
	if err := row.Scan(&g.GroupID, &g.Name, &g.AddedBy, &added); err != nil {
		return nil, scanErr(err)
	}
	g.AddedAt = fromMillis(added)
	return &g, nil
}

func (r *groupRepo) ListByOwner(ctx context.Context, tx repository.Tx, phone string) ([]*model.Group, error) {
	rows, err := queryRows(ctx, r.db, tx, `SELECT group_id, name, added_by, added_at FROM chat_groups WHERE added_by = ? ORDER BY seq ASC;`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Group
	for rows.Next() {
		var (
			g     model.Group
			added int64
		)
		if err := rows.Scan(&g.GroupID, &g.Name, &g.AddedBy, &added); err != nil {
			return nil, scanErr(err)
		}
		g.AddedAt = fromMillis(added)
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *groupRepo) CountByOwner(ctx context.Context, tx repository.Tx, phone string) (int, error) {
	return countRows(ctx, r.db, tx, `SELECT COUNT(*) FROM chat_groups WHERE added_by = ?;`, phone)
}

func (r *groupRepo) CountGroups(ctx context.Context, tx repository.Tx) (int, error) {
	return countRows(ctx, r.db, tx, `SELECT COUNT(*) FROM chat_groups;`)
}
