package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/meta"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Group fetches a single group by id.
func (s *Store) Group(ctx context.Context, groupID uuid.UUID) (split.Group, error) {
	var g split.Group
	var mdBytes []byte
	err := s.pool.QueryRow(ctx, `
        select id, name, slug, currency, created_by, created_at, metadata
        from groups
        where id = $1
    `, groupID).Scan(&g.ID, &g.Name, &g.Slug, &g.Currency, &g.CreatedBy, &g.CreatedAt, &mdBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return split.Group{}, errs.ErrNotFound
	}
	if err != nil {
		return split.Group{}, err
	}
	g.Metadata = unmarshalMeta(mdBytes)
	return g, nil
}

// GroupsByCreator returns all groups created by a user.
func (s *Store) GroupsByCreator(ctx context.Context, userID uuid.UUID) ([]split.Group, error) {
	return s.queryGroups(ctx, `
        select id, name, slug, currency, created_by, created_at, metadata
        from groups
        where created_by = $1
        order by created_at asc, id asc
    `, userID)
}

// ListGroups returns every group; used by the scheduled audit sweep.
func (s *Store) ListGroups(ctx context.Context) ([]split.Group, error) {
	return s.queryGroups(ctx, `
        select id, name, slug, currency, created_by, created_at, metadata
        from groups
        order by created_at asc, id asc
    `)
}

func (s *Store) queryGroups(ctx context.Context, sql string, args ...any) ([]split.Group, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]split.Group, 0)
	for rows.Next() {
		var g split.Group
		var mdBytes []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.Currency, &g.CreatedBy, &g.CreatedAt, &mdBytes); err != nil {
			return nil, err
		}
		g.Metadata = unmarshalMeta(mdBytes)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GroupMembers returns the member list of a group.
func (s *Store) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]split.Member, error) {
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select group_id, user_id, joined_at
        from group_members
        where group_id = $1
        order by joined_at asc, user_id asc
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]split.Member, 0)
	for rows.Next() {
		var m split.Member
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateGroup inserts the group and its members in one transaction.
func (s *Store) CreateGroup(ctx context.Context, g split.Group, members []split.Member) (split.Group, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return split.Group{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	md, _ := g.Metadata.MarshalStableJSON()
	if _, err := tx.Exec(ctx, `
        insert into groups (id, name, slug, currency, created_by, created_at, metadata)
        values ($1,$2,$3,$4,$5,$6,$7)
    `, g.ID, g.Name, g.Slug, g.Currency, g.CreatedBy, g.CreatedAt, md); err != nil {
		return split.Group{}, mapWriteErr(err)
	}
	for _, m := range members {
		if _, err := tx.Exec(ctx, `
            insert into group_members (group_id, user_id, joined_at)
            values ($1,$2,$3)
        `, m.GroupID, m.UserID, m.JoinedAt); err != nil {
			return split.Group{}, mapWriteErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return split.Group{}, mapWriteErr(err)
	}
	return g, nil
}

func unmarshalMeta(b []byte) meta.Metadata {
	if len(b) == 0 {
		return nil
	}
	var m meta.Metadata
	if err := m.UnmarshalJSON(b); err != nil {
		return nil
	}
	return m
}
