// Package group implements group lifecycle rules: a group has a name-derived
// slug unique per creator, a single currency, and a fixed member set that
// always includes the creator.
package group

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/slug"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Group(ctx context.Context, groupID uuid.UUID) (split.Group, error)
	GroupsByCreator(ctx context.Context, userID uuid.UUID) ([]split.Group, error)
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]split.Member, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateGroup(ctx context.Context, g split.Group, members []split.Member) (split.Group, error)
}

// Service exposes validation and creation of groups.
type Service interface {
	ValidateCreate(g split.Group, memberIDs []uuid.UUID) error
	Create(ctx context.Context, g split.Group, memberIDs []uuid.UUID) (split.Group, error)
	Get(ctx context.Context, groupID uuid.UUID) (split.Group, []split.Member, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// ErrSlugExists indicates the creator already has a group with the same slug.
var ErrSlugExists = errors.New("group slug already exists for creator")

func (s *service) ValidateCreate(g split.Group, memberIDs []uuid.UUID) error {
	if g.CreatedBy == uuid.Nil {
		return errs.ErrInvalid
	}
	if strings.TrimSpace(g.Name) == "" {
		return errors.New("name is required")
	}
	if g.Currency == "" {
		return errors.New("currency is required")
	}
	if _, err := money.NewAmountFromMinorUnits(strings.ToUpper(g.Currency), 0); err != nil {
		return errors.New("unknown currency code")
	}
	seen := make(map[uuid.UUID]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if id == uuid.Nil {
			return errors.New("member ids must be set")
		}
		if _, ok := seen[id]; ok {
			return errors.New("duplicate member id")
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (s *service) Create(ctx context.Context, g split.Group, memberIDs []uuid.UUID) (split.Group, error) {
	if err := s.ValidateCreate(g, memberIDs); err != nil {
		return split.Group{}, err
	}
	g.Currency = strings.ToUpper(g.Currency)
	g.Slug = slug.Slugify(g.Name)
	if !slug.IsSlug(g.Slug) {
		return split.Group{}, errors.New("name does not reduce to a valid slug")
	}
	existing, err := s.repo.GroupsByCreator(ctx, g.CreatedBy)
	if err != nil {
		return split.Group{}, err
	}
	for _, other := range existing {
		if other.Slug == g.Slug {
			return split.Group{}, ErrSlugExists
		}
	}

	now := time.Now().UTC()
	g.ID = uuid.New()
	g.CreatedAt = now

	// The creator is always a member.
	ids := memberIDs
	if _, ok := find(ids, g.CreatedBy); !ok {
		ids = append([]uuid.UUID{g.CreatedBy}, ids...)
	}
	members := make([]split.Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, split.Member{GroupID: g.ID, UserID: id, JoinedAt: now})
	}
	return s.writer.CreateGroup(ctx, g, members)
}

func (s *service) Get(ctx context.Context, groupID uuid.UUID) (split.Group, []split.Member, error) {
	if groupID == uuid.Nil {
		return split.Group{}, nil, errs.ErrInvalid
	}
	g, err := s.repo.Group(ctx, groupID)
	if err != nil {
		return split.Group{}, nil, err
	}
	members, err := s.repo.GroupMembers(ctx, groupID)
	if err != nil {
		return split.Group{}, nil, err
	}
	return g, members, nil
}

func find(ids []uuid.UUID, want uuid.UUID) (int, bool) {
	for i, id := range ids {
		if id == want {
			return i, true
		}
	}
	return 0, false
}
