// Package settlement turns a group's stored balances into a suggested list of
// settling transfers. The suggestion is read-only; members record the actual
// transfers as payments.
package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Group(ctx context.Context, groupID uuid.UUID) (split.Group, error)
	GroupBalances(ctx context.Context, groupID uuid.UUID) ([]split.Balance, error)
}

// Service computes settlement plans.
type Service interface {
	Simplified(ctx context.Context, groupID uuid.UUID) ([]split.Transfer, error)
	Balances(ctx context.Context, groupID uuid.UUID) ([]split.Balance, error)
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) Simplified(ctx context.Context, groupID uuid.UUID) ([]split.Transfer, error) {
	balances, err := s.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	nets := make([]split.NetBalance, 0, len(balances))
	for _, b := range balances {
		nets = append(nets, split.NetBalance{UserID: b.UserID, AmountMinor: b.AmountMinor})
	}
	return split.Simplify(nets)
}

func (s *service) Balances(ctx context.Context, groupID uuid.UUID) ([]split.Balance, error) {
	if groupID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if _, err := s.repo.Group(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.GroupBalances(ctx, groupID)
}
