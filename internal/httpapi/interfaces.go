package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/service/audit"
	"github.com/splitkhata/splitkhata/internal/service/expense"
	"github.com/splitkhata/splitkhata/internal/service/group"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
	"github.com/splitkhata/splitkhata/internal/service/payment"
	"github.com/splitkhata/splitkhata/internal/service/settlement"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Store is the full storage surface the API needs. Both the memory and the
// postgres stores satisfy it.
type Store interface {
	group.Repo
	group.Writer
	expense.Repo
	expense.Writer
	payment.Repo
	payment.Writer
	settlement.Repo
	audit.Repo
	audit.Writer
	khatasvc.Repo
	khatasvc.Writer

	// BalancesByUser backs the cross-group rollup endpoint.
	BalancesByUser(ctx context.Context, userID uuid.UUID) ([]split.Balance, error)
}

// ReadyChecker is optionally implemented by stores that can verify
// connectivity; readyz uses it when present.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
