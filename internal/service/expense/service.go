// Package expense wires the split calculator to the balance accumulator:
// every expense mutation derives splits, computes the balance deltas of the
// change, and hands both to storage as one atomic write.
package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/splitkhata/splitkhata/internal/dictionary"
	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/meta"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Group(ctx context.Context, groupID uuid.UUID) (split.Group, error)
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]split.Member, error)
	Expense(ctx context.Context, groupID, expenseID uuid.UUID) (split.Expense, error)
	GroupExpenses(ctx context.Context, groupID uuid.UUID) ([]split.Expense, error)
}

// Writer defines write operations needed by the service. Implementations
// must apply the expense write and every balance delta atomically: either
// all member balances for the mutation update, or none do.
type Writer interface {
	CreateExpense(ctx context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error)
	UpdateExpense(ctx context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error)
	DeleteExpense(ctx context.Context, groupID, expenseID uuid.UUID, deltas []split.BalanceDelta) error
}

// Input is a validated expense mutation request.
type Input struct {
	GroupID     uuid.UUID
	Description string
	Category    split.Category
	Currency    string
	TotalMinor  int64
	PaidBy      uuid.UUID
	Policy      split.Policy
	Date        time.Time
	Metadata    meta.Metadata
	Shares      []split.ShareInput
}

// Service exposes expense mutations and reads.
type Service interface {
	Create(ctx context.Context, in Input) (split.Expense, error)
	Update(ctx context.Context, expenseID uuid.UUID, in Input) (split.Expense, error)
	Delete(ctx context.Context, groupID, expenseID uuid.UUID) error
	List(ctx context.Context, groupID uuid.UUID) ([]split.Expense, error)
	Get(ctx context.Context, groupID, expenseID uuid.UUID) (split.Expense, error)
}

type service struct {
	repo   Repo
	writer Writer
	locks  *keylock.Locker
	events eventlog.Recorder
}

// New constructs the expense service. locks serializes balance writes per
// group; events receives the mutation trail.
func New(repo Repo, writer Writer, locks *keylock.Locker, events eventlog.Recorder) Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	return &service{repo: repo, writer: writer, locks: locks, events: events}
}

func (s *service) Create(ctx context.Context, in Input) (split.Expense, error) {
	var created split.Expense
	err := s.withGroupLock(in.GroupID, func() error {
		e, err := s.build(ctx, uuid.New(), in, time.Time{})
		if err != nil {
			return err
		}
		deltas := split.ExpenseDeltas(e)
		created, err = s.writer.CreateExpense(ctx, e, deltas)
		return err
	})
	if err != nil {
		return split.Expense{}, err
	}
	s.events.Record(eventlog.New(eventlog.TypeExpenseCreated, created.ID, map[string]string{"group_id": created.GroupID.String()}))
	return created, nil
}

func (s *service) Update(ctx context.Context, expenseID uuid.UUID, in Input) (split.Expense, error) {
	if expenseID == uuid.Nil {
		return split.Expense{}, errs.ErrInvalid
	}
	var updated split.Expense
	err := s.withGroupLock(in.GroupID, func() error {
		old, err := s.repo.Expense(ctx, in.GroupID, expenseID)
		if err != nil {
			return err
		}
		e, err := s.build(ctx, expenseID, in, old.CreatedAt)
		if err != nil {
			return err
		}
		// Reverse the old effect, apply the new one, write as one adjustment.
		deltas := split.MergeDeltas(split.Reverse(split.ExpenseDeltas(old)), split.ExpenseDeltas(e))
		updated, err = s.writer.UpdateExpense(ctx, e, deltas)
		return err
	})
	if err != nil {
		return split.Expense{}, err
	}
	s.events.Record(eventlog.New(eventlog.TypeExpenseUpdated, updated.ID, map[string]string{"group_id": updated.GroupID.String()}))
	return updated, nil
}

func (s *service) Delete(ctx context.Context, groupID, expenseID uuid.UUID) error {
	if groupID == uuid.Nil || expenseID == uuid.Nil {
		return errs.ErrInvalid
	}
	err := s.withGroupLock(groupID, func() error {
		old, err := s.repo.Expense(ctx, groupID, expenseID)
		if err != nil {
			return err
		}
		deltas := split.Reverse(split.ExpenseDeltas(old))
		return s.writer.DeleteExpense(ctx, groupID, expenseID, deltas)
	})
	if err != nil {
		return err
	}
	s.events.Record(eventlog.New(eventlog.TypeExpenseDeleted, expenseID, map[string]string{"group_id": groupID.String()}))
	return nil
}

func (s *service) List(ctx context.Context, groupID uuid.UUID) ([]split.Expense, error) {
	if groupID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.GroupExpenses(ctx, groupID)
}

func (s *service) Get(ctx context.Context, groupID, expenseID uuid.UUID) (split.Expense, error) {
	if groupID == uuid.Nil || expenseID == uuid.Nil {
		return split.Expense{}, errs.ErrInvalid
	}
	return s.repo.Expense(ctx, groupID, expenseID)
}

// build validates the input against the group and derives the full expense
// with computed splits. createdAt zero means a fresh expense.
func (s *service) build(ctx context.Context, id uuid.UUID, in Input, createdAt time.Time) (split.Expense, error) {
	if in.GroupID == uuid.Nil || in.PaidBy == uuid.Nil {
		return split.Expense{}, errs.ErrInvalid
	}
	g, err := s.repo.Group(ctx, in.GroupID)
	if err != nil {
		return split.Expense{}, err
	}
	if in.Currency != "" && !strings.EqualFold(in.Currency, g.Currency) {
		return split.Expense{}, errs.ErrCurrencyMismatch
	}
	members, err := s.repo.GroupMembers(ctx, in.GroupID)
	if err != nil {
		return split.Expense{}, err
	}
	memberSet := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		memberSet[m.UserID] = struct{}{}
	}
	if _, ok := memberSet[in.PaidBy]; !ok {
		return split.Expense{}, errs.ErrNotGroupMember
	}
	for _, sh := range in.Shares {
		if _, ok := memberSet[sh.UserID]; !ok {
			return split.Expense{}, errs.ErrNotGroupMember
		}
	}

	splits, err := split.ComputeSplits(in.TotalMinor, g.Currency, in.Policy, in.Shares)
	if err != nil {
		return split.Expense{}, err
	}
	total, err := money.NewAmountFromMinorUnits(g.Currency, in.TotalMinor)
	if err != nil {
		return split.Expense{}, errs.ErrInvalid
	}

	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	date := in.Date
	if date.IsZero() {
		date = now
	}
	category := in.Category
	if category == "" {
		category = split.CategoryUncategorized
	}
	if !dictionary.IsKnown(category) {
		return split.Expense{}, errors.New("unknown category")
	}
	for i := range splits {
		splits[i].ID = uuid.New()
		splits[i].ExpenseID = id
	}
	return split.Expense{
		ID:          id,
		GroupID:     in.GroupID,
		Description: in.Description,
		Category:    category,
		Currency:    g.Currency,
		Amount:      total,
		PaidBy:      in.PaidBy,
		Policy:      in.Policy,
		Date:        date,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
		Metadata:    meta.New(in.Metadata),
		Splits:      splits,
	}, nil
}

// withGroupLock serializes balance-affecting writes per group and retries
// exactly once when storage reports a raced write; the retry re-reads its
// base inside fn.
func (s *service) withGroupLock(groupID uuid.UUID, fn func() error) error {
	unlock := s.locks.Lock("group:" + groupID.String())
	defer unlock()
	err := fn()
	if errors.Is(err, errs.ErrStaleWrite) {
		err = fn()
	}
	return err
}
