// Package payment implements the settlement payment lifecycle. Only the
// pending->completed and completed->cancelled transitions touch balances;
// each applies or reverses the payment's effect exactly once.
package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Group(ctx context.Context, groupID uuid.UUID) (split.Group, error)
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]split.Member, error)
	Payment(ctx context.Context, paymentID uuid.UUID) (split.Payment, error)
	GroupPayments(ctx context.Context, groupID uuid.UUID) ([]split.Payment, error)
}

// Writer defines write operations needed by the service. Balance deltas are
// applied atomically with the payment row write.
type Writer interface {
	CreatePayment(ctx context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error)
	UpdatePayment(ctx context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error)
}

// Input is a validated payment creation request.
type Input struct {
	GroupID     uuid.UUID
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	Currency    string
	AmountMinor int64
	Status      split.PaymentStatus
	Date        time.Time
	Note        string
}

// Service exposes payment creation and status transitions.
type Service interface {
	Create(ctx context.Context, in Input) (split.Payment, error)
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, to split.PaymentStatus) (split.Payment, error)
	List(ctx context.Context, groupID uuid.UUID) ([]split.Payment, error)
}

type service struct {
	repo   Repo
	writer Writer
	locks  *keylock.Locker
	events eventlog.Recorder
}

func New(repo Repo, writer Writer, locks *keylock.Locker, events eventlog.Recorder) Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	return &service{repo: repo, writer: writer, locks: locks, events: events}
}

func (s *service) Create(ctx context.Context, in Input) (split.Payment, error) {
	if in.GroupID == uuid.Nil || in.FromUserID == uuid.Nil || in.ToUserID == uuid.Nil {
		return split.Payment{}, errs.ErrInvalid
	}
	if in.FromUserID == in.ToUserID {
		return split.Payment{}, errors.New("payer and payee must differ")
	}
	if in.AmountMinor <= 0 {
		return split.Payment{}, errs.ErrInvalidAmount
	}
	status := in.Status
	if status == "" {
		status = split.PaymentPending
	}
	if status != split.PaymentPending && status != split.PaymentCompleted {
		return split.Payment{}, errs.ErrBadStatusChange
	}

	var created split.Payment
	err := s.withGroupLock(in.GroupID, func() error {
		g, err := s.repo.Group(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if in.Currency != "" && !strings.EqualFold(in.Currency, g.Currency) {
			return errs.ErrCurrencyMismatch
		}
		members, err := s.repo.GroupMembers(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if !isMember(members, in.FromUserID) || !isMember(members, in.ToUserID) {
			return errs.ErrNotGroupMember
		}
		amt, err := money.NewAmountFromMinorUnits(g.Currency, in.AmountMinor)
		if err != nil {
			return errs.ErrInvalid
		}
		now := time.Now().UTC()
		date := in.Date
		if date.IsZero() {
			date = now
		}
		p := split.Payment{
			ID:         uuid.New(),
			GroupID:    in.GroupID,
			FromUserID: in.FromUserID,
			ToUserID:   in.ToUserID,
			Amount:     amt,
			Currency:   g.Currency,
			Status:     status,
			Date:       date,
			Note:       in.Note,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		var deltas []split.BalanceDelta
		if status == split.PaymentCompleted {
			deltas = split.PaymentDeltas(p)
		}
		created, err = s.writer.CreatePayment(ctx, p, deltas)
		return err
	})
	if err != nil {
		return split.Payment{}, err
	}
	return created, nil
}

func (s *service) UpdateStatus(ctx context.Context, paymentID uuid.UUID, to split.PaymentStatus) (split.Payment, error) {
	if paymentID == uuid.Nil {
		return split.Payment{}, errs.ErrInvalid
	}
	if to != split.PaymentCompleted && to != split.PaymentCancelled {
		return split.Payment{}, errs.ErrBadStatusChange
	}
	p, err := s.repo.Payment(ctx, paymentID)
	if err != nil {
		return split.Payment{}, err
	}

	var updated split.Payment
	err = s.withGroupLock(p.GroupID, func() error {
		// Re-read inside the lock so a raced transition cannot apply twice.
		cur, err := s.repo.Payment(ctx, paymentID)
		if err != nil {
			return err
		}
		if cur.Status == to {
			updated = cur
			return nil
		}
		if !split.ValidStatusChange(cur.Status, to) {
			return errs.ErrBadStatusChange
		}
		var deltas []split.BalanceDelta
		switch {
		case cur.Status == split.PaymentPending && to == split.PaymentCompleted:
			deltas = split.PaymentDeltas(cur)
		case cur.Status == split.PaymentCompleted && to == split.PaymentCancelled:
			deltas = split.Reverse(split.PaymentDeltas(cur))
		}
		from := cur.Status
		cur.Status = to
		cur.UpdatedAt = time.Now().UTC()
		updated, err = s.writer.UpdatePayment(ctx, cur, deltas)
		if err == nil {
			s.events.Record(eventlog.New(eventlog.TypePaymentStatusChanged, cur.ID, map[string]string{
				"group_id": cur.GroupID.String(),
				"from":     string(from),
				"to":       string(to),
			}))
		}
		return err
	})
	if err != nil {
		return split.Payment{}, err
	}
	return updated, nil
}

func (s *service) List(ctx context.Context, groupID uuid.UUID) ([]split.Payment, error) {
	if groupID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.GroupPayments(ctx, groupID)
}

func (s *service) withGroupLock(groupID uuid.UUID, fn func() error) error {
	unlock := s.locks.Lock("group:" + groupID.String())
	defer unlock()
	err := fn()
	if errors.Is(err, errs.ErrStaleWrite) {
		err = fn()
	}
	return err
}

func isMember(members []split.Member, userID uuid.UUID) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
