// Package khata implements the per-customer ledger operations. Every
// transaction mutation recomputes the chronological running balances from the
// first affected date and persists the rewritten rows together with the
// mutation in one atomic write.
package khata

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
	"github.com/splitkhata/splitkhata/internal/khata"
	"github.com/splitkhata/splitkhata/internal/meta"
)

// Repo defines read operations needed by the service.
type Repo interface {
	Customer(ctx context.Context, customerID uuid.UUID) (khata.Customer, error)
	CustomersByOwner(ctx context.Context, ownerID uuid.UUID) ([]khata.Customer, error)
	CustomerTransactions(ctx context.Context, customerID uuid.UUID) ([]khata.Transaction, error)
}

// Writer defines write operations needed by the service. SaveTransactions
// applies upserts and deletions for one customer atomically.
type Writer interface {
	CreateCustomer(ctx context.Context, c khata.Customer) (khata.Customer, error)
	SaveTransactions(ctx context.Context, customerID uuid.UUID, upserts []khata.Transaction, deleteIDs []uuid.UUID) error
}

// TxInput is a validated transaction mutation request.
type TxInput struct {
	CustomerID  uuid.UUID
	Type        khata.EntryType
	Currency    string
	AmountMinor int64
	Date        time.Time
	Note        string
	Metadata    meta.Metadata
}

// Service exposes customer and transaction operations.
type Service interface {
	CreateCustomer(ctx context.Context, ownerID uuid.UUID, name, phone string) (khata.Customer, error)
	Customers(ctx context.Context, ownerID uuid.UUID) ([]khata.Customer, error)
	CreateTransaction(ctx context.Context, in TxInput) (khata.Transaction, error)
	UpdateTransaction(ctx context.Context, txID uuid.UUID, in TxInput) (khata.Transaction, error)
	DeleteTransaction(ctx context.Context, customerID, txID uuid.UUID) error
	Transactions(ctx context.Context, customerID uuid.UUID) ([]khata.Transaction, error)
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

func (s *service) CreateCustomer(ctx context.Context, ownerID uuid.UUID, name, phone string) (khata.Customer, error) {
	if ownerID == uuid.Nil {
		return khata.Customer{}, errs.ErrInvalid
	}
	if strings.TrimSpace(name) == "" {
		return khata.Customer{}, errors.New("name is required")
	}
	c := khata.Customer{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: time.Now().UTC(),
	}
	return s.writer.CreateCustomer(ctx, c)
}

func (s *service) Customers(ctx context.Context, ownerID uuid.UUID) ([]khata.Customer, error) {
	if ownerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.CustomersByOwner(ctx, ownerID)
}

func (s *service) CreateTransaction(ctx context.Context, in TxInput) (khata.Transaction, error) {
	tx, err := s.buildTransaction(uuid.New(), in, time.Time{})
	if err != nil {
		return khata.Transaction{}, err
	}
	var created khata.Transaction
	err = s.withCustomerLock(in.CustomerID, func() error {
		if _, err := s.repo.Customer(ctx, in.CustomerID); err != nil {
			return err
		}
		txns, err := s.repo.CustomerTransactions(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		txns = append(txns, tx)
		upserts := recomputeFrom(txns, tx.Date)
		created, upserts = forceInclude(upserts, tx)
		return s.writer.SaveTransactions(ctx, in.CustomerID, upserts, nil)
	})
	if err != nil {
		return khata.Transaction{}, err
	}
	s.recordRecompute(in.CustomerID)
	return created, nil
}

func (s *service) UpdateTransaction(ctx context.Context, txID uuid.UUID, in TxInput) (khata.Transaction, error) {
	if txID == uuid.Nil {
		return khata.Transaction{}, errs.ErrInvalid
	}
	var updated khata.Transaction
	err := s.withCustomerLock(in.CustomerID, func() error {
		txns, err := s.repo.CustomerTransactions(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		idx := indexOf(txns, txID)
		if idx < 0 {
			return errs.ErrNotFound
		}
		old := txns[idx]
		tx, err := s.buildTransaction(txID, in, old.CreatedAt)
		if err != nil {
			return err
		}
		txns[idx] = tx
		// A date change can move the row earlier, so recompute from the
		// earlier of the two dates.
		from := tx.Date
		if old.Date.Before(from) {
			from = old.Date
		}
		upserts := recomputeFrom(txns, from)
		updated, upserts = forceInclude(upserts, tx)
		return s.writer.SaveTransactions(ctx, in.CustomerID, upserts, nil)
	})
	if err != nil {
		return khata.Transaction{}, err
	}
	s.recordRecompute(in.CustomerID)
	return updated, nil
}

func (s *service) DeleteTransaction(ctx context.Context, customerID, txID uuid.UUID) error {
	if customerID == uuid.Nil || txID == uuid.Nil {
		return errs.ErrInvalid
	}
	err := s.withCustomerLock(customerID, func() error {
		txns, err := s.repo.CustomerTransactions(ctx, customerID)
		if err != nil {
			return err
		}
		idx := indexOf(txns, txID)
		if idx < 0 {
			return errs.ErrNotFound
		}
		old := txns[idx]
		txns = append(txns[:idx], txns[idx+1:]...)
		upserts := recomputeFrom(txns, old.Date)
		return s.writer.SaveTransactions(ctx, customerID, upserts, []uuid.UUID{txID})
	})
	if err != nil {
		return err
	}
	s.recordRecompute(customerID)
	return nil
}

func (s *service) Transactions(ctx context.Context, customerID uuid.UUID) ([]khata.Transaction, error) {
	if customerID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	txns, err := s.repo.CustomerTransactions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	khata.SortChronological(txns)
	return txns, nil
}

func (s *service) buildTransaction(id uuid.UUID, in TxInput, createdAt time.Time) (khata.Transaction, error) {
	if in.CustomerID == uuid.Nil {
		return khata.Transaction{}, errs.ErrInvalid
	}
	if in.Type != khata.EntryGive && in.Type != khata.EntryGet {
		return khata.Transaction{}, errors.New("type must be give or get")
	}
	if in.AmountMinor <= 0 {
		return khata.Transaction{}, errs.ErrInvalidAmount
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "INR"
	}
	amt, err := money.NewAmountFromMinorUnits(currency, in.AmountMinor)
	if err != nil {
		return khata.Transaction{}, errors.New("unknown currency code")
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	date := in.Date
	if date.IsZero() {
		date = now
	}
	return khata.Transaction{
		ID:         id,
		CustomerID: in.CustomerID,
		Type:       in.Type,
		Amount:     amt,
		Date:       date,
		Note:       in.Note,
		Metadata:   meta.New(in.Metadata),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}, nil
}

// indexOf returns the position of the transaction with the given ID, or -1
// when it is not present.
func indexOf(txns []khata.Transaction, txID uuid.UUID) int {
	for i, tx := range txns {
		if tx.ID == txID {
			return i
		}
	}
	return -1
}

// recomputeFrom sorts the sequence and rewrites running balances from the
// given date, returning the rows whose stored value changed.
func recomputeFrom(txns []khata.Transaction, from time.Time) []khata.Transaction {
	khata.SortChronological(txns)
	return khata.Recompute(txns, from)
}

// forceInclude makes sure the mutated row itself is persisted even when its
// recomputed running balance happens to match its zero value, and returns the
// row with its final running balance.
func forceInclude(upserts []khata.Transaction, tx khata.Transaction) (khata.Transaction, []khata.Transaction) {
	for _, u := range upserts {
		if u.ID == tx.ID {
			return u, upserts
		}
	}
	return tx, append(upserts, tx)
}

func (s *service) withCustomerLock(customerID uuid.UUID, fn func() error) error {
	unlock := s.locks.Lock("khata:" + customerID.String())
	defer unlock()
	err := fn()
	if errors.Is(err, errs.ErrStaleWrite) {
		err = fn()
	}
	return err
}

func (s *service) recordRecompute(customerID uuid.UUID) {
	s.events.Record(eventlog.New(eventlog.TypeKhataRecomputed, customerID, map[string]string{
		"customer_id": customerID.String(),
	}))
}
