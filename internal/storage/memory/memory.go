// Package memory provides a simple in-memory implementation used for
// development and tests. All balance-affecting writes happen under one write
// lock, so a mutation's deltas either all land or none do.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/khata"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Store is an in-memory implementation of every repository and writer used by
// the services and the API. It is guarded by an RWMutex for concurrent
// reads/writes.
type Store struct {
	mu             sync.RWMutex
	groups         map[uuid.UUID]split.Group
	membersByGroup map[uuid.UUID][]split.Member
	expenses       map[uuid.UUID]split.Expense
	payments       map[uuid.UUID]split.Payment
	// balances: groupID -> userID -> net minor units
	balances       map[uuid.UUID]map[uuid.UUID]int64
	customers      map[uuid.UUID]khata.Customer
	txnsByCustomer map[uuid.UUID]map[uuid.UUID]khata.Transaction
	events         []eventlog.Event
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.groups = make(map[uuid.UUID]split.Group)
	s.membersByGroup = make(map[uuid.UUID][]split.Member)
	s.expenses = make(map[uuid.UUID]split.Expense)
	s.payments = make(map[uuid.UUID]split.Payment)
	s.balances = make(map[uuid.UUID]map[uuid.UUID]int64)
	s.customers = make(map[uuid.UUID]khata.Customer)
	s.txnsByCustomer = make(map[uuid.UUID]map[uuid.UUID]khata.Transaction)
	s.events = nil
}

// Reset clears all data; used between tests.
func (s *Store) Reset() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

// Seed helpers for local dev/tests.

func (s *Store) SeedGroup(g split.Group, members []split.Member) {
	s.mu.Lock()
	s.groups[g.ID] = g
	s.membersByGroup[g.ID] = append([]split.Member(nil), members...)
	s.mu.Unlock()
}

func (s *Store) SeedBalance(b split.Balance) {
	s.mu.Lock()
	s.applyDeltasLocked(b.GroupID, []split.BalanceDelta{{UserID: b.UserID, AmountMinor: b.AmountMinor}})
	s.mu.Unlock()
}

// SetBalance overwrites one stored balance directly, bypassing delta
// application; tests use it to fabricate inconsistencies for the auditor.
func (s *Store) SetBalance(b split.Balance) {
	s.mu.Lock()
	m, ok := s.balances[b.GroupID]
	if !ok {
		m = make(map[uuid.UUID]int64)
		s.balances[b.GroupID] = m
	}
	if b.AmountMinor == 0 {
		delete(m, b.UserID)
	} else {
		m[b.UserID] = b.AmountMinor
	}
	s.mu.Unlock()
}

// Group reads.

func (s *Store) Group(_ context.Context, groupID uuid.UUID) (split.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return split.Group{}, errs.ErrNotFound
	}
	return g, nil
}

func (s *Store) GroupsByCreator(_ context.Context, userID uuid.UUID) ([]split.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]split.Group, 0)
	for _, g := range s.groups {
		if g.CreatedBy == userID {
			out = append(out, g)
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) ListGroups(_ context.Context) ([]split.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]split.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) GroupMembers(_ context.Context, groupID uuid.UUID) ([]split.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, errs.ErrNotFound
	}
	return append([]split.Member(nil), s.membersByGroup[groupID]...), nil
}

// CreateGroup implements group.Writer.
func (s *Store) CreateGroup(_ context.Context, g split.Group, members []split.Member) (split.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return split.Group{}, errs.ErrConflict
	}
	s.groups[g.ID] = g
	s.membersByGroup[g.ID] = append([]split.Member(nil), members...)
	return g, nil
}

// Expense reads.

func (s *Store) Expense(_ context.Context, groupID, expenseID uuid.UUID) (split.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[expenseID]
	if !ok || e.GroupID != groupID {
		return split.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

func (s *Store) GroupExpenses(_ context.Context, groupID uuid.UUID) ([]split.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]split.Expense, 0)
	for _, e := range s.expenses {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Expense writes. The expense row and its balance deltas land under one lock.

func (s *Store) CreateExpense(_ context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; ok {
		return split.Expense{}, errs.ErrConflict
	}
	s.expenses[e.ID] = e
	s.applyDeltasLocked(e.GroupID, deltas)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok || old.GroupID != e.GroupID {
		return split.Expense{}, errs.ErrNotFound
	}
	s.expenses[e.ID] = e
	s.applyDeltasLocked(e.GroupID, deltas)
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, groupID, expenseID uuid.UUID, deltas []split.BalanceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok || e.GroupID != groupID {
		return errs.ErrNotFound
	}
	delete(s.expenses, expenseID)
	s.applyDeltasLocked(groupID, deltas)
	return nil
}

// Payment reads and writes.

func (s *Store) Payment(_ context.Context, paymentID uuid.UUID) (split.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return split.Payment{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *Store) GroupPayments(_ context.Context, groupID uuid.UUID) ([]split.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]split.Payment, 0)
	for _, p := range s.payments {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) CreatePayment(_ context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return split.Payment{}, errs.ErrConflict
	}
	s.payments[p.ID] = p
	s.applyDeltasLocked(p.GroupID, deltas)
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return split.Payment{}, errs.ErrNotFound
	}
	s.payments[p.ID] = p
	s.applyDeltasLocked(p.GroupID, deltas)
	return p, nil
}

// Balance reads and repair.

func (s *Store) GroupBalances(_ context.Context, groupID uuid.UUID) ([]split.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]split.Balance, 0, len(s.balances[groupID]))
	for userID, v := range s.balances[groupID] {
		out = append(out, split.Balance{GroupID: groupID, UserID: userID, AmountMinor: v})
	}
	sortBalances(out)
	return out, nil
}

// BalancesByUser returns the user's non-zero balance in every group they
// appear in.
func (s *Store) BalancesByUser(_ context.Context, userID uuid.UUID) ([]split.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]split.Balance, 0)
	for groupID, m := range s.balances {
		if v, ok := m[userID]; ok {
			out = append(out, split.Balance{GroupID: groupID, UserID: userID, AmountMinor: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupID.String() < out[j].GroupID.String()
	})
	return out, nil
}

// ReplaceGroupBalances implements audit.Writer.
func (s *Store) ReplaceGroupBalances(_ context.Context, groupID uuid.UUID, balances []split.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return errs.ErrNotFound
	}
	m := make(map[uuid.UUID]int64, len(balances))
	for _, b := range balances {
		if b.AmountMinor != 0 {
			m[b.UserID] = b.AmountMinor
		}
	}
	s.balances[groupID] = m
	return nil
}

// applyDeltasLocked folds deltas into the group's balance map, dropping
// entries that net out to zero. Caller must hold s.mu (write lock).
func (s *Store) applyDeltasLocked(groupID uuid.UUID, deltas []split.BalanceDelta) {
	if len(deltas) == 0 {
		return
	}
	m, ok := s.balances[groupID]
	if !ok {
		m = make(map[uuid.UUID]int64)
		s.balances[groupID] = m
	}
	for _, d := range deltas {
		next := m[d.UserID] + d.AmountMinor
		if next == 0 {
			delete(m, d.UserID)
		} else {
			m[d.UserID] = next
		}
	}
}

// Khata reads and writes.

func (s *Store) Customer(_ context.Context, customerID uuid.UUID) (khata.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return khata.Customer{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) CustomersByOwner(_ context.Context, ownerID uuid.UUID) ([]khata.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]khata.Customer, 0)
	for _, c := range s.customers {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) CustomerTransactions(_ context.Context, customerID uuid.UUID) ([]khata.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.customers[customerID]; !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]khata.Transaction, 0, len(s.txnsByCustomer[customerID]))
	for _, t := range s.txnsByCustomer[customerID] {
		out = append(out, t)
	}
	khata.SortChronological(out)
	return out, nil
}

func (s *Store) CreateCustomer(_ context.Context, c khata.Customer) (khata.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; ok {
		return khata.Customer{}, errs.ErrConflict
	}
	s.customers[c.ID] = c
	s.txnsByCustomer[c.ID] = make(map[uuid.UUID]khata.Transaction)
	return c, nil
}

// SaveTransactions implements khata.Writer: upserts and deletions for one
// customer land under one lock.
func (s *Store) SaveTransactions(_ context.Context, customerID uuid.UUID, upserts []khata.Transaction, deleteIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customerID]; !ok {
		return errs.ErrNotFound
	}
	m := s.txnsByCustomer[customerID]
	for _, id := range deleteIDs {
		delete(m, id)
	}
	for _, t := range upserts {
		m[t.ID] = t
	}
	return nil
}

// SaveEvent implements eventlog.Sink.
func (s *Store) SaveEvent(_ context.Context, e eventlog.Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded trail; used by tests.
func (s *Store) Events() []eventlog.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]eventlog.Event(nil), s.events...)
}

func sortGroups(groups []split.Group) {
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.Before(groups[j].CreatedAt)
		}
		return groups[i].ID.String() < groups[j].ID.String()
	})
}

func sortBalances(balances []split.Balance) {
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].UserID.String() < balances[j].UserID.String()
	})
}
