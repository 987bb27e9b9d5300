// Package audit replays a group's full mutation history and compares the
// result against stored balances. Validation never writes; repair is a
// separate, explicit operation that overwrites stored balances with the
// replayed truth and logs what it changed.
package audit

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/split"
)

var (
	auditRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitkhata",
		Name:      "audit_runs_total",
		Help:      "Number of consistency validations executed.",
	})
	auditDiscrepancies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitkhata",
		Name:      "audit_discrepancies_total",
		Help:      "Number of per-user balance discrepancies found by validations.",
	})
	balanceRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitkhata",
		Name:      "balance_repairs_total",
		Help:      "Number of explicit balance repairs applied.",
	})
)

// Repo defines read operations needed by the service.
type Repo interface {
	Group(ctx context.Context, groupID uuid.UUID) (split.Group, error)
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]split.Member, error)
	GroupExpenses(ctx context.Context, groupID uuid.UUID) ([]split.Expense, error)
	GroupPayments(ctx context.Context, groupID uuid.UUID) ([]split.Payment, error)
	GroupBalances(ctx context.Context, groupID uuid.UUID) ([]split.Balance, error)
	ListGroups(ctx context.Context) ([]split.Group, error)
}

// Writer replaces a group's stored balances in one atomic write.
type Writer interface {
	ReplaceGroupBalances(ctx context.Context, groupID uuid.UUID, balances []split.Balance) error
}

// Discrepancy is one user whose stored balance disagrees with the replay.
type Discrepancy struct {
	UserID          uuid.UUID `json:"user_id"`
	StoredMinor     int64     `json:"stored_minor"`
	RecomputedMinor int64     `json:"recomputed_minor"`
}

// Report is the outcome of validating one group.
type Report struct {
	GroupID       uuid.UUID     `json:"group_id"`
	AsOf          time.Time     `json:"as_of"`
	Consistent    bool          `json:"consistent"`
	ZeroSum       bool          `json:"zero_sum"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// Service validates and repairs group balances.
type Service interface {
	Validate(ctx context.Context, groupID uuid.UUID) (Report, error)
	Repair(ctx context.Context, groupID uuid.UUID) (Report, error)
	RunAll(ctx context.Context) error
}

type service struct {
	repo   Repo
	writer Writer
	locks  *keylock.Locker
	log    *slog.Logger
	events eventlog.Recorder
}

func New(repo Repo, writer Writer, locks *keylock.Locker, log *slog.Logger, events eventlog.Recorder) Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	return &service{repo: repo, writer: writer, locks: locks, log: log, events: events}
}

func (s *service) Validate(ctx context.Context, groupID uuid.UUID) (Report, error) {
	if groupID == uuid.Nil {
		return Report{}, errs.ErrInvalid
	}
	if _, err := s.repo.Group(ctx, groupID); err != nil {
		return Report{}, err
	}
	return s.validate(ctx, groupID)
}

func (s *service) validate(ctx context.Context, groupID uuid.UUID) (Report, error) {
	recomputed, err := s.replay(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	stored, err := s.repo.GroupBalances(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	storedByUser := make(map[uuid.UUID]int64, len(stored))
	var storedSum int64
	for _, b := range stored {
		storedByUser[b.UserID] = b.AmountMinor
		storedSum += b.AmountMinor
	}

	report := Report{
		GroupID: groupID,
		AsOf:    time.Now().UTC(),
		ZeroSum: storedSum == 0,
	}
	users := make(map[uuid.UUID]struct{}, len(recomputed))
	for id := range recomputed {
		users[id] = struct{}{}
	}
	for id := range storedByUser {
		users[id] = struct{}{}
	}
	for id := range users {
		got, want := storedByUser[id], recomputed[id]
		if got != want {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				UserID:          id,
				StoredMinor:     got,
				RecomputedMinor: want,
			})
		}
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		return report.Discrepancies[i].UserID.String() < report.Discrepancies[j].UserID.String()
	})
	report.Consistent = len(report.Discrepancies) == 0 && report.ZeroSum

	auditRuns.Inc()
	auditDiscrepancies.Add(float64(len(report.Discrepancies)))
	if !report.Consistent {
		s.log.Warn("balance inconsistency detected",
			"group_id", groupID.String(),
			"discrepancies", len(report.Discrepancies),
			"zero_sum", report.ZeroSum)
	}
	return report, nil
}

// replay folds every expense and every completed payment of the group, in
// (Date, ID) order, into per-user net balances.
func (s *service) replay(ctx context.Context, groupID uuid.UUID) (map[uuid.UUID]int64, error) {
	expenses, err := s.repo.GroupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.GroupPayments(ctx, groupID)
	if err != nil {
		return nil, err
	}

	type mutation struct {
		date   time.Time
		id     string
		deltas []split.BalanceDelta
	}
	muts := make([]mutation, 0, len(expenses)+len(payments))
	for _, e := range expenses {
		muts = append(muts, mutation{date: e.Date, id: e.ID.String(), deltas: split.ExpenseDeltas(e)})
	}
	for _, p := range payments {
		if p.Status != split.PaymentCompleted {
			continue
		}
		muts = append(muts, mutation{date: p.Date, id: p.ID.String(), deltas: split.PaymentDeltas(p)})
	}
	sort.Slice(muts, func(i, j int) bool {
		if !muts[i].date.Equal(muts[j].date) {
			return muts[i].date.Before(muts[j].date)
		}
		return muts[i].id < muts[j].id
	})

	acc := make(map[uuid.UUID]int64)
	for _, m := range muts {
		for _, d := range m.deltas {
			acc[d.UserID] += d.AmountMinor
		}
	}
	for id, v := range acc {
		if v == 0 {
			delete(acc, id)
		}
	}
	return acc, nil
}

func (s *service) Repair(ctx context.Context, groupID uuid.UUID) (Report, error) {
	if groupID == uuid.Nil {
		return Report{}, errs.ErrInvalid
	}
	if _, err := s.repo.Group(ctx, groupID); err != nil {
		return Report{}, err
	}

	var report Report
	unlock := s.locks.Lock("group:" + groupID.String())
	defer unlock()

	report, err := s.validate(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	if report.Consistent {
		return report, nil
	}

	recomputed, err := s.replay(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	balances := make([]split.Balance, 0, len(recomputed))
	for id, v := range recomputed {
		balances = append(balances, split.Balance{GroupID: groupID, UserID: id, AmountMinor: v})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].UserID.String() < balances[j].UserID.String()
	})
	if err := s.writer.ReplaceGroupBalances(ctx, groupID, balances); err != nil {
		return Report{}, err
	}

	balanceRepairs.Inc()
	s.log.Warn("balances repaired from replay",
		"group_id", groupID.String(),
		"discrepancies", len(report.Discrepancies))
	s.events.Record(eventlog.New(eventlog.TypeBalanceRepaired, report, map[string]string{
		"group_id": groupID.String(),
	}))

	repaired, err := s.validate(ctx, groupID)
	if err != nil {
		return Report{}, err
	}
	return repaired, nil
}

// RunAll validates every group; used by the scheduled audit job. Failures are
// logged and do not stop the sweep.
func (s *service) RunAll(ctx context.Context) error {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := s.validate(ctx, g.ID); err != nil {
			s.log.Error("scheduled audit failed for group", "group_id", g.ID.String(), "err", err)
		}
	}
	return nil
}
