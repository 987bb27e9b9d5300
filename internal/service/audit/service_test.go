package audit_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/service/audit"
	"github.com/splitkhata/splitkhata/internal/split"
	"github.com/splitkhata/splitkhata/internal/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedGroupWithExpense(t *testing.T, store *memory.Store) (split.Group, uuid.UUID, uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	alice, bob := uuid.New(), uuid.New()
	g := split.Group{
		ID:        uuid.New(),
		Name:      "Trip",
		Slug:      "trip",
		Currency:  "GBP",
		CreatedBy: alice,
		CreatedAt: now,
	}
	store.SeedGroup(g, []split.Member{
		{GroupID: g.ID, UserID: alice, JoinedAt: now},
		{GroupID: g.ID, UserID: bob, JoinedAt: now},
	})

	total, _ := money.NewAmountFromMinorUnits("GBP", 1000)
	half, _ := money.NewAmountFromMinorUnits("GBP", 500)
	e := split.Expense{
		ID:        uuid.New(),
		GroupID:   g.ID,
		Category:  split.CategoryGeneral,
		Currency:  "GBP",
		Amount:    total,
		PaidBy:    alice,
		Policy:    split.PolicyEqual,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
		Splits: []split.Split{
			{ID: uuid.New(), UserID: alice, Amount: half},
			{ID: uuid.New(), UserID: bob, Amount: half},
		},
	}
	if _, err := store.CreateExpense(context.Background(), e, split.ExpenseDeltas(e)); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return g, alice, bob
}

func TestValidateCleanGroup(t *testing.T) {
	store := memory.New()
	g, _, _ := seedGroupWithExpense(t, store)
	svc := audit.New(store, store, keylock.New(), discardLogger(), nil)

	report, err := svc.Validate(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Consistent || !report.ZeroSum || len(report.Discrepancies) != 0 {
		t.Fatalf("expected consistent report, got %+v", report)
	}
}

func TestValidateDetectsDrift(t *testing.T) {
	store := memory.New()
	g, alice, _ := seedGroupWithExpense(t, store)
	svc := audit.New(store, store, keylock.New(), discardLogger(), nil)

	// Corrupt one stored balance behind the accumulator's back.
	store.SetBalance(split.Balance{GroupID: g.ID, UserID: alice, AmountMinor: 999})

	report, err := svc.Validate(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistency to be detected")
	}
	if len(report.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %+v", report.Discrepancies)
	}
	d := report.Discrepancies[0]
	if d.UserID != alice || d.StoredMinor != 999 || d.RecomputedMinor != 500 {
		t.Fatalf("unexpected discrepancy: %+v", d)
	}

	// Validation never writes: the stored value stays corrupted.
	balances, _ := store.GroupBalances(context.Background(), g.ID)
	for _, b := range balances {
		if b.UserID == alice && b.AmountMinor != 999 {
			t.Fatalf("validate must not repair, stored = %d", b.AmountMinor)
		}
	}
}

func TestRepairRestoresReplayedTruth(t *testing.T) {
	store := memory.New()
	g, alice, bob := seedGroupWithExpense(t, store)
	svc := audit.New(store, store, keylock.New(), discardLogger(), nil)
	ctx := context.Background()

	store.SetBalance(split.Balance{GroupID: g.ID, UserID: alice, AmountMinor: 12345})
	store.SetBalance(split.Balance{GroupID: g.ID, UserID: bob, AmountMinor: 7})

	report, err := svc.Repair(ctx, g.ID)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("expected consistent report after repair, got %+v", report)
	}
	balances, _ := store.GroupBalances(ctx, g.ID)
	byUser := map[uuid.UUID]int64{}
	for _, b := range balances {
		byUser[b.UserID] = b.AmountMinor
	}
	if byUser[alice] != 500 || byUser[bob] != -500 {
		t.Fatalf("repair did not restore replayed balances: %+v", byUser)
	}

	// Repair on a clean group changes nothing.
	again, err := svc.Repair(ctx, g.ID)
	if err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if !again.Consistent {
		t.Fatalf("expected clean report, got %+v", again)
	}
}

func TestReplayIgnoresPendingAndCancelledPayments(t *testing.T) {
	store := memory.New()
	g, alice, bob := seedGroupWithExpense(t, store)
	svc := audit.New(store, store, keylock.New(), discardLogger(), nil)
	ctx := context.Background()

	amt, _ := money.NewAmountFromMinorUnits("GBP", 500)
	now := time.Now().UTC()
	pending := split.Payment{
		ID: uuid.New(), GroupID: g.ID, FromUserID: bob, ToUserID: alice,
		Amount: amt, Currency: "GBP", Status: split.PaymentPending,
		Date: now, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := store.CreatePayment(ctx, pending, nil); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	report, err := svc.Validate(ctx, g.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("pending payment must not affect the replay, got %+v", report)
	}
}

func TestRunAllSweepsEveryGroup(t *testing.T) {
	store := memory.New()
	seedGroupWithExpense(t, store)
	seedGroupWithExpense(t, store)
	svc := audit.New(store, store, keylock.New(), discardLogger(), nil)

	if err := svc.RunAll(context.Background()); err != nil {
		t.Fatalf("run all: %v", err)
	}
}
