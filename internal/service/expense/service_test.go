package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/service/expense"
	"github.com/splitkhata/splitkhata/internal/split"
	"github.com/splitkhata/splitkhata/internal/storage/memory"
)

func seedGroup(t *testing.T, store *memory.Store, n int) (split.Group, []uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	users := make([]uuid.UUID, n)
	members := make([]split.Member, n)
	for i := range users {
		users[i] = uuid.New()
	}
	g := split.Group{
		ID:        uuid.New(),
		Name:      "Flat 4B",
		Slug:      "flat-4b",
		Currency:  "GBP",
		CreatedBy: users[0],
		CreatedAt: now,
	}
	for i, u := range users {
		members[i] = split.Member{GroupID: g.ID, UserID: u, JoinedAt: now}
	}
	store.SeedGroup(g, members)
	return g, users
}

func balancesByUser(t *testing.T, store *memory.Store, groupID uuid.UUID) (map[uuid.UUID]int64, int64) {
	t.Helper()
	balances, err := store.GroupBalances(context.Background(), groupID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	out := make(map[uuid.UUID]int64, len(balances))
	var sum int64
	for _, b := range balances {
		out[b.UserID] = b.AmountMinor
		sum += b.AmountMinor
	}
	return out, sum
}

func equalShares(users ...uuid.UUID) []split.ShareInput {
	shares := make([]split.ShareInput, len(users))
	for i, u := range users {
		shares[i] = split.ShareInput{UserID: u}
	}
	return shares
}

func TestCreateAppliesZeroSumDeltas(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 3)
	svc := expense.New(store, store, keylock.New(), nil)

	created, err := svc.Create(context.Background(), expense.Input{
		GroupID:    g.ID,
		TotalMinor: 9000,
		PaidBy:     users[0],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users...),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(created.Splits))
	}

	byUser, sum := balancesByUser(t, store, g.ID)
	if sum != 0 {
		t.Fatalf("balances must sum to zero, got %d", sum)
	}
	if byUser[users[0]] != 6000 {
		t.Fatalf("payer balance = %d, want 6000", byUser[users[0]])
	}
	if byUser[users[1]] != -3000 || byUser[users[2]] != -3000 {
		t.Fatalf("participant balances wrong: %+v", byUser)
	}
}

func TestUpdateEqualsDeleteAndRecreate(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 3)
	svc := expense.New(store, store, keylock.New(), nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, expense.Input{
		GroupID:    g.ID,
		TotalMinor: 9000,
		PaidBy:     users[0],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users...),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Change payer, total and participant set in one edit.
	if _, err := svc.Update(ctx, first.ID, expense.Input{
		GroupID:    g.ID,
		TotalMinor: 5000,
		PaidBy:     users[1],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users[0], users[1]),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	byUser, sum := balancesByUser(t, store, g.ID)
	if sum != 0 {
		t.Fatalf("balances must sum to zero after edit, got %d", sum)
	}
	// The edit must leave exactly the state a fresh 5000 expense would:
	// users[1] paid 5000 and owes 2500, users[0] owes 2500, users[2] is clear.
	if byUser[users[0]] != -2500 || byUser[users[1]] != 2500 {
		t.Fatalf("unexpected balances after edit: %+v", byUser)
	}
	if _, ok := byUser[users[2]]; ok {
		t.Fatalf("removed participant should have no balance, got %+v", byUser)
	}
}

func TestDeleteReversesEffectExactly(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 4)
	svc := expense.New(store, store, keylock.New(), nil)
	ctx := context.Background()

	// An awkward total so rounding paths are exercised.
	e, err := svc.Create(ctx, expense.Input{
		GroupID:    g.ID,
		TotalMinor: 10001,
		PaidBy:     users[2],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users...),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, g.ID, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	byUser, sum := balancesByUser(t, store, g.ID)
	if sum != 0 || len(byUser) != 0 {
		t.Fatalf("expected clean balances after delete, got %+v (sum %d)", byUser, sum)
	}
}

func TestCreateRejectsNonMembers(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 2)
	svc := expense.New(store, store, keylock.New(), nil)

	outsider := uuid.New()
	_, err := svc.Create(context.Background(), expense.Input{
		GroupID:    g.ID,
		TotalMinor: 1000,
		PaidBy:     users[0],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users[0], outsider),
	})
	if err == nil {
		t.Fatal("expected error for non-member participant")
	}
}

func TestCreateRejectsCurrencyMismatch(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 2)
	svc := expense.New(store, store, keylock.New(), nil)

	_, err := svc.Create(context.Background(), expense.Input{
		GroupID:    g.ID,
		Currency:   "USD",
		TotalMinor: 1000,
		PaidBy:     users[0],
		Policy:     split.PolicyEqual,
		Shares:     equalShares(users...),
	})
	if err == nil {
		t.Fatal("expected currency mismatch error")
	}
}

func TestPercentageExpenseBalances(t *testing.T) {
	store := memory.New()
	g, users := seedGroup(t, store, 2)
	svc := expense.New(store, store, keylock.New(), nil)

	_, err := svc.Create(context.Background(), expense.Input{
		GroupID:    g.ID,
		TotalMinor: 999,
		PaidBy:     users[0],
		Policy:     split.PolicyPercentage,
		Shares: []split.ShareInput{
			{UserID: users[0], PercentBps: 7500},
			{UserID: users[1], PercentBps: 2500},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, sum := balancesByUser(t, store, g.ID)
	if sum != 0 {
		t.Fatalf("balances must sum to zero, got %d", sum)
	}
}
