package khata_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/khata"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
	"github.com/splitkhata/splitkhata/internal/storage/memory"
)

func day(n int) time.Time {
	return time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC)
}

func newService(t *testing.T) (khatasvc.Service, *memory.Store, khata.Customer) {
	t.Helper()
	store := memory.New()
	svc := khatasvc.New(store, store, keylock.New(), nil)
	c, err := svc.CreateCustomer(context.Background(), uuid.New(), "Ravi", "+447700900000")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return svc, store, c
}

func runnings(t *testing.T, svc khatasvc.Service, customerID uuid.UUID) []int64 {
	t.Helper()
	txns, err := svc.Transactions(context.Background(), customerID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	out := make([]int64, len(txns))
	for i, tx := range txns {
		out[i] = tx.RunningMinor
	}
	return out
}

func TestRunningBalancesAccumulate(t *testing.T) {
	svc, _, c := newService(t)
	ctx := context.Background()

	steps := []struct {
		typ    khata.EntryType
		amount int64
		date   time.Time
	}{
		{khata.EntryGive, 1000, day(1)},
		{khata.EntryGet, 400, day(2)},
		{khata.EntryGive, 250, day(3)},
	}
	for _, st := range steps {
		if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
			CustomerID:  c.ID,
			Type:        st.typ,
			Currency:    "INR",
			AmountMinor: st.amount,
			Date:        st.date,
		}); err != nil {
			t.Fatalf("create tx: %v", err)
		}
	}

	got := runnings(t, svc, c.ID)
	want := []int64{1000, 600, 850}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("running[%d] = %d, want %d (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestBackDatedInsertRecomputesSuffixOnly(t *testing.T) {
	svc, _, c := newService(t)
	ctx := context.Background()

	for _, st := range []struct {
		amount int64
		date   time.Time
	}{{1000, day(1)}, {500, day(5)}} {
		if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
			CustomerID: c.ID, Type: khata.EntryGive, Currency: "INR",
			AmountMinor: st.amount, Date: st.date,
		}); err != nil {
			t.Fatalf("create tx: %v", err)
		}
	}

	// Insert between the two existing entries.
	if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
		CustomerID: c.ID, Type: khata.EntryGet, Currency: "INR",
		AmountMinor: 300, Date: day(3),
	}); err != nil {
		t.Fatalf("back-dated create: %v", err)
	}

	got := runnings(t, svc, c.ID)
	want := []int64{1000, 700, 1200}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("running[%d] = %d, want %d (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestUpdateMovesTransactionEarlier(t *testing.T) {
	svc, _, c := newService(t)
	ctx := context.Background()

	var last khata.Transaction
	for _, st := range []struct {
		amount int64
		date   time.Time
	}{{1000, day(1)}, {200, day(4)}, {300, day(6)}} {
		tx, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
			CustomerID: c.ID, Type: khata.EntryGive, Currency: "INR",
			AmountMinor: st.amount, Date: st.date,
		})
		if err != nil {
			t.Fatalf("create tx: %v", err)
		}
		last = tx
	}

	// Move the day-6 entry to day 2 and change it to a repayment.
	if _, err := svc.UpdateTransaction(ctx, last.ID, khatasvc.TxInput{
		CustomerID: c.ID, Type: khata.EntryGet, Currency: "INR",
		AmountMinor: 300, Date: day(2),
	}); err != nil {
		t.Fatalf("update tx: %v", err)
	}

	got := runnings(t, svc, c.ID)
	want := []int64{1000, 700, 900}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("running[%d] = %d, want %d (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestDeleteRecomputesFromRemovedDate(t *testing.T) {
	svc, _, c := newService(t)
	ctx := context.Background()

	var middle khata.Transaction
	for i, st := range []struct {
		amount int64
		date   time.Time
	}{{1000, day(1)}, {400, day(3)}, {100, day(5)}} {
		tx, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
			CustomerID: c.ID, Type: khata.EntryGive, Currency: "INR",
			AmountMinor: st.amount, Date: st.date,
		})
		if err != nil {
			t.Fatalf("create tx: %v", err)
		}
		if i == 1 {
			middle = tx
		}
	}

	if err := svc.DeleteTransaction(ctx, c.ID, middle.ID); err != nil {
		t.Fatalf("delete tx: %v", err)
	}
	got := runnings(t, svc, c.ID)
	want := []int64{1000, 1100}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("runnings after delete = %v, want %v", got, want)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, c := newService(t)
	ctx := context.Background()

	if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
		CustomerID: c.ID, Type: "loan", Currency: "INR", AmountMinor: 100,
	}); err == nil {
		t.Fatal("expected error for unknown entry type")
	}
	if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
		CustomerID: c.ID, Type: khata.EntryGive, Currency: "INR", AmountMinor: 0,
	}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := svc.CreateTransaction(ctx, khatasvc.TxInput{
		CustomerID: uuid.New(), Type: khata.EntryGive, Currency: "INR", AmountMinor: 100,
	}); err == nil {
		t.Fatal("expected error for unknown customer")
	}
}
