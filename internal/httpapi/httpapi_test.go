package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/httpapi"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/split"
	"github.com/splitkhata/splitkhata/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httpapi.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.New(store, keylock.New(), eventlog.Nop{}, logger), store
}

func doJSON(t *testing.T, srv *httpapi.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type groupResp struct {
	ID       uuid.UUID `json:"id"`
	Slug     string    `json:"slug"`
	Currency string    `json:"currency"`
	Members  []struct {
		UserID uuid.UUID `json:"user_id"`
	} `json:"members"`
}

type balancesResp struct {
	GroupID  uuid.UUID `json:"group_id"`
	Balances []struct {
		UserID      uuid.UUID `json:"user_id"`
		AmountMinor int64     `json:"amount_minor"`
	} `json:"balances"`
}

type settlementResp struct {
	Transfers []struct {
		FromUserID  uuid.UUID `json:"from_user_id"`
		ToUserID    uuid.UUID `json:"to_user_id"`
		AmountMinor int64     `json:"amount_minor"`
	} `json:"transfers"`
}

type reportResp struct {
	Consistent    bool `json:"consistent"`
	ZeroSum       bool `json:"zero_sum"`
	Discrepancies []struct {
		UserID          uuid.UUID `json:"user_id"`
		StoredMinor     int64     `json:"stored_minor"`
		RecomputedMinor int64     `json:"recomputed_minor"`
	} `json:"discrepancies"`
}

func createGroup(t *testing.T, srv *httpapi.Server, creator uuid.UUID, members []uuid.UUID) groupResp {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/v1/groups", map[string]any{
		"name":       "Flat 4B",
		"currency":   "GBP",
		"created_by": creator,
		"member_ids": members,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: %d %s", rec.Code, rec.Body.String())
	}
	var g groupResp
	decode(t, rec, &g)
	return g
}

func groupBalances(t *testing.T, srv *httpapi.Server, groupID uuid.UUID) map[uuid.UUID]int64 {
	t.Helper()
	rec := doJSON(t, srv, http.MethodGet, "/v1/groups/"+groupID.String()+"/balances", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balances: %d %s", rec.Code, rec.Body.String())
	}
	var resp balancesResp
	decode(t, rec, &resp)
	out := make(map[uuid.UUID]int64)
	for _, b := range resp.Balances {
		out[b.UserID] = b.AmountMinor
	}
	return out
}

func TestExpenseToSettlementFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	g := createGroup(t, srv, alice, []uuid.UUID{bob, carol})
	if len(g.Members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(g.Members))
	}

	// Alice fronts 100.00 split three ways.
	rec := doJSON(t, srv, http.MethodPost, "/v1/expenses", map[string]any{
		"group_id":     g.ID,
		"description":  "groceries",
		"category":     "groceries",
		"amount_minor": 10000,
		"paid_by":      alice,
		"policy":       "equal",
		"shares": []map[string]any{
			{"user_id": alice},
			{"user_id": bob},
			{"user_id": carol},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     uuid.UUID `json:"id"`
		Splits []struct {
			AmountMinor int64 `json:"amount_minor"`
		} `json:"splits"`
	}
	decode(t, rec, &created)
	var splitSum int64
	for _, sp := range created.Splits {
		splitSum += sp.AmountMinor
	}
	if splitSum != 10000 {
		t.Fatalf("splits must sum to the total, got %d", splitSum)
	}

	byUser := groupBalances(t, srv, g.ID)
	var sum int64
	for _, v := range byUser {
		sum += v
	}
	if sum != 0 {
		t.Fatalf("balances must sum to zero, got %+v", byUser)
	}
	if byUser[alice] <= 0 {
		t.Fatalf("payer should be owed money, got %+v", byUser)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/groups/"+g.ID.String()+"/settlement", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settlement: %d %s", rec.Code, rec.Body.String())
	}
	var plan settlementResp
	decode(t, rec, &plan)
	if len(plan.Transfers) != 2 {
		t.Fatalf("expected 2 transfers for one creditor and two debtors, got %+v", plan.Transfers)
	}
	var toAlice int64
	for _, tr := range plan.Transfers {
		if tr.ToUserID != alice {
			t.Fatalf("all transfers should flow to the payer, got %+v", tr)
		}
		toAlice += tr.AmountMinor
	}
	if toAlice != byUser[alice] {
		t.Fatalf("transfers total %d, payer is owed %d", toAlice, byUser[alice])
	}

	// Bob pays his share back and the payment is completed.
	bobOwes := -byUser[bob]
	rec = doJSON(t, srv, http.MethodPost, "/v1/payments", map[string]any{
		"group_id":     g.ID,
		"from_user_id": bob,
		"to_user_id":   alice,
		"amount_minor": bobOwes,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment: %d %s", rec.Code, rec.Body.String())
	}
	var pay struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	decode(t, rec, &pay)
	if pay.Status != "pending" {
		t.Fatalf("payment should default to pending, got %q", pay.Status)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/v1/payments/"+pay.ID.String()+"/status", map[string]any{
		"status": "completed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete payment: %d %s", rec.Code, rec.Body.String())
	}

	byUser = groupBalances(t, srv, g.ID)
	if _, ok := byUser[bob]; ok {
		t.Fatalf("bob should be settled, got %+v", byUser)
	}
	if byUser[alice] != toAlice-bobOwes {
		t.Fatalf("alice balance after payment = %d, want %d", byUser[alice], toAlice-bobOwes)
	}
}

func TestConsistencyAndRepairEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	alice, bob := uuid.New(), uuid.New()
	g := createGroup(t, srv, alice, []uuid.UUID{bob})

	rec := doJSON(t, srv, http.MethodPost, "/v1/expenses", map[string]any{
		"group_id":     g.ID,
		"description":  "dinner",
		"amount_minor": 1000,
		"paid_by":      alice,
		"policy":       "equal",
		"shares":       []map[string]any{{"user_id": alice}, {"user_id": bob}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/groups/"+g.ID.String()+"/consistency", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("consistency: %d %s", rec.Code, rec.Body.String())
	}
	var report reportResp
	decode(t, rec, &report)
	if !report.Consistent || !report.ZeroSum {
		t.Fatalf("expected clean report, got %+v", report)
	}

	// Corrupt a stored balance behind the accumulator's back.
	store.SetBalance(split.Balance{GroupID: g.ID, UserID: alice, AmountMinor: 9999})

	rec = doJSON(t, srv, http.MethodGet, "/v1/groups/"+g.ID.String()+"/consistency", nil)
	decode(t, rec, &report)
	if report.Consistent || len(report.Discrepancies) != 1 {
		t.Fatalf("expected one discrepancy, got %+v", report)
	}
	d := report.Discrepancies[0]
	if d.UserID != alice || d.StoredMinor != 9999 || d.RecomputedMinor != 500 {
		t.Fatalf("unexpected discrepancy: %+v", d)
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/groups/"+g.ID.String()+"/repair", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repair: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &report)
	if !report.Consistent {
		t.Fatalf("expected consistent after repair, got %+v", report)
	}
	byUser := groupBalances(t, srv, g.ID)
	if byUser[alice] != 500 || byUser[bob] != -500 {
		t.Fatalf("repair did not restore replayed balances: %+v", byUser)
	}
}

func TestKhataFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	owner := uuid.New()

	rec := doJSON(t, srv, http.MethodPost, "/v1/khata/customers", map[string]any{
		"owner_id": owner,
		"name":     "Ravi",
		"phone":    "+919812345678",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer: %d %s", rec.Code, rec.Body.String())
	}
	var cust struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &cust)

	for _, step := range []struct {
		typ    string
		amount int64
		date   string
	}{
		{"give", 1000, "2025-03-01T00:00:00Z"},
		{"get", 400, "2025-03-02T00:00:00Z"},
	} {
		rec = doJSON(t, srv, http.MethodPost, "/v1/khata/transactions", map[string]any{
			"customer_id":  cust.ID,
			"type":         step.typ,
			"amount_minor": step.amount,
			"date":         step.date,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create tx: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/khata/customers/"+cust.ID.String()+"/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list txns: %d %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Items []struct {
			ID           uuid.UUID `json:"id"`
			RunningMinor int64     `json:"running_minor"`
			Currency     string    `json:"currency"`
		} `json:"items"`
	}
	decode(t, rec, &list)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 transactions, got %+v", list.Items)
	}
	if list.Items[0].RunningMinor != 1000 || list.Items[1].RunningMinor != 600 {
		t.Fatalf("runnings = %d, %d", list.Items[0].RunningMinor, list.Items[1].RunningMinor)
	}
	if list.Items[0].Currency != "INR" {
		t.Fatalf("currency should default to INR, got %q", list.Items[0].Currency)
	}

	rec = doJSON(t, srv, http.MethodDelete,
		fmt.Sprintf("/v1/khata/transactions/%s?customer_id=%s", list.Items[1].ID, cust.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete tx: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/khata/customers/"+cust.ID.String()+"/transactions", nil)
	decode(t, rec, &list)
	if len(list.Items) != 1 || list.Items[0].RunningMinor != 1000 {
		t.Fatalf("expected single give entry after delete, got %+v", list.Items)
	}
}

func TestRequestValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob := uuid.New(), uuid.New()
	g := createGroup(t, srv, alice, []uuid.UUID{bob})

	// Missing content type.
	req := httptest.NewRequest(http.MethodPost, "/v1/expenses", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}

	// Malformed id parameter.
	rec = doJSON(t, srv, http.MethodGet, "/v1/groups/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	// Unknown group.
	rec = doJSON(t, srv, http.MethodGet, "/v1/groups/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown group, got %d", rec.Code)
	}

	// Percentages that do not reach 100.00%.
	rec = doJSON(t, srv, http.MethodPost, "/v1/expenses", map[string]any{
		"group_id":     g.ID,
		"description":  "taxi",
		"amount_minor": 999,
		"paid_by":      alice,
		"policy":       "percentage",
		"shares": []map[string]any{
			{"user_id": alice, "percent_bps": 6000},
			{"user_id": bob, "percent_bps": 3000},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	var apiErr struct {
		Code string `json:"code"`
	}
	decode(t, rec, &apiErr)
	if apiErr.Code != "percent_total" {
		t.Fatalf("expected percent_total code, got %q", apiErr.Code)
	}

	// Duplicate group slug for the same creator.
	rec = doJSON(t, srv, http.MethodPost, "/v1/groups", map[string]any{
		"name":       "Flat 4B",
		"currency":   "GBP",
		"created_by": alice,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate slug, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndDictionary(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/dictionary/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories: %d", rec.Code)
	}
	var dict struct {
		Items []struct {
			Code string `json:"code"`
		} `json:"items"`
	}
	decode(t, rec, &dict)
	found := false
	for _, item := range dict.Items {
		if item.Code == "groceries" {
			found = true
		}
	}
	if !found || len(dict.Items) < 5 {
		t.Fatalf("unexpected category dictionary: %+v", dict.Items)
	}
}
