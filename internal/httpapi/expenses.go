package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/service/expense"
	"github.com/splitkhata/splitkhata/internal/split"
)

// POST /v1/expenses
func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostExpense).(expense.Input)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.expenseSvc.Create(r.Context(), in)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toExpenseResponse(created))
}

// GET /v1/expenses?group_id=
func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyListByGroup).(listByGroupQuery)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	expenses, err := s.expenseSvc.List(r.Context(), q.GroupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := listExpensesResponse{Items: make([]expenseResponse, 0, len(expenses))}
	for _, e := range expenses {
		resp.Items = append(resp.Items, toExpenseResponse(e))
	}
	toJSON(w, http.StatusOK, resp)
}

// GET /v1/expenses/{id}?group_id=
func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	groupID, ok := parseGroupIDQuery(w, r)
	if !ok {
		return
	}
	e, err := s.expenseSvc.Get(r.Context(), groupID, expenseID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(e))
}

// PUT /v1/expenses/{id}
func (s *Server) putExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	in, ok := r.Context().Value(ctxKeyPostExpense).(expense.Input)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	updated, err := s.expenseSvc.Update(r.Context(), expenseID, in)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(updated))
}

// DELETE /v1/expenses/{id}?group_id=
func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	groupID, ok := parseGroupIDQuery(w, r)
	if !ok {
		return
	}
	if err := s.expenseSvc.Delete(r.Context(), groupID, expenseID); err != nil {
		s.respondServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseGroupIDQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("group_id")
	if raw == "" {
		badRequest(w, "group_id is required")
		return uuid.Nil, false
	}
	groupID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid group_id")
		return uuid.Nil, false
	}
	return groupID, true
}

func toExpenseResponse(e split.Expense) expenseResponse {
	amountMinor, _ := e.Amount.MinorUnits()
	resp := expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Category:    e.Category,
		Currency:    e.Currency,
		AmountMinor: amountMinor,
		Amount:      e.Amount.String(),
		PaidBy:      e.PaidBy,
		Policy:      e.Policy,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Metadata:    e.Metadata,
		Splits:      make([]splitResponse, 0, len(e.Splits)),
	}
	for _, sp := range e.Splits {
		spMinor, _ := sp.Amount.MinorUnits()
		resp.Splits = append(resp.Splits, splitResponse{
			ID:          sp.ID,
			UserID:      sp.UserID,
			AmountMinor: spMinor,
			Amount:      sp.Amount.String(),
			PercentBps:  sp.PercentBps,
			ShareCount:  sp.ShareCount,
		})
	}
	return resp
}
