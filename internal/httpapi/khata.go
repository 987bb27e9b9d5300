package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/khata"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
)

// POST /v1/khata/customers
func (s *Server) postKhataCustomer(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postKhataCustomerRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := s.khataSvc.CreateCustomer(r.Context(), req.OwnerID, req.Name, req.Phone)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toKhataCustomerResponse(created))
}

// GET /v1/khata/customers?owner_id=
func (s *Server) listKhataCustomers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("owner_id")
	if raw == "" {
		badRequest(w, "owner_id is required")
		return
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid owner_id")
		return
	}
	customers, err := s.khataSvc.Customers(r.Context(), ownerID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	items := make([]khataCustomerResponse, 0, len(customers))
	for _, c := range customers {
		items = append(items, toKhataCustomerResponse(c))
	}
	toJSON(w, http.StatusOK, struct {
		Items []khataCustomerResponse `json:"items"`
	}{Items: items})
}

// GET /v1/khata/customers/{id}/transactions
func (s *Server) listKhataTransactions(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	txns, err := s.khataSvc.Transactions(r.Context(), customerID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := listKhataTxResponse{Items: make([]khataTxResponse, 0, len(txns))}
	for _, t := range txns {
		resp.Items = append(resp.Items, toKhataTxResponse(t))
	}
	toJSON(w, http.StatusOK, resp)
}

// POST /v1/khata/transactions
func (s *Server) postKhataTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostKhataTx).(khatasvc.TxInput)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.khataSvc.CreateTransaction(r.Context(), in)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toKhataTxResponse(created))
}

// PUT /v1/khata/transactions/{id}
func (s *Server) putKhataTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	in, ok := r.Context().Value(ctxKeyPostKhataTx).(khatasvc.TxInput)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	updated, err := s.khataSvc.UpdateTransaction(r.Context(), txID, in)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toKhataTxResponse(updated))
}

// DELETE /v1/khata/transactions/{id}?customer_id=
func (s *Server) deleteKhataTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("customer_id")
	if raw == "" {
		badRequest(w, "customer_id is required")
		return
	}
	customerID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid customer_id")
		return
	}
	if err := s.khataSvc.DeleteTransaction(r.Context(), customerID, txID); err != nil {
		s.respondServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toKhataCustomerResponse(c khata.Customer) khataCustomerResponse {
	return khataCustomerResponse{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func toKhataTxResponse(t khata.Transaction) khataTxResponse {
	amountMinor, _ := t.Amount.MinorUnits()
	return khataTxResponse{
		ID:           t.ID,
		CustomerID:   t.CustomerID,
		Type:         t.Type,
		Currency:     t.Amount.Curr().Code(),
		AmountMinor:  amountMinor,
		Amount:       t.Amount.String(),
		Date:         t.Date,
		RunningMinor: t.RunningMinor,
		Note:         t.Note,
		Metadata:     t.Metadata,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
