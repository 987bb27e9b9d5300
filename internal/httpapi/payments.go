package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/splitkhata/splitkhata/internal/service/payment"
	"github.com/splitkhata/splitkhata/internal/split"
)

// POST /v1/payments
func (s *Server) postPayment(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostPayment).(payment.Input)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.paymentSvc.Create(r.Context(), in)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toPaymentResponse(created))
}

// GET /v1/payments?group_id=
func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyListByGroup).(listByGroupQuery)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	payments, err := s.paymentSvc.List(r.Context(), q.GroupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := listPaymentsResponse{Items: make([]paymentResponse, 0, len(payments))}
	for _, p := range payments {
		resp.Items = append(resp.Items, toPaymentResponse(p))
	}
	toJSON(w, http.StatusOK, resp)
}

// PATCH /v1/payments/{id}/status
func (s *Server) patchPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req patchPaymentStatusRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	updated, err := s.paymentSvc.UpdateStatus(r.Context(), paymentID, req.Status)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toPaymentResponse(updated))
}

func toPaymentResponse(p split.Payment) paymentResponse {
	amountMinor, _ := p.Amount.MinorUnits()
	return paymentResponse{
		ID:          p.ID,
		GroupID:     p.GroupID,
		FromUserID:  p.FromUserID,
		ToUserID:    p.ToUserID,
		AmountMinor: amountMinor,
		Amount:      p.Amount.String(),
		Currency:    p.Currency,
		Status:      p.Status,
		Date:        p.Date,
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
