package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/meta"
	"github.com/splitkhata/splitkhata/internal/service/expense"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
	"github.com/splitkhata/splitkhata/internal/service/payment"
	"github.com/splitkhata/splitkhata/internal/split"
)

type ctxKey string

const ctxKeyPostGroup ctxKey = "validatedPostGroup"
const ctxKeyPostExpense ctxKey = "validatedPostExpense"
const ctxKeyPostPayment ctxKey = "validatedPostPayment"
const ctxKeyListByGroup ctxKey = "validatedListByGroup"
const ctxKeyPostKhataTx ctxKey = "validatedPostKhataTx"

// validatePostGroup parses and validates the POST /groups body and stores the
// domain group plus member ids in the request context.
func (s *Server) validatePostGroup() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postGroupRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, "validation_error", "validation_error")
					return
				}
			}
			g := split.Group{
				Name:      req.Name,
				Currency:  req.Currency,
				CreatedBy: req.CreatedBy,
				Metadata:  meta.New(req.Metadata),
			}
			if err := s.groupSvc.ValidateCreate(g, req.MemberIDs); err != nil {
				badRequest(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostGroup, validatedGroup{group: g, memberIDs: req.MemberIDs})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type validatedGroup struct {
	group     split.Group
	memberIDs []uuid.UUID
}

// validatePostExpense parses the POST/PUT expense body into an expense.Input.
// Split math and membership checks live in the service layer.
func (s *Server) validatePostExpense() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postExpenseRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.GroupID == uuid.Nil || req.PaidBy == uuid.Nil {
				badRequest(w, "group_id and paid_by are required")
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, "validation_error", "validation_error")
					return
				}
			}
			in := toExpenseInput(req)
			ctx := context.WithValue(r.Context(), ctxKeyPostExpense, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostPayment parses the POST /payments body into a payment.Input.
func (s *Server) validatePostPayment() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postPaymentRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.GroupID == uuid.Nil || req.FromUserID == uuid.Nil || req.ToUserID == uuid.Nil {
				badRequest(w, "group_id, from_user_id and to_user_id are required")
				return
			}
			in := payment.Input{
				GroupID:     req.GroupID,
				FromUserID:  req.FromUserID,
				ToUserID:    req.ToUserID,
				Currency:    req.Currency,
				AmountMinor: req.AmountMinor,
				Status:      req.Status,
				Date:        req.Date,
				Note:        req.Note,
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostPayment, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListByGroup validates the group_id query param for list endpoints.
func (s *Server) validateListByGroup() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.URL.Query().Get("group_id")
			if raw == "" {
				badRequest(w, "group_id is required")
				return
			}
			groupID, err := uuid.Parse(raw)
			if err != nil {
				badRequest(w, "invalid group_id")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyListByGroup, listByGroupQuery{GroupID: groupID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostKhataTx parses the khata transaction body into a khata TxInput.
func (s *Server) validatePostKhataTx() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postKhataTxRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.CustomerID == uuid.Nil {
				badRequest(w, "customer_id is required")
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, "validation_error", "validation_error")
					return
				}
			}
			in := khatasvc.TxInput{
				CustomerID:  req.CustomerID,
				Type:        req.Type,
				Currency:    req.Currency,
				AmountMinor: req.AmountMinor,
				Date:        req.Date,
				Note:        req.Note,
				Metadata:    meta.New(req.Metadata),
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostKhataTx, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toExpenseInput(req postExpenseRequest) expense.Input {
	shares := make([]split.ShareInput, 0, len(req.Shares))
	for _, sh := range req.Shares {
		shares = append(shares, split.ShareInput{
			UserID:      sh.UserID,
			PercentBps:  sh.PercentBps,
			ShareCount:  sh.ShareCount,
			AmountMinor: sh.AmountMinor,
		})
	}
	return expense.Input{
		GroupID:     req.GroupID,
		Description: req.Description,
		Category:    req.Category,
		Currency:    req.Currency,
		TotalMinor:  req.AmountMinor,
		PaidBy:      req.PaidBy,
		Policy:      req.Policy,
		Date:        req.Date,
		Metadata:    meta.New(req.Metadata),
		Shares:      shares,
	}
}
