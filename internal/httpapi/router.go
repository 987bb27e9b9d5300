// Package httpapi wires the HTTP surface of the splitkhata service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/splitkhata/splitkhata/internal/eventlog"
	"github.com/splitkhata/splitkhata/internal/keylock"
	"github.com/splitkhata/splitkhata/internal/service/audit"
	"github.com/splitkhata/splitkhata/internal/service/expense"
	"github.com/splitkhata/splitkhata/internal/service/group"
	khatasvc "github.com/splitkhata/splitkhata/internal/service/khata"
	"github.com/splitkhata/splitkhata/internal/service/payment"
	"github.com/splitkhata/splitkhata/internal/service/settlement"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	groupSvc      group.Service
	expenseSvc    expense.Service
	paymentSvc    payment.Service
	settlementSvc settlement.Service
	auditSvc      audit.Service
	khataSvc      khatasvc.Service
	store         Store
	log           *slog.Logger
	rt            *chi.Mux
}

// New constructs the HTTP server with routes and middleware. All services
// share the store and the per-key lock registry so concurrent mutations
// against the same group or customer serialize.
func New(store Store, locks *keylock.Locker, events eventlog.Recorder, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		groupSvc:      group.New(store, store),
		expenseSvc:    expense.New(store, store, locks, events),
		paymentSvc:    payment.New(store, store, locks, events),
		settlementSvc: settlement.New(store),
		auditSvc:      audit.New(store, store, locks, logger, events),
		khataSvc:      khatasvc.New(store, store, locks, events),
		store:         store,
		rt:            r,
		log:           logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Groups (v1)
	s.rt.With(s.validatePostGroup()).Post("/v1/groups", s.postGroup)
	s.rt.Get("/v1/groups/{id}", s.getGroup)
	s.rt.Get("/v1/groups/{id}/balances", s.getGroupBalances)
	s.rt.Get("/v1/groups/{id}/settlement", s.getGroupSettlement)
	s.rt.Get("/v1/groups/{id}/consistency", s.getGroupConsistency)
	s.rt.Post("/v1/groups/{id}/repair", s.postGroupRepair)
	// Expenses (v1)
	s.rt.With(s.validatePostExpense()).Post("/v1/expenses", s.postExpense)
	s.rt.With(s.validateListByGroup()).Get("/v1/expenses", s.listExpenses)
	s.rt.Get("/v1/expenses/{id}", s.getExpense)
	s.rt.With(s.validatePostExpense()).Put("/v1/expenses/{id}", s.putExpense)
	s.rt.Delete("/v1/expenses/{id}", s.deleteExpense)
	// Payments (v1)
	s.rt.With(s.validatePostPayment()).Post("/v1/payments", s.postPayment)
	s.rt.With(s.validateListByGroup()).Get("/v1/payments", s.listPayments)
	s.rt.Patch("/v1/payments/{id}/status", s.patchPaymentStatus)
	// User rollup (v1)
	s.rt.Get("/v1/users/{id}/balance", s.getUserBalance)
	// Khata (v1)
	s.rt.Post("/v1/khata/customers", s.postKhataCustomer)
	s.rt.Get("/v1/khata/customers", s.listKhataCustomers)
	s.rt.Get("/v1/khata/customers/{id}/transactions", s.listKhataTransactions)
	s.rt.With(s.validatePostKhataTx()).Post("/v1/khata/transactions", s.postKhataTransaction)
	s.rt.With(s.validatePostKhataTx()).Put("/v1/khata/transactions/{id}", s.putKhataTransaction)
	s.rt.Delete("/v1/khata/transactions/{id}", s.deleteKhataTransaction)
	// Dictionary (v1)
	s.rt.Get("/v1/dictionary/categories", s.getCategoriesDictionary)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
