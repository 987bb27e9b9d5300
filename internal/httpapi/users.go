package httpapi

import (
	"net/http"
)

// GET /v1/users/{id}/balance
func (s *Server) getUserBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	balances, err := s.store.BalancesByUser(r.Context(), userID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := userBalanceResponse{UserID: userID, Balances: make([]balanceResponse, 0, len(balances))}
	for _, b := range balances {
		resp.TotalMinor += b.AmountMinor
		resp.Balances = append(resp.Balances, balanceResponse(b))
	}
	toJSON(w, http.StatusOK, resp)
}
