package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/split"
)

// POST /v1/groups
func (s *Server) postGroup(w http.ResponseWriter, r *http.Request) {
	v, ok := r.Context().Value(ctxKeyPostGroup).(validatedGroup)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.groupSvc.Create(r.Context(), v.group, v.memberIDs)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	members, err := s.store.GroupMembers(r.Context(), created.ID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toGroupResponse(created, members))
}

// GET /v1/groups/{id}
func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	g, members, err := s.groupSvc.Get(r.Context(), groupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toGroupResponse(g, members))
}

// GET /v1/groups/{id}/balances
func (s *Server) getGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	balances, err := s.settlementSvc.Balances(r.Context(), groupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := groupBalancesResponse{GroupID: groupID, Balances: make([]balanceResponse, 0, len(balances))}
	for _, b := range balances {
		resp.Balances = append(resp.Balances, balanceResponse(b))
	}
	toJSON(w, http.StatusOK, resp)
}

// GET /v1/groups/{id}/settlement
func (s *Server) getGroupSettlement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	transfers, err := s.settlementSvc.Simplified(r.Context(), groupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	resp := settlementResponse{GroupID: groupID, Transfers: make([]transferResponse, 0, len(transfers))}
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, transferResponse(t))
	}
	toJSON(w, http.StatusOK, resp)
}

// GET /v1/groups/{id}/consistency
func (s *Server) getGroupConsistency(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	report, err := s.auditSvc.Validate(r.Context(), groupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, report)
}

// POST /v1/groups/{id}/repair
func (s *Server) postGroupRepair(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	report, err := s.auditSvc.Repair(r.Context(), groupID)
	if err != nil {
		s.respondServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, report)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func toGroupResponse(g split.Group, members []split.Member) groupResponse {
	resp := groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Slug:      g.Slug,
		Currency:  g.Currency,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		Metadata:  g.Metadata,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, memberResponse{UserID: m.UserID, JoinedAt: m.JoinedAt})
	}
	return resp
}
