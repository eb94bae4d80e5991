package api

import (
	"net/http"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
)

// ActionListResponse is the body of GET /actions.
type ActionListResponse struct {
	Actions []core.ActionDefinition `json:"actions"`
}

func (s *Server) handleListActions(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, ActionListResponse{Actions: s.engine.ListActions()})
}

// handlePlan previews an execute request without creating a run.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req engine.ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := s.engine.Plan(r.Context(), middleware.GetOwner(r.Context()), req)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, plan)
}
