package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/query"
)

// RunListResponse is the body of GET /runs.
type RunListResponse struct {
	Runs  []*core.Run `json:"runs"`
	Count int         `json:"count"`
}

// handleExecute creates a run. The run is returned pending; completion is
// observed through later reads or the event stream.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req engine.ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := s.engine.Execute(r.Context(), middleware.GetOwner(r.Context()), req)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, run)
}

// handleListRuns filters and sorts the caller's runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}

	runs, err := s.engine.Query(r.Context(), middleware.GetOwner(r.Context()), filter)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

// handleGetRun returns one of the caller's runs.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.Get(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

// handleRetry re-submits a terminal run as a new run.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.Retry(r.Context(), middleware.GetOwner(r.Context()), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, run)
}

// parseFilter reads the query string. status may be repeated or comma
// separated.
func parseFilter(r *http.Request) (query.Filter, error) {
	q := r.URL.Query()

	statuses, err := query.ParseStatuses(strings.Join(q["status"], ","))
	if err != nil {
		return query.Filter{}, err
	}

	return query.Filter{
		Statuses:   statuses,
		ActionType: q.Get("actionType"),
		LeadID:     q.Get("leadId"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Sort: query.Sort{
			Key:       q.Get("sortKey"),
			Direction: q.Get("direction"),
		},
	}, nil
}
