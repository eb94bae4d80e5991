package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity, true
	case core.ErrCatNotFound:
		return http.StatusNotFound, true
	case core.ErrCatState:
		return http.StatusConflict, true
	case core.ErrCatAuth:
		return http.StatusUnauthorized, true
	default:
		return http.StatusInternalServerError, true
	}
}

// respondDomainError maps err to a status and writes it. A context deadline
// becomes 504. Other errors outside the domain taxonomy are logged and
// reported as a bare 500.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("request timed out", "method", r.Method, "path", r.URL.Path)
		s.respondJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"})
		return
	}

	status, ok := httpStatusForDomainError(err)
	if !ok || status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: core.CodeInternal})
		return
	}

	var domErr *core.DomainError
	errors.As(err, &domErr)
	s.respondJSON(w, status, ErrorResponse{
		Error:   domErr.Message,
		Code:    domErr.Code,
		Details: domErr.Details,
	})
}
