package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dirgate/dirgate/internal/permission"
)

type preflightRequest struct {
	Action string   `json:"action"`
	Paths  []string `json:"paths"`
	Title  string   `json:"title"`
}

type preflightResponse struct {
	Allowed bool `json:"allowed"`
	Once    bool `json:"once"`
}

// preflight handles POST /permission/preflight. The request blocks until
// the action is cleared, denied, or the prompt runs out.
func (s *Server) preflight(w http.ResponseWriter, r *http.Request) {
	var req preflightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "action is required")
		return
	}

	once, err := s.client.Preflight(r.Context(), req.Action, req.Paths, req.Title)
	if err != nil {
		if permission.IsDenied(err) {
			writeError(w, http.StatusForbidden, ErrCodePermissionDenied, err.Error())
			return
		}
		if errors.Is(err, r.Context().Err()) {
			// Client went away while waiting on the prompt.
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, preflightResponse{Allowed: true, Once: once})
}

type retryResponse struct {
	Retry bool `json:"retry"`
}

// retryAfterFailure handles POST /permission/retry.
func (s *Server) retryAfterFailure(w http.ResponseWriter, r *http.Request) {
	var req preflightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "action is required")
		return
	}

	retry, err := s.client.RetryAfterFailure(r.Context(), req.Action, req.Paths, req.Title)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, retryResponse{Retry: retry})
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queued": s.client.Queue().Len(),
	})
}
