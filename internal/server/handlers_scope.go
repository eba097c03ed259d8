package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dirgate/dirgate/internal/scope"
	"github.com/dirgate/dirgate/pkg/types"
)

// listScopes handles GET /scope.
func (s *Server) listScopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := s.scopeStore.GetScopes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scopes)
}

type upsertScopeRequest struct {
	DirectoryPath string `json:"directoryPath"`
	types.CapabilityModes
}

// upsertScope handles POST /scope. A rule already covering the same
// directory is replaced in place.
func (s *Server) upsertScope(w http.ResponseWriter, r *http.Request) {
	var req upsertScopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.DirectoryPath == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "directoryPath is required")
		return
	}

	id, err := s.scopeStore.UpsertScope(r.Context(), req.DirectoryPath, req.CapabilityModes)
	if err != nil {
		if errors.Is(err, scope.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// deleteScope handles DELETE /scope/{scopeID}.
func (s *Server) deleteScope(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scopeID")
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "scopeID is required")
		return
	}

	if err := s.scopeStore.DeleteScope(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// normalizeScopes handles POST /scope/normalize.
func (s *Server) normalizeScopes(w http.ResponseWriter, r *http.Request) {
	result, err := s.scopeStore.NormalizeScopes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getDefaults handles GET /defaults.
func (s *Server) getDefaults(w http.ResponseWriter, r *http.Request) {
	defaults, err := s.scopeStore.GetDefaults(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, defaults)
}

// setDefaults handles PUT /defaults.
func (s *Server) setDefaults(w http.ResponseWriter, r *http.Request) {
	var modes types.CapabilityModes
	if err := json.NewDecoder(r.Body).Decode(&modes); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if err := s.scopeStore.SetDefaults(r.Context(), modes); err != nil {
		if errors.Is(err, scope.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, modes)
}
