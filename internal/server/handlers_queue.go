package server

import (
	"encoding/json"
	"net/http"

	"github.com/dirgate/dirgate/internal/event"
	"github.com/dirgate/dirgate/pkg/types"
)

type queueResponse struct {
	Queued  int                `json:"queued"`
	Prompts []event.PromptView `json:"prompts"`
}

// listQueue handles GET /permission/queue.
func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	prompts := s.client.Queue().Pending()
	writeJSON(w, http.StatusOK, queueResponse{Queued: len(prompts), Prompts: prompts})
}

// currentPrompt handles GET /permission/queue/current. Responds with null
// when nothing is pending.
func (s *Server) currentPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.Queue().Current())
}

type resolveRequest struct {
	Decision types.Decision `json:"decision"`
}

// resolvePrompt handles POST /permission/queue/resolve. Only the head of
// the queue can be resolved.
func (s *Server) resolvePrompt(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if !req.Decision.Valid() {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown decision")
		return
	}

	if !s.client.Queue().ResolveCurrent(req.Decision) {
		writeError(w, http.StatusNotFound, ErrCodeQueueEmpty, "no prompt is pending")
		return
	}
	writeSuccess(w)
}

// cancelQueue handles POST /permission/queue/cancel.
func (s *Server) cancelQueue(w http.ResponseWriter, r *http.Request) {
	cancelled := s.client.CancelAll()
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": cancelled})
}
