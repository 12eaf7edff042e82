package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/elazargur/llm-council/internal/auth"
	"github.com/elazargur/llm-council/internal/council"
	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/store"
)

// councilRequest is the POST /api/council body.
type councilRequest struct {
	Content       string   `json:"content"`
	CouncilModels []string `json:"council_models,omitempty"`
	ChairmanModel string   `json:"chairman_model,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// RunCouncil streams one full deliberation turn as SSE frames and, when a
// session id was supplied, persists the user/assistant pair before the
// terminal complete event.
func (h *Handler) RunCouncil(w http.ResponseWriter, r *http.Request) {
	var req councilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		Error(w, http.StatusBadRequest, "content required")
		return
	}
	if len(req.CouncilModels) == 0 {
		req.CouncilModels = h.cfg.CouncilModels
	}
	if req.ChairmanModel == "" {
		req.ChairmanModel = h.cfg.ChairmanModel
	}

	stream, err := newSSEWriter(w)
	if err != nil {
		Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	outcome, err := h.council.Run(r.Context(), council.Request{
		Content:       req.Content,
		CouncilModels: req.CouncilModels,
		ChairmanModel: req.ChairmanModel,
	}, stream.Send)
	if err != nil {
		// The failure event is already on the wire; nothing to persist.
		slog.Error("Council run failed", "error", err)
		return
	}

	if req.SessionID != "" {
		owner := auth.EmailFromContext(r.Context())
		assistant := domain.Message{
			Role:     domain.RoleAssistant,
			Stage1:   outcome.Stage1,
			Stage2:   outcome.Stage2,
			Stage3:   outcome.Stage3,
			Metadata: outcome.Metadata,
		}
		err := h.store.AppendTurn(r.Context(), owner, req.SessionID,
			domain.NewUserMessage(req.Content), assistant)
		if errors.Is(err, store.ErrSessionNotFound) {
			// Unknown session ids are tolerated: the turn still completes,
			// it just is not persisted.
			slog.Warn("Council turn for unknown session", "owner", owner, "session_id", req.SessionID)
		} else if err != nil {
			slog.Error("Failed to persist council turn", "owner", owner, "session_id", req.SessionID, "error", err)
		}
	}

	stream.Send(domain.StreamEvent{Type: domain.EventComplete})
}
