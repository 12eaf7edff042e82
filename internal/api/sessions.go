package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elazargur/llm-council/internal/auth"
	"github.com/elazargur/llm-council/internal/store"
)

// ListSessions returns the caller's session summaries, newest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	owner := auth.EmailFromContext(r.Context())
	summaries, err := h.store.ListSessions(r.Context(), owner)
	if err != nil {
		slog.Error("Failed to list sessions", "owner", owner, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, summaries)
}

// CreateSession creates an empty session for the caller.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	owner := auth.EmailFromContext(r.Context())
	session, err := h.store.CreateSession(r.Context(), owner)
	if err != nil {
		slog.Error("Failed to create session", "owner", owner, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusOK, session)
}

// GetSession returns one session with its full message sequence.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	owner := auth.EmailFromContext(r.Context())
	id := chi.URLParam(r, "id")

	session, err := h.store.GetSession(r.Context(), owner, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("Failed to get session", "owner", owner, "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	JSON(w, http.StatusOK, session)
}

// DeleteSession removes one session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	owner := auth.EmailFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := h.store.DeleteSession(r.Context(), owner, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("Failed to delete session", "owner", owner, "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
