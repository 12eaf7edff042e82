// Package api provides HTTP handlers for the LLM Council API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elazargur/llm-council/internal/config"
	"github.com/elazargur/llm-council/internal/council"
	"github.com/elazargur/llm-council/internal/domain"
	"github.com/elazargur/llm-council/internal/store"
)

// Handler serves the council API.
type Handler struct {
	store   store.Store
	council *council.Service
	cfg     *config.Config
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(repo store.Store, councilSvc *council.Service, cfg *config.Config) *Handler {
	return &Handler{
		store:   repo,
		council: councilSvc,
		cfg:     cfg,
	}
}

// RegisterRoutes mounts the API routes. The router is expected to already
// carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/models", h.GetModels)
	r.Get("/api/sessions", h.ListSessions)
	r.Post("/api/sessions", h.CreateSession)
	r.Get("/api/sessions/{id}", h.GetSession)
	r.Delete("/api/sessions/{id}", h.DeleteSession)
	r.Post("/api/council", h.RunCouncil)
}

// GetModels returns the available models and configured defaults.
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, domain.ModelCatalog{
		AvailableModels:      h.cfg.AvailableModels,
		DefaultCouncilModels: h.cfg.CouncilModels,
		DefaultChairmanModel: h.cfg.ChairmanModel,
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
