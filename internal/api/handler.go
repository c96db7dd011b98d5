// Package api provides HTTP handlers for the experiment server API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/game"
	"github.com/ashureev/puzzle-labs/internal/identity"
	"github.com/ashureev/puzzle-labs/internal/puzzle"
	"github.com/ashureev/puzzle-labs/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler serves the non-live API: health, client game config, and results.
type Handler struct {
	repo store.Repository
	exp  config.Experiment
}

// NewHandler creates a new API handler.
func NewHandler(repo store.Repository, exp config.Experiment) *Handler {
	return &Handler{repo: repo, exp: exp}
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

// RegisterRoutes registers the API routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Get("/api/game/config", h.GameConfig)
	r.Get("/api/game/results", h.Results)
}

// Health reports database connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// gameConfig is what the game page needs to drive its UI; it never includes
// solutions or generation parameters the client could exploit.
type gameConfig struct {
	Variant    string            `json:"variant"`
	TrialDelay float64           `json:"trial_delay"`
	RetryDelay float64           `json:"retry_delay"`
	ForceSolve bool              `json:"force_solve"`
	AllowSkip  bool              `json:"allow_skip"`
	ColorKeys  map[string]string `json:"color_keys,omitempty"`
}

// GameConfig returns the client-facing experiment parameters.
func (h *Handler) GameConfig(w http.ResponseWriter, r *http.Request) {
	cfg := gameConfig{
		Variant:    h.exp.Variant,
		TrialDelay: h.exp.TrialDelay.Seconds(),
		RetryDelay: h.exp.RetryDelay.Seconds(),
		ForceSolve: h.exp.ForceSolve,
		AllowSkip:  h.exp.AllowSkip,
	}
	if h.exp.Variant == puzzle.VariantStroop {
		cfg.ColorKeys = puzzle.ColorKeys
	}
	JSON(w, http.StatusOK, cfg)
}

// Results returns the requesting participant's current summary counters.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	participantID := identity.ParticipantIDFromContext(r.Context())
	if participantID == "" {
		Error(w, http.StatusForbidden, "unknown participant")
		return
	}

	trials, err := h.repo.TrialsByParticipant(r.Context(), participantID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load trials")
		return
	}
	JSON(w, http.StatusOK, game.Summarize(trials))
}
