package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/puzzle-labs/internal/config"
	"github.com/ashureev/puzzle-labs/internal/domain"
	"github.com/ashureev/puzzle-labs/internal/identity"
	"github.com/ashureev/puzzle-labs/internal/store"
	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, exp config.Experiment) (*Handler, store.Repository) {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close test store: %v", err)
		}
	})
	return NewHandler(repo, exp), repo
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "bad input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["error"] != "bad input" {
		t.Errorf("Unexpected error body: %v", body)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, config.DefaultExperiment())

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGameConfig(t *testing.T) {
	exp := config.DefaultExperiment()
	exp.TrialDelay = 1500 * time.Millisecond
	exp.AllowSkip = true
	h, _ := newTestHandler(t, exp)

	w := httptest.NewRecorder()
	h.GameConfig(w, httptest.NewRequest(http.MethodGet, "/api/game/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Variant    string            `json:"variant"`
		TrialDelay float64           `json:"trial_delay"`
		AllowSkip  bool              `json:"allow_skip"`
		ColorKeys  map[string]string `json:"color_keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Variant != "counting" {
		t.Errorf("Expected counting variant, got %s", body.Variant)
	}
	if body.TrialDelay != 1.5 {
		t.Errorf("Expected trial_delay 1.5, got %v", body.TrialDelay)
	}
	if !body.AllowSkip {
		t.Error("Expected allow_skip true")
	}
	if body.ColorKeys != nil {
		t.Error("color_keys must be omitted for the counting variant")
	}

	// Solutions and generation parameters never reach the client.
	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode raw response: %v", err)
	}
	for _, forbidden := range []string{"seed", "solution", "matrix_width", "matrix_height"} {
		if _, ok := raw[forbidden]; ok {
			t.Errorf("Config must not expose %q", forbidden)
		}
	}
}

func TestGameConfigStroopIncludesColorKeys(t *testing.T) {
	exp := config.DefaultExperiment()
	exp.Variant = "stroop"
	h, _ := newTestHandler(t, exp)

	w := httptest.NewRecorder()
	h.GameConfig(w, httptest.NewRequest(http.MethodGet, "/api/game/config", nil))

	var body struct {
		ColorKeys map[string]string `json:"color_keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.ColorKeys["r"] != "red" {
		t.Errorf("Expected color key r -> red, got %v", body.ColorKeys)
	}
}

func TestResults(t *testing.T) {
	h, repo := newTestHandler(t, config.DefaultExperiment())
	ctx := context.Background()

	now := time.Now()
	if err := repo.UpsertParticipant(ctx, &domain.Participant{
		ParticipantID: "p_alpha",
		SessionCode:   "testsess",
		Variant:       "counting",
		RoundStarted:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("Failed to seed participant: %v", err)
	}

	correct := true
	answer := "3"
	trial := &domain.Trial{
		ParticipantID: "p_alpha",
		Iteration:     1,
		CreatedAt:     now,
		Variant:       "counting",
		Content:       "010",
		Solution:      "2",
	}
	if err := repo.AppendTrial(ctx, trial); err != nil {
		t.Fatalf("Failed to append trial: %v", err)
	}
	if err := repo.RecordAnswer(ctx, trial.ID, answer, now, correct, 1); err != nil {
		t.Fatalf("Failed to record answer: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/game/results", nil)
	req = req.WithContext(identity.WithParticipantID(req.Context(), "p_alpha"))

	w := httptest.NewRecorder()
	h.Results(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats domain.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Total != 1 || stats.Correct != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestResultsWithoutIdentity(t *testing.T) {
	h, _ := newTestHandler(t, config.DefaultExperiment())

	w := httptest.NewRecorder()
	h.Results(w, httptest.NewRequest(http.MethodGet, "/api/game/results", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}
