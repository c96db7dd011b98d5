// Package export provides the bulk trial dump consumed by offline analysis.
package export

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/puzzle-labs/internal/domain"
	"github.com/ashureev/puzzle-labs/internal/store"
)

// Header is the column layout of the trial dump, one row per trial across all
// participants.
var Header = []string{
	"session",
	"participant",
	"time",
	"iteration",
	"puzzle_content",
	"solution",
	"congruent",
	"answer",
	"is_correct",
}

// Handler serves the CSV trial export.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new export handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// ServeHTTP writes every recorded trial as CSV.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	trials, err := h.repo.AllTrials(r.Context())
	if err != nil {
		slog.Error("export failed to load trials", "error", err)
		http.Error(w, "failed to load trials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trials.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		slog.Warn("export write failed", "error", err)
		return
	}

	// Session codes live on the participant; cache lookups across rows.
	sessions := make(map[string]string)

	for _, t := range trials {
		session, ok := sessions[t.ParticipantID]
		if !ok {
			p, err := h.repo.GetParticipant(r.Context(), t.ParticipantID)
			if err != nil {
				slog.Error("export failed to load participant", "error", err, "participant_id", t.ParticipantID)
				return
			}
			if p != nil {
				session = p.SessionCode
			}
			sessions[t.ParticipantID] = session
		}

		if err := cw.Write(row(session, t)); err != nil {
			slog.Warn("export write failed", "error", err)
			return
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Warn("export flush failed", "error", err)
	}
}

func row(session string, t *domain.Trial) []string {
	unixSeconds := strconv.FormatFloat(float64(t.CreatedAt.UnixMilli())/1000, 'f', 3, 64)

	congruent := ""
	if t.Congruent != nil {
		congruent = strconv.FormatBool(*t.Congruent)
	}
	answer := ""
	if t.Answer != nil {
		answer = *t.Answer
	}
	isCorrect := ""
	if t.IsCorrect != nil {
		isCorrect = strconv.FormatBool(*t.IsCorrect)
	}

	return []string{
		session,
		t.ParticipantID,
		unixSeconds,
		strconv.Itoa(t.Iteration),
		t.Content,
		t.Solution,
		congruent,
		answer,
		isCorrect,
	}
}
