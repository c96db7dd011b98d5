// Package identity provides anonymous per-device participant identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/puzzle-labs/internal/domain"
	"github.com/ashureev/puzzle-labs/internal/store"
)

const (
	// ParticipantCookieName is the cookie carrying the anonymous participant ID.
	ParticipantCookieName = "plab_participant_id"

	participantCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const participantIDKey contextKey = iota

var participantIDPattern = regexp.MustCompile(`^p_[a-f0-9]{32}$`)

// ParticipantIDFromContext extracts the participant ID from the request context.
func ParticipantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(participantIDKey).(string); ok {
		return v
	}
	return ""
}

// WithParticipantID returns a context carrying the given participant ID.
func WithParticipantID(ctx context.Context, participantID string) context.Context {
	return context.WithValue(ctx, participantIDKey, participantID)
}

func generateParticipantID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate participant id: %w", err)
	}
	return "p_" + hex.EncodeToString(buf), nil
}

func isValidParticipantID(id string) bool {
	return participantIDPattern.MatchString(id)
}

func setParticipantCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ParticipantCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(participantCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(participantCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateParticipantID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(ParticipantCookieName); err == nil && isValidParticipantID(c.Value) {
		setParticipantCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateParticipantID()
	if err != nil {
		return "", err
	}
	setParticipantCookie(w, id, isDev)
	return id, nil
}

// ensureParticipant creates the participant record on first contact. The
// round clock starts here, not at the first puzzle request.
func ensureParticipant(ctx context.Context, repo store.Repository, participantID, sessionCode, variant string) error {
	p, err := repo.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if p != nil {
		return nil
	}

	now := time.Now()
	return repo.UpsertParticipant(ctx, &domain.Participant{
		ParticipantID: participantID,
		SessionCode:   sessionCode,
		Variant:       variant,
		RoundStarted:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Middleware injects anonymous participant identity and creates the
// participant record with the session's experiment parameters on first touch.
func Middleware(repo store.Repository, sessionCode, variant string, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			participantID, err := getOrCreateParticipantID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish participant identity"}`, http.StatusInternalServerError)
				return
			}

			if err := ensureParticipant(r.Context(), repo, participantID, sessionCode, variant); err != nil {
				http.Error(w, `{"error":"failed to initialize participant"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), participantIDKey, participantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
