package domain

import (
	"time"
)

// Trial is one presented-puzzle-and-response record. Response fields stay nil
// until the first answer is recorded. A trial becomes logically immutable once
// a newer trial exists for the same participant.
type Trial struct {
	ID            int64  `json:"id"`
	ParticipantID string `json:"participant_id"`
	Iteration     int    `json:"iteration"`

	CreatedAt time.Time `json:"created_at"`
	Variant   string    `json:"variant"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Content   string    `json:"content"`
	Solution  string    `json:"solution"`
	Congruent *bool     `json:"congruent,omitempty"`

	Answer     *string    `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	IsCorrect  *bool      `json:"is_correct,omitempty"`
	Retries    int        `json:"retries"`
}

// Answered reports whether any answer has been recorded for the trial.
func (t *Trial) Answered() bool {
	return t.Answer != nil
}

// Solved reports whether the trial has been answered correctly.
func (t *Trial) Solved() bool {
	return t.IsCorrect != nil && *t.IsCorrect
}

// Age returns the time elapsed since the trial was presented.
func (t *Trial) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// SinceAnswer returns the time elapsed since the last recorded answer, or 0 if
// the trial is unanswered.
func (t *Trial) SinceAnswer(now time.Time) time.Duration {
	if t.AnsweredAt == nil {
		return 0
	}
	return now.Sub(*t.AnsweredAt)
}
