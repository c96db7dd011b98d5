// Package domain contains core domain types for the puzzle-labs experiment server.
package domain

import (
	"time"
)

// Participant represents one connected player within an experiment session.
// Counters are zero until the round is finalized.
type Participant struct {
	ParticipantID string    `json:"participant_id"`
	SessionCode   string    `json:"session_code"`
	Variant       string    `json:"variant"`
	Total         int       `json:"total"`
	Correct       int       `json:"correct"`
	Incorrect     int       `json:"incorrect"`
	Payoff        int       `json:"payoff"`
	RoundStarted  time.Time `json:"round_started"`
	Finished      bool      `json:"finished"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RoundAge returns how long the participant's round has been running.
func (p *Participant) RoundAge(now time.Time) time.Duration {
	if p.RoundStarted.IsZero() {
		return 0
	}
	return now.Sub(p.RoundStarted)
}
